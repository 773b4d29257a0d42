// Package app assembles the market data service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/verrerie/finx-sub000/internal/config"
	"github.com/verrerie/finx-sub000/internal/httpx"
	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider/alphavantage"
	"github.com/verrerie/finx-sub000/internal/provider/alphavantageadapter"
	"github.com/verrerie/finx-sub000/internal/provider/cache"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
	"github.com/verrerie/finx-sub000/internal/provider/yahoo"
)

type App struct {
	Service *marketdata.Service
	Limiter *ratelimit.Limiter

	redis *redis.Client
}

// Build wires providers, limiter and cache. reg may be nil.
func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	fallback := yahoo.New(
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithTimeout(cfg.Yahoo.Timeout),
	)

	opts := []marketdata.Option{
		marketdata.WithTTLs(marketdata.TTLs{
			Quote:   cfg.Cache.QuoteTTL,
			Company: cfg.Cache.CompanyTTL,
			History: cfg.Cache.HistoryTTL,
			Search:  cfg.Cache.SearchTTL,
		}),
		marketdata.WithLogger(log.WithField("component", "marketdata")),
	}
	if reg != nil {
		opts = append(opts, marketdata.WithMetrics(reg))
	}

	if cfg.PrimaryEnabled() {
		limiter := a.limiter(ctx, cfg, log, reg)
		client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
			alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
			alphavantage.WithHTTPClient(httpx.New(cfg.AlphaVantage.Timeout,
				httpx.WithHeader("Accept", "application/json"),
				httpx.WithLogger(log.WithField("provider", alphavantageadapter.DefaultName)),
			)),
		)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("alpha vantage client: %w", err)
		}
		primary := alphavantageadapter.New(alphavantageadapter.Config{}, client)
		opts = append(opts, marketdata.WithPrimary(primary, limiter))
		a.Limiter = limiter
		log.WithFields(logrus.Fields{
			"primary":        primary.Name(),
			"max_per_minute": cfg.AlphaVantage.MaxPerMinute,
			"max_per_day":    cfg.AlphaVantage.MaxPerDay,
		}).Info("primary provider enabled")
	} else {
		log.Info("ALPHA_VANTAGE_API_KEY not set, serving from the fallback provider only")
	}

	svc, err := marketdata.New(fallback, cache.New(), opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func (a *App) limiter(ctx context.Context, cfg config.Config, log logrus.FieldLogger, reg prometheus.Registerer) *ratelimit.Limiter {
	opts := []ratelimit.Option{
		ratelimit.WithMaxWait(cfg.AlphaVantage.MaxWait),
		ratelimit.WithLogger(log.WithField("component", "ratelimit")),
	}
	if reg != nil {
		opts = append(opts, ratelimit.WithMetrics(reg, "alphavantage"))
	}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, ratelimit.WithJournal(ratelimit.NewRedisJournal(a.redis, cfg.Redis.Key)))
	}

	l := ratelimit.New(cfg.AlphaVantage.MaxPerMinute, cfg.AlphaVantage.MaxPerDay, opts...)
	if a.redis != nil {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := l.Restore(rctx); err != nil {
			// Quota accounting starts empty rather than refusing to boot.
			log.WithError(err).Warn("rate limit history unavailable")
		}
	}
	return l
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
