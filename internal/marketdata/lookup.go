package marketdata

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

const (
	kindQuote   = "quote"
	kindCompany = "company"
	kindHistory = "history"
	kindSearch  = "search"
	kindPeer    = "peer"
)

// fetchFunc calls one provider operation.
type fetchFunc[T any] func(ctx context.Context, p provider.Provider) (T, error)

// lookup runs the cache, primary, fallback sequence for one key.
func lookup[T any](ctx context.Context, s *Service, kind, symbol string, ttl time.Duration, fetch fetchFunc[T]) (Result[T], error) {
	key := kind + ":" + symbol
	log := s.log.WithFields(logrus.Fields{"kind": kind, "symbol": symbol})

	if v, ok := cacheGet[T](s, key); ok {
		log.Debug("cache hit")
		s.metrics.request(kind, roleCache)
		return Result[T]{Data: v, Source: SourceCache, Cached: true}, nil
	}

	return coalesce(ctx, s, key, func(ctx context.Context) (Result[T], error) {
		// A flight for this key may have finished since the check above.
		if v, ok := cacheGet[T](s, key); ok {
			s.metrics.request(kind, roleCache)
			return Result[T]{Data: v, Source: SourceCache, Cached: true}, nil
		}
		if s.primary != nil {
			v, err := ratelimit.Execute(ctx, s.limiter, func(ctx context.Context) (T, error) {
				return fetch(ctx, s.primary.Provider)
			})
			if err == nil {
				cacheSet(s, key, v, ttl)
				s.metrics.request(kind, rolePrimary)
				return Result[T]{Data: v, Source: s.primary.Name(), QuotaInfo: s.quotaInfo()}, nil
			}
			log.WithError(err).WithField("provider", s.primary.Name()).Warn("primary provider failed, using fallback")
			s.metrics.primaryFailure(kind)
		}

		v, err := fetch(ctx, s.fallback.Provider)
		if err != nil {
			log.WithError(err).WithField("provider", s.fallback.Name()).Error("fallback provider failed")
			s.metrics.failure(kind)
			return Result[T]{}, err
		}
		cacheSet(s, key, v, ttl)
		s.metrics.request(kind, roleFallback)
		return Result[T]{Data: v, Source: s.fallback.Name()}, nil
	})
}

// GetQuote returns the latest quote for symbol.
func (s *Service) GetQuote(ctx context.Context, symbol string) (Result[provider.Quote], error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return Result[provider.Quote]{}, err
	}
	return lookup(ctx, s, kindQuote, sym, s.ttl.Quote, func(ctx context.Context, p provider.Provider) (provider.Quote, error) {
		return p.Quote(ctx, sym)
	})
}

// GetCompanyInfo returns company fundamentals for symbol.
func (s *Service) GetCompanyInfo(ctx context.Context, symbol string) (Result[provider.CompanyInfo], error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return Result[provider.CompanyInfo]{}, err
	}
	return lookup(ctx, s, kindCompany, sym, s.ttl.Company, func(ctx context.Context, p provider.Provider) (provider.CompanyInfo, error) {
		return p.CompanyInfo(ctx, sym)
	})
}
