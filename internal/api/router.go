// Package api exposes the market data operations over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/verrerie/finx-sub000/internal/aggregate"
	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

// Service is the market data surface the router serves.
type Service interface {
	GetQuote(ctx context.Context, symbol string) (marketdata.Result[provider.Quote], error)
	GetCompanyInfo(ctx context.Context, symbol string) (marketdata.Result[provider.CompanyInfo], error)
	GetHistoricalData(ctx context.Context, symbol string, period provider.Period) (marketdata.Result[[]provider.Bar], error)
	SearchSymbol(ctx context.Context, query string) (marketdata.Result[[]provider.SymbolMatch], error)
	ComparePeers(ctx context.Context, symbol, sector string, metrics []string) (marketdata.Comparison, error)
	Stats() marketdata.Stats
}

type Options struct {
	Logger logrus.FieldLogger
	// Registry receives HTTP metrics and is served on /metrics. Nil
	// disables both.
	Registry       *prometheus.Registry
	RateLimit      float64
	Burst          int
	RequestTimeout time.Duration
}

type handler struct {
	svc Service
}

// NewRouter builds the gin engine.
func NewRouter(svc Service, opts Options) *gin.Engine {
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	r := gin.New()
	r.Use(RequestID(), CORS(), Compress(), Recovery(opts.Logger), RequestLogger(opts.Logger))
	if opts.Registry != nil {
		r.Use(Metrics(opts.Registry))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	h := &handler{svc: svc}
	api := r.Group("/api", RateLimit(opts.RateLimit, opts.Burst), Timeout(opts.RequestTimeout))
	api.GET("/quote/:symbol", h.quote)
	api.GET("/company/:symbol", h.company)
	api.GET("/history/:symbol", h.history)
	api.GET("/search", h.search)
	api.GET("/peers/:symbol", h.peers)
	api.GET("/stats", h.stats)
	return r
}

func (h *handler) quote(c *gin.Context) {
	res, err := h.svc.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) company(c *gin.Context) {
	res, err := h.svc.GetCompanyInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) history(c *gin.Context) {
	res, err := h.svc.GetHistoricalData(c.Request.Context(), c.Param("symbol"), provider.Period(c.Query("period")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		q = c.Query("query")
	}
	res, err := h.svc.SearchSymbol(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) peers(c *gin.Context) {
	cmp, err := h.svc.ComparePeers(c.Request.Context(), c.Param("symbol"), c.Query("sector"), aggregate.SplitNames(c.Query("metrics")))
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, cmp.Comparison)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, marketdata.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case provider.IsCapability(err):
		return http.StatusNotImplemented
	case errors.Is(err, ratelimit.ErrWaitTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(ctxRequestID),
	})
}
