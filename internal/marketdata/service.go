// Package marketdata resolves market data requests against the cache, the
// quota-limited primary provider and the fallback provider.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/cache"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
	"github.com/verrerie/finx-sub000/internal/reference"
)

// SourceCache is the Source reported for results served from the cache.
const SourceCache = "Cache"

// ErrInvalidArgument is returned for empty symbols, queries and unknown
// periods.
var ErrInvalidArgument = errors.New("invalid argument")

// Result is the envelope every operation returns.
type Result[T any] struct {
	Data      T              `json:"data"`
	Source    string         `json:"source"`
	Cached    bool           `json:"cached"`
	QuotaInfo string         `json:"quota_info,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TTLs are the per-kind cache lifetimes.
type TTLs struct {
	Quote   time.Duration
	Company time.Duration
	History time.Duration
	Search  time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Quote:   time.Minute,
		Company: 24 * time.Hour,
		History: time.Hour,
		Search:  24 * time.Hour,
	}
}

// PeerDirectory resolves sectors and their peer groups.
type PeerDirectory interface {
	Peers(sector string) (canonical string, symbols []string, ok bool)
	SectorOf(symbol string) (string, bool)
}

// Service is the acquisition orchestrator. It is safe for concurrent use.
type Service struct {
	primary  *provider.Descriptor
	limiter  *ratelimit.Limiter
	fallback *provider.Descriptor

	cache   *cache.Cache
	ttl     TTLs
	peers   PeerDirectory
	log     logrus.FieldLogger
	metrics *metrics

	group singleflight.Group
}

type Option func(*Service)

// WithPrimary configures the quota-limited primary provider. Every call to
// it goes through l, which New requires. A nil p leaves the primary
// disabled.
func WithPrimary(p provider.Provider, l *ratelimit.Limiter) Option {
	return func(s *Service) {
		if p == nil {
			return
		}
		s.primary = provider.Describe(p)
		s.limiter = l
	}
}

// WithTTLs overrides the cache lifetimes. Zero fields keep their default.
func WithTTLs(t TTLs) Option {
	return func(s *Service) {
		if t.Quote > 0 {
			s.ttl.Quote = t.Quote
		}
		if t.Company > 0 {
			s.ttl.Company = t.Company
		}
		if t.History > 0 {
			s.ttl.History = t.History
		}
		if t.Search > 0 {
			s.ttl.Search = t.Search
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics registers request counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.metrics = newMetrics(reg)
	}
}

func WithPeerDirectory(d PeerDirectory) Option {
	return func(s *Service) {
		s.peers = d
	}
}

// New creates a Service around the fallback provider, which is required. A
// nil cache gets a fresh one.
func New(fallback provider.Provider, c *cache.Cache, opts ...Option) (*Service, error) {
	if fallback == nil {
		return nil, errors.New("marketdata: fallback provider is required")
	}
	if c == nil {
		c = cache.New()
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Service{
		fallback: provider.Describe(fallback),
		cache:    c,
		ttl:      DefaultTTLs(),
		peers:    reference.Default(),
		log:      discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.primary != nil && s.limiter == nil {
		return nil, errors.New("marketdata: primary provider requires a rate limiter")
	}
	return s, nil
}

// Stats describes the configured providers and current usage.
type Stats struct {
	Primary      string                 `json:"primary,omitempty"`
	PrimaryCaps  *provider.Capabilities `json:"primary_capabilities,omitempty"`
	Fallback     string                 `json:"fallback"`
	FallbackCaps provider.Capabilities  `json:"fallback_capabilities"`
	Quota        *ratelimit.Stats       `json:"quota,omitempty"`
	CacheEntries int                    `json:"cache_entries"`
}

func (s *Service) Stats() Stats {
	st := Stats{
		Fallback:     s.fallback.Name(),
		FallbackCaps: s.fallback.Caps,
		CacheEntries: s.cache.Len(),
	}
	if s.primary != nil {
		st.Primary = s.primary.Name()
		caps := s.primary.Caps
		st.PrimaryCaps = &caps
		q := s.limiter.Stats()
		st.Quota = &q
	}
	return st
}

// quotaInfo reports limiter usage after a primary call.
func (s *Service) quotaInfo() string {
	return s.limiter.Stats().String()
}

// coalesce runs fn once per key among concurrent callers. fn runs detached
// from the caller's cancellation so one caller giving up does not fail the
// others; a caller whose ctx ends stops waiting.
func coalesce[T any](ctx context.Context, s *Service, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func symbolArg(symbol string) (string, error) {
	sym := provider.NormalizeSymbol(symbol)
	if sym == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidArgument)
	}
	return sym, nil
}
