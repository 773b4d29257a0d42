package marketdata

import (
	"context"
	"fmt"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

// GetHistoricalData returns the OHLCV series for symbol over period. The
// fallback serves it when capable, otherwise the primary through the
// limiter. An empty period means one month.
func (s *Service) GetHistoricalData(ctx context.Context, symbol string, period provider.Period) (Result[[]provider.Bar], error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return Result[[]provider.Bar]{}, err
	}
	p, ok := provider.ParsePeriod(string(period))
	if !ok {
		return Result[[]provider.Bar]{}, fmt.Errorf("%w: unknown period %q", ErrInvalidArgument, period)
	}

	meta := func(bars []provider.Bar) map[string]any {
		return map[string]any{"symbol": sym, "period": string(p), "points": len(bars)}
	}
	key := kindHistory + ":" + sym + ":" + string(p)
	if bars, ok := cacheGet[[]provider.Bar](s, key); ok {
		s.metrics.request(kindHistory, roleCache)
		return Result[[]provider.Bar]{Data: bars, Source: SourceCache, Cached: true, Metadata: meta(bars)}, nil
	}

	if h, ok := s.fallback.Historical(); ok {
		return coalesce(ctx, s, key, func(ctx context.Context) (Result[[]provider.Bar], error) {
			bars, err := h.Historical(ctx, sym, p)
			if err != nil {
				s.metrics.failure(kindHistory)
				return Result[[]provider.Bar]{}, err
			}
			cacheSet(s, key, bars, s.ttl.History)
			s.metrics.request(kindHistory, roleFallback)
			return Result[[]provider.Bar]{Data: bars, Source: s.fallback.Name(), Metadata: meta(bars)}, nil
		})
	}

	if h, ok := s.primary.Historical(); ok {
		return coalesce(ctx, s, key, func(ctx context.Context) (Result[[]provider.Bar], error) {
			bars, err := ratelimit.Execute(ctx, s.limiter, func(ctx context.Context) ([]provider.Bar, error) {
				return h.Historical(ctx, sym, p)
			})
			if err != nil {
				s.metrics.failure(kindHistory)
				return Result[[]provider.Bar]{}, err
			}
			cacheSet(s, key, bars, s.ttl.History)
			s.metrics.request(kindHistory, rolePrimary)
			return Result[[]provider.Bar]{Data: bars, Source: s.primary.Name(), QuotaInfo: s.quotaInfo(), Metadata: meta(bars)}, nil
		})
	}

	return Result[[]provider.Bar]{}, &provider.CapabilityError{
		Capability:  "historical data",
		Remediation: "configure a provider that serves price history",
	}
}
