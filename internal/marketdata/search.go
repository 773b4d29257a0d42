package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

// SearchSymbol looks up symbols matching query. Only the primary provider
// can search; the fallback is never consulted.
func (s *Service) SearchSymbol(ctx context.Context, query string) (Result[[]provider.SymbolMatch], error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Result[[]provider.SymbolMatch]{}, fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	searcher, ok := s.primary.Searcher()
	if !ok {
		return Result[[]provider.SymbolMatch]{}, &provider.CapabilityError{
			Capability:  "symbol search",
			Remediation: "set ALPHA_VANTAGE_API_KEY to enable the primary provider",
		}
	}

	meta := func(matches []provider.SymbolMatch) map[string]any {
		return map[string]any{"query": q, "count": len(matches)}
	}
	key := kindSearch + ":" + strings.ToUpper(q)
	if matches, ok := cacheGet[[]provider.SymbolMatch](s, key); ok {
		s.metrics.request(kindSearch, roleCache)
		return Result[[]provider.SymbolMatch]{Data: matches, Source: SourceCache, Cached: true, Metadata: meta(matches)}, nil
	}

	return coalesce(ctx, s, key, func(ctx context.Context) (Result[[]provider.SymbolMatch], error) {
		matches, err := ratelimit.Execute(ctx, s.limiter, func(ctx context.Context) ([]provider.SymbolMatch, error) {
			return searcher.SearchSymbol(ctx, q)
		})
		if err != nil {
			s.log.WithError(err).WithField("query", q).Error("symbol search failed")
			s.metrics.failure(kindSearch)
			return Result[[]provider.SymbolMatch]{}, err
		}
		cacheSet(s, key, matches, s.ttl.Search)
		s.metrics.request(kindSearch, rolePrimary)
		return Result[[]provider.SymbolMatch]{
			Data:      matches,
			Source:    s.primary.Name(),
			QuotaInfo: s.quotaInfo(),
			Metadata:  meta(matches),
		}, nil
	})
}
