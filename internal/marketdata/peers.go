package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/verrerie/finx-sub000/internal/aggregate"
	"github.com/verrerie/finx-sub000/internal/provider"
)

// MaxPeers bounds how many peers a comparison fetches.
const MaxPeers = 5

// Comparison is the outcome of ComparePeers.
type Comparison struct {
	Symbol     string          `json:"symbol"`
	Sector     string          `json:"sector"`
	Comparison string          `json:"comparison"`
	Table      aggregate.Table `json:"table"`
}

// ComparePeers compares symbol with up to MaxPeers companies of its sector.
// The sector comes from the argument, then the peer directory, then the
// target's own company info. Peers are read from the cache or the fallback
// only, so they never spend primary quota; a failed peer becomes an error
// row instead of failing the comparison.
func (s *Service) ComparePeers(ctx context.Context, symbol, sector string, metrics []string) (Comparison, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return Comparison{}, err
	}
	set, err := aggregate.ResolveMetrics(metrics)
	if err != nil {
		return Comparison{}, err
	}

	target, err := s.GetCompanyInfo(ctx, sym)
	if err != nil {
		return Comparison{}, err
	}

	sector = strings.TrimSpace(sector)
	if sector == "" {
		if known, ok := s.peers.SectorOf(sym); ok {
			sector = known
		} else {
			sector = target.Data.Sector
		}
	}
	if sector == "" {
		return Comparison{}, fmt.Errorf("%w: cannot determine the sector of %s", provider.ErrNotFound, sym)
	}
	canonical, group, ok := s.peers.Peers(sector)
	if !ok {
		return Comparison{}, fmt.Errorf("%w: no peer group for sector %q", provider.ErrNotFound, sector)
	}

	peers := make([]string, 0, MaxPeers)
	for _, p := range group {
		if p != sym && len(peers) < MaxPeers {
			peers = append(peers, p)
		}
	}

	results := make([]aggregate.PeerResult, len(peers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range peers {
		g.Go(func() error {
			info, err := s.peerInfo(gctx, p)
			results[i] = aggregate.PeerResult{Symbol: p, Info: info, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			s.log.WithFields(logrus.Fields{"symbol": sym, "peer": r.Symbol}).WithError(r.Err).Warn("peer lookup failed")
		}
	}

	table := aggregate.Build(canonical, target.Data, results, set)
	return Comparison{
		Symbol:     sym,
		Sector:     canonical,
		Comparison: table.Format(),
		Table:      table,
	}, nil
}

// peerInfo reads company info from the cache or the fallback provider.
func (s *Service) peerInfo(ctx context.Context, symbol string) (provider.CompanyInfo, error) {
	key := kindCompany + ":" + symbol
	if info, ok := cacheGet[provider.CompanyInfo](s, key); ok {
		s.metrics.request(kindPeer, roleCache)
		return info, nil
	}
	return coalesce(ctx, s, kindPeer+":"+symbol, func(ctx context.Context) (provider.CompanyInfo, error) {
		info, err := s.fallback.CompanyInfo(ctx, symbol)
		if err != nil {
			s.metrics.failure(kindPeer)
			return provider.CompanyInfo{}, err
		}
		cacheSet(s, key, info, s.ttl.Company)
		s.metrics.request(kindPeer, roleFallback)
		return info, nil
	})
}
