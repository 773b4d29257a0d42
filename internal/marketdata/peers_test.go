package marketdata_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/reference"
)

func ptr(v float64) *float64 { return &v }

func peerDirectory() marketdata.Option {
	return marketdata.WithPeerDirectory(reference.New(map[string][]string{
		"Technology": {"AAPL", "MSFT", "NVDA", "ORCL"},
		"Energy":     {"XOM", "CVX"},
	}, map[string]string{"tech": "Technology"}))
}

func TestComparePeers_PartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary(), peerDirectory())

	// Assert: the target goes through the primary exactly once; peers never do.
	f.primary.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "AAPL").
		Return(provider.CompanyInfo{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", PERatio: ptr(38.9)}, nil).
		Times(1)
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "MSFT").
		Return(provider.CompanyInfo{Symbol: "MSFT", Name: "Microsoft", PERatio: ptr(36)}, nil)
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "NVDA").
		Return(provider.CompanyInfo{}, errors.New("upstream timeout"))
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "ORCL").
		Return(provider.CompanyInfo{Symbol: "ORCL", Name: "Oracle", PERatio: ptr(40)}, nil)

	cmp, err := svc.ComparePeers(t.Context(), "aapl", "", []string{"pe"})

	require.NoError(t, err)
	require.Equal(t, "AAPL", cmp.Symbol)
	require.Equal(t, "Technology", cmp.Sector)
	require.Len(t, cmp.Table.Rows, 4)
	require.Equal(t, "NVDA", cmp.Table.Rows[3].Symbol)
	require.Equal(t, "upstream timeout", cmp.Table.Rows[3].Error)
	require.InDelta(t, 38.0, *cmp.Table.Average["pe"], 1e-9)
	require.Contains(t, cmp.Comparison, "Peer comparison for AAPL (Technology)")
	require.Contains(t, cmp.Comparison, "error: upstream timeout")
	require.Equal(t, 1, f.limiter.Stats().CallsLastDay)
}

func TestComparePeers_UsesCachedPeers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, peerDirectory())

	f.cache.Set("company:CVX", provider.CompanyInfo{Symbol: "CVX", Name: "Chevron"}, time.Hour)
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "XOM").
		Return(provider.CompanyInfo{Symbol: "XOM", Name: "Exxon Mobil", Sector: "Energy"}, nil).
		Times(1)

	cmp, err := svc.ComparePeers(t.Context(), "XOM", "", nil)

	require.NoError(t, err)
	require.Equal(t, "Energy", cmp.Sector)
	require.Len(t, cmp.Table.Rows, 2)
	require.Equal(t, "CVX", cmp.Table.Rows[1].Symbol)
	require.Empty(t, cmp.Table.Rows[1].Error)
}

func TestComparePeers_SectorFromTargetAndArgument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, peerDirectory())

	// IBM is not in the directory, so its reported sector picks the group.
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "IBM").
		Return(provider.CompanyInfo{Symbol: "IBM", Sector: "tech"}, nil)
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), gomock.Any()).
		Return(provider.CompanyInfo{Symbol: "PEER"}, nil).
		Times(4)

	cmp, err := svc.ComparePeers(t.Context(), "IBM", "", nil)
	require.NoError(t, err)
	require.Equal(t, "Technology", cmp.Sector)
	require.Len(t, cmp.Table.Rows, 5)
}

func TestComparePeers_UnknownSector(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, peerDirectory())

	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "IBM").
		Return(provider.CompanyInfo{Symbol: "IBM"}, nil).
		Times(1)

	_, err := svc.ComparePeers(t.Context(), "IBM", "", nil)
	require.ErrorIs(t, err, provider.ErrNotFound)

	_, err = svc.ComparePeers(t.Context(), "IBM", "Shipping", nil)
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.Contains(t, err.Error(), "Shipping")
}

func TestComparePeers_UnknownMetric(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary(), peerDirectory())

	_, err := svc.ComparePeers(t.Context(), "AAPL", "", []string{"pe", "astrology"})
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.Equal(t, 0, f.limiter.Stats().CallsLastDay)
}

func TestComparePeers_TargetFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, peerDirectory())

	boom := errors.New("fallback down")
	f.fallback.MockProvider.EXPECT().CompanyInfo(gomock.Any(), "AAPL").Return(provider.CompanyInfo{}, boom)

	_, err := svc.ComparePeers(t.Context(), "AAPL", "", nil)
	require.ErrorIs(t, err, boom)
}
