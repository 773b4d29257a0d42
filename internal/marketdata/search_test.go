package marketdata_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/providermock"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

func TestSearchSymbol_NoPrimary(t *testing.T) {
	t.Parallel()

	// Arrange: the fallback has no expectations, so any call fails the test.
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.SearchSymbol(t.Context(), "apple")

	var ce *provider.CapabilityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "symbol search", ce.Capability)
	require.Contains(t, err.Error(), "ALPHA_VANTAGE_API_KEY")
}

func TestSearchSymbol_PrimaryWithoutCapability(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctrl := gomock.NewController(t)
	plain := providermock.NewMockProvider(ctrl)
	plain.EXPECT().Name().Return("Plain").AnyTimes()
	svc := f.service(t, marketdata.WithPrimary(plain, ratelimit.New(5, 25)))

	_, err := svc.SearchSymbol(t.Context(), "apple")

	var ce *provider.CapabilityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "symbol search", ce.Capability)
}

func TestSearchSymbol_RateLimitedAndCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	matches := []provider.SymbolMatch{
		{Symbol: "AAPL", Name: "Apple Inc", Exchange: "United States", Type: "Equity", MatchScore: 0.89},
		{Symbol: "APLE", Name: "Apple Hospitality REIT Inc", Exchange: "United States", Type: "Equity", MatchScore: 0.71},
	}
	f.primary.MockSymbolSearcher.EXPECT().
		SearchSymbol(gomock.Any(), "apple").
		Return(matches, nil).
		Times(1)

	res, err := svc.SearchSymbol(t.Context(), "  apple ")
	require.NoError(t, err)
	require.Equal(t, primaryName, res.Source)
	require.Equal(t, matches, res.Data)
	require.Equal(t, "1/5 calls this minute, 1/25 calls today", res.QuotaInfo)
	require.Equal(t, map[string]any{"query": "apple", "count": 2}, res.Metadata)

	res, err = svc.SearchSymbol(t.Context(), "APPLE")
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Equal(t, marketdata.SourceCache, res.Source)
	require.Equal(t, 2, res.Metadata["count"])
}

func TestSearchSymbol_ErrorSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	boom := errors.New("throttled")
	f.primary.MockSymbolSearcher.EXPECT().SearchSymbol(gomock.Any(), "x").Return(nil, boom)

	_, err := svc.SearchSymbol(t.Context(), "x")
	require.ErrorIs(t, err, boom)
}

func TestSearchSymbol_EmptyQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	_, err := svc.SearchSymbol(t.Context(), " ")
	require.ErrorIs(t, err, marketdata.ErrInvalidArgument)
}
