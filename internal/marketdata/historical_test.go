package marketdata_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/cache"
	"github.com/verrerie/finx-sub000/internal/provider/providermock"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

var bars = []provider.Bar{
	{Date: "2025-01-08", Open: 242, High: 244.2, Low: 241.3, Close: 242.7, Volume: 37628900},
	{Date: "2025-01-09", Open: 240, High: 240.2, Low: 233, Close: 236.85, Volume: 61710856},
}

// historyPrimary is a primary that serves history but cannot search.
type historyPrimary struct {
	*providermock.MockProvider
	*providermock.MockHistoricalProvider
}

func TestGetHistoricalData_FallbackServes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	f.fallback.MockHistoricalProvider.EXPECT().
		Historical(gomock.Any(), "AAPL", provider.Period5d).
		Return(bars, nil).
		Times(1)

	res, err := svc.GetHistoricalData(t.Context(), "aapl", "5D")

	require.NoError(t, err)
	require.Equal(t, fallbackName, res.Source)
	require.Equal(t, bars, res.Data)
	require.Equal(t, map[string]any{"symbol": "AAPL", "period": "5d", "points": 2}, res.Metadata)
	require.Equal(t, 0, f.limiter.Stats().CallsLastDay, "history from the fallback is not rate limited")

	res, err = svc.GetHistoricalData(t.Context(), "AAPL", provider.Period5d)
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Equal(t, 2, res.Metadata["points"])
}

func TestGetHistoricalData_CallerEditsDoNotReachCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	f.fallback.MockHistoricalProvider.EXPECT().
		Historical(gomock.Any(), "AAPL", provider.Period1mo).
		Return(slices.Clone(bars), nil).
		Times(1)

	res, err := svc.GetHistoricalData(t.Context(), "AAPL", "")
	require.NoError(t, err)
	res.Data[0].Close = -1

	cached, err := svc.GetHistoricalData(t.Context(), "AAPL", "")
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.Equal(t, 242.7, cached.Data[0].Close)

	// Assert: a cached read is a copy too.
	cached.Data[0].Close = -2
	again, err := svc.GetHistoricalData(t.Context(), "AAPL", "")
	require.NoError(t, err)
	require.Equal(t, 242.7, again.Data[0].Close)
}

func TestGetHistoricalData_DefaultPeriod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	f.fallback.MockHistoricalProvider.EXPECT().
		Historical(gomock.Any(), "AAPL", provider.Period1mo).
		Return(bars, nil)

	res, err := svc.GetHistoricalData(t.Context(), "AAPL", "")
	require.NoError(t, err)
	require.Equal(t, "1mo", res.Metadata["period"])
}

func TestGetHistoricalData_InvalidPeriod(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.GetHistoricalData(t.Context(), "AAPL", "fortnight")
	require.ErrorIs(t, err, marketdata.ErrInvalidArgument)
}

func TestGetHistoricalData_PrimaryWhenFallbackLacksIt(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fallback := providermock.NewMockProvider(ctrl)
	fallback.EXPECT().Name().Return(fallbackName).AnyTimes()
	primary := historyPrimary{
		MockProvider:           providermock.NewMockProvider(ctrl),
		MockHistoricalProvider: providermock.NewMockHistoricalProvider(ctrl),
	}
	primary.MockProvider.EXPECT().Name().Return(primaryName).AnyTimes()
	primary.MockHistoricalProvider.EXPECT().
		Historical(gomock.Any(), "IBM", provider.Period1y).
		Return(bars, nil)

	limiter := ratelimit.New(5, 25)
	svc, err := marketdata.New(fallback, cache.New(), marketdata.WithPrimary(primary, limiter))
	require.NoError(t, err)

	res, err := svc.GetHistoricalData(t.Context(), "IBM", provider.Period1y)

	require.NoError(t, err)
	require.Equal(t, primaryName, res.Source)
	require.Equal(t, "1/5 calls this minute, 1/25 calls today", res.QuotaInfo)
	require.Equal(t, 1, limiter.Stats().CallsLastDay)
}

func TestGetHistoricalData_Unsupported(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fallback := providermock.NewMockProvider(ctrl)
	fallback.EXPECT().Name().Return(fallbackName).AnyTimes()

	svc, err := marketdata.New(fallback, nil)
	require.NoError(t, err)

	_, err = svc.GetHistoricalData(context.Background(), "AAPL", provider.Period1mo)

	var ce *provider.CapabilityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "historical data", ce.Capability)
}

func TestGetHistoricalData_ErrorNotCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	f.fallback.MockHistoricalProvider.EXPECT().
		Historical(gomock.Any(), "ZZZZ", provider.Period1mo).
		Return(nil, provider.NotFound(fallbackName, "historical", "ZZZZ"))

	_, err := svc.GetHistoricalData(t.Context(), "ZZZZ", provider.Period1mo)
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.Equal(t, 0, f.cache.Len())
}
