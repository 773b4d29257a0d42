package marketdata_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/cache"
	"github.com/verrerie/finx-sub000/internal/provider/providermock"
	"github.com/verrerie/finx-sub000/internal/provider/ratelimit"
)

const (
	primaryName  = "Alpha Vantage"
	fallbackName = "Yahoo Finance"
)

// searchProvider is a primary with symbol search.
type searchProvider struct {
	*providermock.MockProvider
	*providermock.MockSymbolSearcher
}

// historyProvider is a fallback with price history.
type historyProvider struct {
	*providermock.MockProvider
	*providermock.MockHistoricalProvider
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fixture struct {
	primary  searchProvider
	fallback historyProvider
	cache    *cache.Cache
	clock    *fakeClock
	limiter  *ratelimit.Limiter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		primary: searchProvider{
			MockProvider:       providermock.NewMockProvider(ctrl),
			MockSymbolSearcher: providermock.NewMockSymbolSearcher(ctrl),
		},
		fallback: historyProvider{
			MockProvider:           providermock.NewMockProvider(ctrl),
			MockHistoricalProvider: providermock.NewMockHistoricalProvider(ctrl),
		},
		clock:   &fakeClock{now: time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)},
		limiter: ratelimit.New(5, 25),
	}
	f.cache = cache.New(cache.WithClock(f.clock.Now))
	f.primary.MockProvider.EXPECT().Name().Return(primaryName).AnyTimes()
	f.fallback.MockProvider.EXPECT().Name().Return(fallbackName).AnyTimes()
	return f
}

func (f *fixture) service(t *testing.T, opts ...marketdata.Option) *marketdata.Service {
	t.Helper()
	svc, err := marketdata.New(f.fallback, f.cache, opts...)
	require.NoError(t, err)
	return svc
}

func (f *fixture) withPrimary() marketdata.Option {
	return marketdata.WithPrimary(f.primary, f.limiter)
}

func TestNew_RequiresFallback(t *testing.T) {
	t.Parallel()

	svc, err := marketdata.New(nil, nil)
	require.Error(t, err)
	require.Nil(t, svc)
}

func TestNew_PrimaryRequiresLimiter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := marketdata.New(f.fallback, f.cache, marketdata.WithPrimary(f.primary, nil))
	require.EqualError(t, err, "marketdata: primary provider requires a rate limiter")
}

func TestGetQuote_PrimaryThenCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	// Assert: only one upstream call for two lookups.
	f.primary.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{Symbol: "AAPL", Price: 150, Source: primaryName}, nil).
		Times(1)

	// Act: first lookup goes to the primary.
	res, err := svc.GetQuote(t.Context(), "aapl")
	require.NoError(t, err)
	require.Equal(t, primaryName, res.Source)
	require.False(t, res.Cached)
	require.Equal(t, "1/5 calls this minute, 1/25 calls today", res.QuotaInfo)
	require.InDelta(t, 150.0, res.Data.Price, 1e-9)

	// Act: second lookup, differently cased, is a cache hit.
	res, err = svc.GetQuote(t.Context(), " AAPL ")
	require.NoError(t, err)
	require.Equal(t, marketdata.SourceCache, res.Source)
	require.True(t, res.Cached)
	require.Empty(t, res.QuotaInfo)
	require.InDelta(t, 150.0, res.Data.Price, 1e-9)
}

func TestGetQuote_PrimaryFailureFallsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	f.primary.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{}, errors.New("primary down")).
		Times(1)
	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{Symbol: "AAPL", Price: 151, Source: fallbackName}, nil).
		Times(1)

	res, err := svc.GetQuote(t.Context(), "AAPL")

	require.NoError(t, err)
	require.Equal(t, fallbackName, res.Source)
	require.False(t, res.Cached)
	require.Empty(t, res.QuotaInfo)

	// Assert: the cache holds the fallback's value.
	cached, ok := cache.GetAs[provider.Quote](f.cache, "quote:AAPL")
	require.True(t, ok)
	require.Equal(t, fallbackName, cached.Source)
	require.InDelta(t, 151.0, cached.Price, 1e-9)

	// Assert: the failed primary call still counted against the quota.
	require.Equal(t, 1, f.limiter.Stats().CallsLastMinute)
}

func TestGetQuote_FallbackErrorPropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, f.withPrimary())

	fallbackErr := provider.NotFound(fallbackName, "quote", "ZZZZ")
	f.primary.MockProvider.EXPECT().Quote(gomock.Any(), "ZZZZ").Return(provider.Quote{}, errors.New("primary down"))
	f.fallback.MockProvider.EXPECT().Quote(gomock.Any(), "ZZZZ").Return(provider.Quote{}, fallbackErr)

	_, err := svc.GetQuote(t.Context(), "ZZZZ")

	require.Equal(t, fallbackErr, err)
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.Equal(t, 0, f.cache.Len())
}

func TestGetQuote_NoPrimaryUsesFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "MSFT").
		Return(provider.Quote{Symbol: "MSFT", Price: 420}, nil)

	res, err := svc.GetQuote(t.Context(), "MSFT")

	require.NoError(t, err)
	require.Equal(t, fallbackName, res.Source)
	require.Equal(t, 0, f.limiter.Stats().CallsLastDay)
}

func TestGetQuote_QuotaExhaustedFallsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.limiter = ratelimit.New(0, 0, ratelimit.WithMaxWait(time.Millisecond))
	svc := f.service(t, f.withPrimary())

	// Assert: the primary is never invoked.
	f.primary.MockProvider.EXPECT().Quote(gomock.Any(), gomock.Any()).Times(0)
	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{Symbol: "AAPL", Price: 149}, nil)

	res, err := svc.GetQuote(t.Context(), "AAPL")

	require.NoError(t, err)
	require.Equal(t, fallbackName, res.Source)
}

func TestGetQuote_ExpiredEntryRefetches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t, marketdata.WithTTLs(marketdata.TTLs{Quote: time.Second}))

	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{Symbol: "AAPL", Price: 150}, nil).
		Times(2)

	_, err := svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)

	f.clock.Advance(500 * time.Millisecond)
	res, err := svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.True(t, res.Cached)

	f.clock.Advance(600 * time.Millisecond)
	res, err = svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.False(t, res.Cached)
}

func TestGetQuote_EmptySymbol(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.GetQuote(t.Context(), "   ")
	require.ErrorIs(t, err, marketdata.ErrInvalidArgument)
}

func TestGetCompanyInfo_KeysAreNamespaced(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		Return(provider.Quote{Symbol: "AAPL", Price: 150}, nil)
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "AAPL").
		Return(provider.CompanyInfo{Symbol: "AAPL", Name: "Apple Inc."}, nil)

	_, err := svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)

	// Assert: a cached quote does not satisfy a company lookup.
	res, err := svc.GetCompanyInfo(t.Context(), "AAPL")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, "Apple Inc.", res.Data.Name)
	require.Equal(t, 2, f.cache.Len())
}

func TestGetCompanyInfo_CachedFiguresAreCopies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	pe := 31.5
	f.fallback.MockProvider.EXPECT().
		CompanyInfo(gomock.Any(), "AAPL").
		Return(provider.CompanyInfo{Symbol: "AAPL", PERatio: &pe}, nil).
		Times(1)

	_, err := svc.GetCompanyInfo(t.Context(), "AAPL")
	require.NoError(t, err)
	pe = 0

	cached, err := svc.GetCompanyInfo(t.Context(), "AAPL")
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.Equal(t, 31.5, *cached.Data.PERatio)

	*cached.Data.PERatio = -1
	again, err := svc.GetCompanyInfo(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 31.5, *again.Data.PERatio)
}

func TestGetQuote_ConcurrentMissesShareOneCall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	release := make(chan struct{})
	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		DoAndReturn(func(context.Context, string) (provider.Quote, error) {
			<-release
			return provider.Quote{Symbol: "AAPL", Price: 150}, nil
		}).
		Times(1)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GetQuote(context.Background(), "AAPL")
			if err == nil && res.Data.Price != 150 {
				err = errors.New("unexpected price")
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestGetQuote_CallerCancelStopsWaiting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(t)

	release := make(chan struct{})
	f.fallback.MockProvider.EXPECT().
		Quote(gomock.Any(), "AAPL").
		DoAndReturn(func(context.Context, string) (provider.Quote, error) {
			<-release
			return provider.Quote{Symbol: "AAPL"}, nil
		}).
		Times(1)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.GetQuote(ctx, "AAPL")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Assert: the detached fetch still completes and fills the cache.
	close(release)
	res, err := svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", res.Data.Symbol)
}

func TestService_Metrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reg := prometheus.NewRegistry()
	svc := f.service(t, f.withPrimary(), marketdata.WithMetrics(reg))

	f.primary.MockProvider.EXPECT().Quote(gomock.Any(), "AAPL").Return(provider.Quote{}, errors.New("down"))
	f.fallback.MockProvider.EXPECT().Quote(gomock.Any(), "AAPL").Return(provider.Quote{Symbol: "AAPL"}, nil)

	_, err := svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)
	_, err = svc.GetQuote(t.Context(), "AAPL")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]int{}
	for _, mf := range families {
		counts[mf.GetName()] = len(mf.GetMetric())
	}
	require.Equal(t, 2, counts["finx_marketdata_requests_total"], "one fallback and one cache series")
	require.Equal(t, 1, counts["finx_marketdata_primary_failures_total"])
	require.Equal(t, 1, testutil.CollectAndCount(reg, "finx_marketdata_primary_failures_total"))
}

func TestService_Stats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	st := f.service(t).Stats()
	require.Empty(t, st.Primary)
	require.Nil(t, st.Quota)
	require.Equal(t, fallbackName, st.Fallback)
	require.True(t, st.FallbackCaps.HistoricalData)

	st = f.service(t, f.withPrimary()).Stats()
	require.Equal(t, primaryName, st.Primary)
	require.NotNil(t, st.PrimaryCaps)
	require.True(t, st.PrimaryCaps.SymbolSearch)
	require.NotNil(t, st.Quota)
	require.Equal(t, 5, st.Quota.MaxPerMinute)
}
