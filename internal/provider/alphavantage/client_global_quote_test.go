package alphavantage_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verrerie/finx-sub000/internal/provider/alphavantage"
)

const globalQuoteBody = `{
    "Global Quote": {
        "01. symbol": "IBM",
        "02. open": "231.5000",
        "03. high": "233.7400",
        "04. low": "230.1000",
        "05. price": "232.9100",
        "06. volume": "3417823",
        "07. latest trading day": "2025-01-10",
        "08. previous close": "231.0200",
        "09. change": "1.8900",
        "10. change percent": "0.8181%"
    }
}`

func TestGetGlobalQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "av.test", req.URL.Host)
			require.Equal(t, "/query", req.URL.Path)
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "IBM", req.URL.Query().Get("symbol"))
			require.Equal(t, "1", req.Header.Get("X-Trace"))
			return jsonResponse(http.StatusOK, globalQuoteBody), nil
		}).
		Times(1)

	// Act
	q, err := newClient(t, httpClient).GetGlobalQuote(t.Context(), "IBM")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "IBM", q.Symbol)
	require.Equal(t, "232.9100", q.Price)
	require.Equal(t, "3417823", q.Volume)
	require.Equal(t, "2025-01-10", q.LatestTradingDay)
	require.Equal(t, "0.8181%", q.ChangePercent)
}

func TestGetGlobalQuote_Empty(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"Global Quote": {}}`), nil)

	q, err := newClient(t, httpClient).GetGlobalQuote(t.Context(), "ZZZZ")
	require.ErrorIs(t, err, alphavantage.ErrNoData)
	require.Nil(t, q)
}
