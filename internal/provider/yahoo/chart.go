package yahoo

import (
	"context"
	"time"

	"github.com/verrerie/finx-sub000/internal/provider"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		Currency             string   `json:"currency"`
		ExchangeName         string   `json:"exchangeName"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		RegularMarketTime    int64    `json:"regularMarketTime"`
		RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  *int64   `json:"regularMarketVolume"`
		ChartPreviousClose   *float64 `json:"chartPreviousClose"`
		PreviousClose        *float64 `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, op, symbol, rng, interval string) (*chartResult, error) {
	var body chartResponse
	err := c.get(ctx, op, symbol, "/v8/finance/chart/{symbol}", map[string]string{
		"range":    rng,
		"interval": interval,
	}, &body)
	if err != nil {
		return nil, err
	}
	if err := c.check(op, symbol, body.Chart.Error); err != nil {
		return nil, err
	}
	if len(body.Chart.Result) == 0 {
		return nil, provider.NotFound(c.name, op, symbol)
	}
	return &body.Chart.Result[0], nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	res, err := c.chart(ctx, "quote", symbol, "1d", "1d")
	if err != nil {
		return provider.Quote{}, err
	}
	m := res.Meta
	if m.RegularMarketPrice == nil {
		return provider.Quote{}, provider.NotFound(c.name, "quote", symbol)
	}

	q := provider.Quote{
		Symbol:     provider.NormalizeSymbol(m.Symbol),
		Price:      *m.RegularMarketPrice,
		High:       deref(m.RegularMarketDayHigh),
		Low:        deref(m.RegularMarketDayLow),
		Currency:   m.Currency,
		Source:     c.name,
		ReceivedAt: c.now().UTC(),
	}
	if q.Symbol == "" {
		q.Symbol = provider.NormalizeSymbol(symbol)
	}
	if m.RegularMarketVolume != nil {
		q.Volume = *m.RegularMarketVolume
	}
	if len(res.Indicators.Quote) > 0 {
		if opens := res.Indicators.Quote[0].Open; len(opens) > 0 {
			q.Open = deref(opens[len(opens)-1])
		}
	}
	prev := m.PreviousClose
	if prev == nil {
		prev = m.ChartPreviousClose
	}
	if prev != nil && *prev != 0 {
		q.PreviousClose = *prev
		q.Change = q.Price - *prev
		q.ChangePercent = q.Change / *prev * 100
	}
	if m.RegularMarketTime > 0 {
		q.LatestTradingDay = time.Unix(m.RegularMarketTime, 0).In(location(m.ExchangeTimezoneName)).Format(time.DateOnly)
	}
	return q, nil
}

// interval picks a bar size that keeps each period to a few hundred points.
func interval(p provider.Period) string {
	switch p {
	case provider.Period1d:
		return "5m"
	case provider.Period5d:
		return "15m"
	case provider.Period2y, provider.Period5y:
		return "1wk"
	case provider.Period10y, provider.PeriodMax:
		return "1mo"
	default:
		return "1d"
	}
}

// Historical returns the OHLCV series for period, oldest first. Points the
// vendor reports as null are skipped.
func (c *Client) Historical(ctx context.Context, symbol string, period provider.Period) ([]provider.Bar, error) {
	iv := interval(period)
	res, err := c.chart(ctx, "historical", symbol, string(period), iv)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return []provider.Bar{}, nil
	}

	loc := location(res.Meta.ExchangeTimezoneName)
	layout := time.DateOnly
	if iv == "5m" || iv == "15m" {
		layout = "2006-01-02 15:04"
	}

	q := res.Indicators.Quote[0]
	bars := make([]provider.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl := at(q.Close, i)
		if cl == nil {
			continue
		}
		b := provider.Bar{
			Date:  time.Unix(ts, 0).In(loc).Format(layout),
			Open:  deref(at(q.Open, i)),
			High:  deref(at(q.High, i)),
			Low:   deref(at(q.Low, i)),
			Close: *cl,
		}
		if v := at(q.Volume, i); v != nil {
			b.Volume = *v
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func at[T any](s []*T, i int) *T {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
