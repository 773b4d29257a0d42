package provider

import (
	"context"
	"strings"
	"time"
)

//go:generate mockgen -source=provider.go -destination=providermock/provider.go -package=providermock

// Quote is the normalized latest-price shape returned by all providers.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Volume           int64     `json:"volume"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	Currency         string    `json:"currency,omitempty"`
	LatestTradingDay string    `json:"latest_trading_day,omitempty"`
	Source           string    `json:"source"`
	ReceivedAt       time.Time `json:"received_at"`
}

// CompanyInfo holds company fundamentals. Optional figures are nil when the
// vendor did not report them.
type CompanyInfo struct {
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Exchange       string   `json:"exchange,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Country        string   `json:"country,omitempty"`
	Sector         string   `json:"sector,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
	PERatio        *float64 `json:"pe_ratio,omitempty"`
	ForwardPE      *float64 `json:"forward_pe,omitempty"`
	PEGRatio       *float64 `json:"peg_ratio,omitempty"`
	PriceToBook    *float64 `json:"price_to_book,omitempty"`
	EPS            *float64 `json:"eps,omitempty"`
	DividendYield  *float64 `json:"dividend_yield,omitempty"`
	ProfitMargin   *float64 `json:"profit_margin,omitempty"`
	ReturnOnEquity *float64 `json:"return_on_equity,omitempty"`
	Beta           *float64 `json:"beta,omitempty"`
	Revenue        *float64 `json:"revenue,omitempty"`
	Week52High     *float64 `json:"week_52_high,omitempty"`
	Week52Low      *float64 `json:"week_52_low,omitempty"`
	Source         string   `json:"source"`
}

// Bar is one OHLCV point of a historical series.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SymbolMatch is a single symbol search hit.
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Exchange   string  `json:"exchange"`
	Type       string  `json:"type"`
	Currency   string  `json:"currency,omitempty"`
	MatchScore float64 `json:"match_score,omitempty"`
}

// Period is the lookback range of a historical request.
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

var periods = []Period{Period1d, Period5d, Period1mo, Period3mo, Period6mo, Period1y, Period2y, Period5y, Period10y, PeriodYTD, PeriodMax}

// ParsePeriod accepts a period case-insensitively. Empty input means 1mo.
func ParsePeriod(s string) (Period, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Period1mo, true
	}
	for _, p := range periods {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Provider is the mandatory capability set every vendor adapter offers.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
	CompanyInfo(ctx context.Context, symbol string) (CompanyInfo, error)
}

// HistoricalProvider is implemented by providers that serve OHLCV history.
type HistoricalProvider interface {
	Historical(ctx context.Context, symbol string, period Period) ([]Bar, error)
}

// SymbolSearcher is implemented by providers that can look up symbols.
type SymbolSearcher interface {
	SearchSymbol(ctx context.Context, query string) ([]SymbolMatch, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Clone returns a copy of c that shares no optional figures with it.
func (c CompanyInfo) Clone() CompanyInfo {
	for _, f := range []**float64{
		&c.MarketCap, &c.PERatio, &c.ForwardPE, &c.PEGRatio, &c.PriceToBook, &c.EPS,
		&c.DividendYield, &c.ProfitMargin, &c.ReturnOnEquity, &c.Beta, &c.Revenue,
		&c.Week52High, &c.Week52Low,
	} {
		if *f != nil {
			v := **f
			*f = &v
		}
	}
	return c
}
