package alphavantageadapter

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/alphavantage"
)

// DefaultName is the display name reported as the data source.
const DefaultName = "Alpha Vantage"

// API is the subset of the Alpha Vantage client the adapter needs.
type API interface {
	GetGlobalQuote(ctx context.Context, symbol string) (*alphavantage.GlobalQuote, error)
	GetOverview(ctx context.Context, symbol string) (*alphavantage.Overview, error)
	SymbolSearch(ctx context.Context, keywords string) ([]alphavantage.SearchMatch, error)
}

type Config struct {
	Name string // display name, default: Alpha Vantage
}

// Adapter exposes Alpha Vantage as a provider.Provider and
// provider.SymbolSearcher. It serves no history.
type Adapter struct {
	cfg    Config
	client API
	now    func() time.Time
}

func New(cfg Config, client API) *Adapter {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	return &Adapter{cfg: cfg, client: client, now: time.Now}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	gq, err := a.client.GetGlobalQuote(ctx, symbol)
	if err != nil {
		return provider.Quote{}, a.wrap("quote", symbol, err)
	}
	price, ok := parseNumber(gq.Price)
	if !ok {
		return provider.Quote{}, provider.Errorf(a.cfg.Name, "quote", "unparsable price %q for %s", gq.Price, symbol)
	}
	q := provider.Quote{
		Symbol:           provider.NormalizeSymbol(gq.Symbol),
		Price:            price,
		LatestTradingDay: gq.LatestTradingDay,
		Source:           a.cfg.Name,
		ReceivedAt:       a.now().UTC(),
	}
	q.Open, _ = parseNumber(gq.Open)
	q.High, _ = parseNumber(gq.High)
	q.Low, _ = parseNumber(gq.Low)
	q.PreviousClose, _ = parseNumber(gq.PreviousClose)
	q.Change, _ = parseNumber(gq.Change)
	q.ChangePercent, _ = parseNumber(gq.ChangePercent)
	if v, err := strconv.ParseInt(strings.TrimSpace(gq.Volume), 10, 64); err == nil {
		q.Volume = v
	}
	return q, nil
}

func (a *Adapter) CompanyInfo(ctx context.Context, symbol string) (provider.CompanyInfo, error) {
	ov, err := a.client.GetOverview(ctx, symbol)
	if err != nil {
		return provider.CompanyInfo{}, a.wrap("company info", symbol, err)
	}
	return provider.CompanyInfo{
		Symbol:         provider.NormalizeSymbol(ov.Symbol),
		Name:           ov.Name,
		Description:    ov.Description,
		Exchange:       ov.Exchange,
		Currency:       ov.Currency,
		Country:        ov.Country,
		Sector:         titleCase(ov.Sector),
		Industry:       titleCase(ov.Industry),
		MarketCap:      optional(ov.MarketCapitalization),
		PERatio:        optional(ov.PERatio),
		ForwardPE:      optional(ov.ForwardPE),
		PEGRatio:       optional(ov.PEGRatio),
		PriceToBook:    optional(ov.PriceToBookRatio),
		EPS:            optional(ov.EPS),
		DividendYield:  optional(ov.DividendYield),
		ProfitMargin:   optional(ov.ProfitMargin),
		ReturnOnEquity: optional(ov.ReturnOnEquityTTM),
		Beta:           optional(ov.Beta),
		Revenue:        optional(ov.RevenueTTM),
		Week52High:     optional(ov.Week52High),
		Week52Low:      optional(ov.Week52Low),
		Source:         a.cfg.Name,
	}, nil
}

func (a *Adapter) SearchSymbol(ctx context.Context, query string) ([]provider.SymbolMatch, error) {
	matches, err := a.client.SymbolSearch(ctx, query)
	if err != nil {
		return nil, a.wrap("symbol search", query, err)
	}
	out := make([]provider.SymbolMatch, 0, len(matches))
	for _, m := range matches {
		score, _ := parseNumber(m.MatchScore)
		out = append(out, provider.SymbolMatch{
			Symbol:     m.Symbol,
			Name:       m.Name,
			Exchange:   m.Region,
			Type:       m.Type,
			Currency:   m.Currency,
			MatchScore: score,
		})
	}
	return out, nil
}

func (a *Adapter) wrap(op, what string, err error) error {
	if errors.Is(err, alphavantage.ErrNoData) {
		return provider.NotFound(a.cfg.Name, op, what)
	}
	return &provider.Error{Provider: a.cfg.Name, Op: op, Err: err}
}

// parseNumber reads the API's string-encoded numbers. Placeholders such as
// "None" and "-" are reported as absent.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "-", "N/A":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func optional(s string) *float64 {
	v, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// titleCase turns "LIFE SCIENCES" into "Life Sciences".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
