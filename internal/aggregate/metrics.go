package aggregate

import (
	"fmt"
	"math"
	"strings"

	"github.com/verrerie/finx-sub000/internal/provider"
)

// Metric is one comparable company figure.
type Metric struct {
	Key         string
	Label       string
	Description string

	value  func(provider.CompanyInfo) *float64
	format func(float64) string
}

// Value extracts the metric from info; nil when the vendor did not report it.
func (m Metric) Value(info provider.CompanyInfo) *float64 { return m.value(info) }

// Format renders v for display.
func (m Metric) Format(v float64) string { return m.format(v) }

var registry = []Metric{
	{
		Key: "market_cap", Label: "Market Cap",
		Description: "Share price times shares outstanding.",
		value:       func(c provider.CompanyInfo) *float64 { return c.MarketCap },
		format:      money,
	},
	{
		Key: "pe", Label: "P/E",
		Description: "Price divided by trailing twelve-month earnings per share.",
		value:       func(c provider.CompanyInfo) *float64 { return c.PERatio },
		format:      ratio,
	},
	{
		Key: "forward_pe", Label: "Fwd P/E",
		Description: "Price divided by expected next-year earnings per share.",
		value:       func(c provider.CompanyInfo) *float64 { return c.ForwardPE },
		format:      ratio,
	},
	{
		Key: "peg", Label: "PEG",
		Description: "P/E divided by expected earnings growth.",
		value:       func(c provider.CompanyInfo) *float64 { return c.PEGRatio },
		format:      ratio,
	},
	{
		Key: "price_to_book", Label: "P/B",
		Description: "Price divided by book value per share.",
		value:       func(c provider.CompanyInfo) *float64 { return c.PriceToBook },
		format:      ratio,
	},
	{
		Key: "eps", Label: "EPS",
		Description: "Trailing twelve-month earnings per share.",
		value:       func(c provider.CompanyInfo) *float64 { return c.EPS },
		format:      ratio,
	},
	{
		Key: "dividend_yield", Label: "Div Yield",
		Description: "Annual dividends as a share of price.",
		value:       func(c provider.CompanyInfo) *float64 { return c.DividendYield },
		format:      percent,
	},
	{
		Key: "profit_margin", Label: "Margin",
		Description: "Net income as a share of revenue.",
		value:       func(c provider.CompanyInfo) *float64 { return c.ProfitMargin },
		format:      percent,
	},
	{
		Key: "roe", Label: "ROE",
		Description: "Net income as a share of shareholder equity.",
		value:       func(c provider.CompanyInfo) *float64 { return c.ReturnOnEquity },
		format:      percent,
	},
	{
		Key: "beta", Label: "Beta",
		Description: "Volatility relative to the overall market.",
		value:       func(c provider.CompanyInfo) *float64 { return c.Beta },
		format:      ratio,
	},
	{
		Key: "revenue", Label: "Revenue",
		Description: "Trailing twelve-month revenue.",
		value:       func(c provider.CompanyInfo) *float64 { return c.Revenue },
		format:      money,
	},
}

// DefaultMetrics are compared when the caller names none.
var DefaultMetrics = []string{"market_cap", "pe", "profit_margin", "roe", "dividend_yield"}

// aliasMap normalizes the spellings callers use for metric names.
var aliasMap = map[string]string{
	"marketcap":        "market_cap",
	"market_cap":       "market_cap",
	"mcap":             "market_cap",
	"pe":               "pe",
	"p/e":              "pe",
	"pe_ratio":         "pe",
	"forward_pe":       "forward_pe",
	"fwd_pe":           "forward_pe",
	"peg":              "peg",
	"peg_ratio":        "peg",
	"price_to_book":    "price_to_book",
	"p/b":              "price_to_book",
	"pb":               "price_to_book",
	"eps":              "eps",
	"dividend_yield":   "dividend_yield",
	"dividend":         "dividend_yield",
	"yield":            "dividend_yield",
	"profit_margin":    "profit_margin",
	"margin":           "profit_margin",
	"roe":              "roe",
	"return_on_equity": "roe",
	"beta":             "beta",
	"revenue":          "revenue",
}

// Lookup returns the metric for a name or alias.
func Lookup(name string) (Metric, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if canon, ok := aliasMap[key]; ok {
		key = canon
	}
	for _, m := range registry {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// SplitNames splits a comma-separated metric list, dropping blanks.
func SplitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolveMetrics maps names to metrics, dropping duplicates. No names means
// DefaultMetrics. An unknown name fails with provider.ErrNotFound.
func ResolveMetrics(names []string) ([]Metric, error) {
	if len(names) == 0 {
		names = DefaultMetrics
	}
	seen := make(map[string]bool, len(names))
	out := make([]Metric, 0, len(names))
	var unknown []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m, ok := Lookup(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		if seen[m.Key] {
			continue
		}
		seen[m.Key] = true
		out = append(out, m)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown metric %s (available: %s)",
			provider.ErrNotFound, strings.Join(unknown, ", "), strings.Join(MetricKeys(), ", "))
	}
	if len(out) == 0 {
		return ResolveMetrics(nil)
	}
	return out, nil
}

// MetricKeys lists every known metric key in display order.
func MetricKeys() []string {
	keys := make([]string, len(registry))
	for i, m := range registry {
		keys[i] = m.Key
	}
	return keys
}

func money(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func ratio(v float64) string { return fmt.Sprintf("%.2f", v) }

func percent(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
