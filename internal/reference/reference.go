// Package reference holds static lookup tables: sector peer groups and the
// sector of well-known symbols.
package reference

import "strings"

// Directory answers sector and peer-group lookups. Lookups are
// case-insensitive.
type Directory struct {
	sectors map[string][]string // canonical sector -> peer symbols
	aliases map[string]string   // lower-cased name or alias -> canonical sector
	symbols map[string]string   // upper-cased symbol -> canonical sector
}

var sectorPeers = map[string][]string{
	"Technology":             {"AAPL", "MSFT", "NVDA", "AVGO", "ORCL", "ADBE", "CRM"},
	"Communication Services": {"GOOGL", "META", "NFLX", "DIS", "TMUS", "VZ"},
	"Consumer Cyclical":      {"AMZN", "TSLA", "HD", "MCD", "NKE", "SBUX"},
	"Consumer Defensive":     {"WMT", "PG", "KO", "PEP", "COST", "PM"},
	"Financial Services":     {"JPM", "BAC", "WFC", "GS", "MS", "V", "MA"},
	"Healthcare":             {"UNH", "JNJ", "LLY", "PFE", "MRK", "ABBV"},
	"Energy":                 {"XOM", "CVX", "COP", "SLB", "EOG"},
	"Industrials":            {"CAT", "GE", "HON", "UPS", "BA", "RTX"},
	"Utilities":              {"NEE", "DUK", "SO", "D", "AEP"},
	"Real Estate":            {"PLD", "AMT", "EQIX", "SPG", "O"},
	"Basic Materials":        {"LIN", "SHW", "APD", "FCX", "NEM"},
}

// sectorAliases maps the spellings vendors use onto the canonical names.
var sectorAliases = map[string]string{
	"tech":                   "Technology",
	"information technology": "Technology",
	"communication":          "Communication Services",
	"communications":         "Communication Services",
	"consumer discretionary": "Consumer Cyclical",
	"consumer staples":       "Consumer Defensive",
	"financials":             "Financial Services",
	"finance":                "Financial Services",
	"financial":              "Financial Services",
	"health care":            "Healthcare",
	"life sciences":          "Healthcare",
	"materials":              "Basic Materials",
	"manufacturing":          "Industrials",
	"trade & services":       "Consumer Cyclical",
}

// Default returns the built-in directory.
func Default() *Directory {
	return New(sectorPeers, sectorAliases)
}

// New builds a directory from a sector -> peers table and extra aliases.
// Every peer is also recorded as belonging to its sector.
func New(sectors map[string][]string, aliases map[string]string) *Directory {
	d := &Directory{
		sectors: make(map[string][]string, len(sectors)),
		aliases: make(map[string]string, len(sectors)+len(aliases)),
		symbols: make(map[string]string),
	}
	for sector, peers := range sectors {
		up := make([]string, 0, len(peers))
		for _, p := range peers {
			p = strings.ToUpper(strings.TrimSpace(p))
			up = append(up, p)
			if _, seen := d.symbols[p]; !seen {
				d.symbols[p] = sector
			}
		}
		d.sectors[sector] = up
		d.aliases[strings.ToLower(sector)] = sector
	}
	for alias, sector := range aliases {
		if _, ok := d.sectors[sector]; ok {
			d.aliases[strings.ToLower(alias)] = sector
		}
	}
	return d
}

// Peers returns the canonical sector name and its peer symbols.
func (d *Directory) Peers(sector string) (string, []string, bool) {
	canonical, ok := d.aliases[strings.ToLower(strings.TrimSpace(sector))]
	if !ok {
		return "", nil, false
	}
	peers := d.sectors[canonical]
	out := make([]string, len(peers))
	copy(out, peers)
	return canonical, out, true
}

// SectorOf returns the sector a known symbol belongs to.
func (d *Directory) SectorOf(symbol string) (string, bool) {
	s, ok := d.symbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return s, ok
}
