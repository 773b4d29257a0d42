package alphavantage

import "context"

// SearchMatch is one SYMBOL_SEARCH result.
type SearchMatch struct {
	Symbol      string `json:"1. symbol"`
	Name        string `json:"2. name"`
	Type        string `json:"3. type"`
	Region      string `json:"4. region"`
	MarketOpen  string `json:"5. marketOpen"`
	MarketClose string `json:"6. marketClose"`
	Timezone    string `json:"7. timezone"`
	Currency    string `json:"8. currency"`
	MatchScore  string `json:"9. matchScore"`
}

// SymbolSearch looks up symbols matching keywords. No match yields an
// empty slice.
func (c *Client) SymbolSearch(ctx context.Context, keywords string) ([]SearchMatch, error) {
	var body struct {
		Matches []SearchMatch `json:"bestMatches"`
	}
	if err := c.query(ctx, "SYMBOL_SEARCH", map[string]string{"keywords": keywords}, &body); err != nil {
		return nil, err
	}
	if body.Matches == nil {
		return []SearchMatch{}, nil
	}
	return body.Matches, nil
}
