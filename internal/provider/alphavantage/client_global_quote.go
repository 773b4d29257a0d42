package alphavantage

import (
	"context"
	"fmt"
)

// GlobalQuote is the latest price snapshot for a symbol. The API encodes
// every field as a string.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// GetGlobalQuote retrieves the GLOBAL_QUOTE for symbol.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	var body struct {
		Quote GlobalQuote `json:"Global Quote"`
	}
	if err := c.query(ctx, "GLOBAL_QUOTE", map[string]string{"symbol": symbol}, &body); err != nil {
		return nil, err
	}
	if body.Quote.Symbol == "" {
		return nil, fmt.Errorf("%w: global quote for %s", ErrNoData, symbol)
	}
	return &body.Quote, nil
}
