package alphavantage

import (
	"context"
	"fmt"
)

// Overview holds company fundamentals. Numeric fields are strings and may
// be "None" or "-".
type Overview struct {
	Symbol               string `json:"Symbol"`
	AssetType            string `json:"AssetType"`
	Name                 string `json:"Name"`
	Description          string `json:"Description"`
	Exchange             string `json:"Exchange"`
	Currency             string `json:"Currency"`
	Country              string `json:"Country"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	ForwardPE            string `json:"ForwardPE"`
	PEGRatio             string `json:"PEGRatio"`
	PriceToBookRatio     string `json:"PriceToBookRatio"`
	EPS                  string `json:"EPS"`
	DividendYield        string `json:"DividendYield"`
	ProfitMargin         string `json:"ProfitMargin"`
	ReturnOnEquityTTM    string `json:"ReturnOnEquityTTM"`
	Beta                 string `json:"Beta"`
	RevenueTTM           string `json:"RevenueTTM"`
	Week52High           string `json:"52WeekHigh"`
	Week52Low            string `json:"52WeekLow"`
}

// GetOverview retrieves the company OVERVIEW for symbol.
func (c *Client) GetOverview(ctx context.Context, symbol string) (*Overview, error) {
	var body Overview
	if err := c.query(ctx, "OVERVIEW", map[string]string{"symbol": symbol}, &body); err != nil {
		return nil, err
	}
	if body.Symbol == "" {
		return nil, fmt.Errorf("%w: overview for %s", ErrNoData, symbol)
	}
	return &body, nil
}
