package yahoo

import (
	"context"

	"github.com/verrerie/finx-sub000/internal/provider"
)

const summaryModules = "assetProfile,summaryDetail,defaultKeyStatistics,financialData,price"

// value is Yahoo's {"raw": 1.5, "fmt": "1.50"} number wrapper. Missing
// figures come back as {} so Raw stays nil.
type value struct {
	Raw *float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	AssetProfile struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		Country             string `json:"country"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
	SummaryDetail struct {
		TrailingPE       value `json:"trailingPE"`
		ForwardPE        value `json:"forwardPE"`
		DividendYield    value `json:"dividendYield"`
		Beta             value `json:"beta"`
		FiftyTwoWeekHigh value `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  value `json:"fiftyTwoWeekLow"`
		MarketCap        value `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PEGRatio    value `json:"pegRatio"`
		PriceToBook value `json:"priceToBook"`
		TrailingEPS value `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		ProfitMargins  value `json:"profitMargins"`
		ReturnOnEquity value `json:"returnOnEquity"`
		TotalRevenue   value `json:"totalRevenue"`
	} `json:"financialData"`
	Price struct {
		Symbol       string `json:"symbol"`
		LongName     string `json:"longName"`
		ShortName    string `json:"shortName"`
		ExchangeName string `json:"exchangeName"`
		Currency     string `json:"currency"`
		MarketCap    value  `json:"marketCap"`
	} `json:"price"`
}

func (c *Client) CompanyInfo(ctx context.Context, symbol string) (provider.CompanyInfo, error) {
	var body summaryResponse
	err := c.get(ctx, "company info", symbol, "/v10/finance/quoteSummary/{symbol}", map[string]string{
		"modules": summaryModules,
	}, &body)
	if err != nil {
		return provider.CompanyInfo{}, err
	}
	if err := c.check("company info", symbol, body.QuoteSummary.Error); err != nil {
		return provider.CompanyInfo{}, err
	}
	if len(body.QuoteSummary.Result) == 0 {
		return provider.CompanyInfo{}, provider.NotFound(c.name, "company info", symbol)
	}

	r := body.QuoteSummary.Result[0]
	info := provider.CompanyInfo{
		Symbol:         provider.NormalizeSymbol(r.Price.Symbol),
		Name:           r.Price.LongName,
		Description:    r.AssetProfile.LongBusinessSummary,
		Exchange:       r.Price.ExchangeName,
		Currency:       r.Price.Currency,
		Country:        r.AssetProfile.Country,
		Sector:         r.AssetProfile.Sector,
		Industry:       r.AssetProfile.Industry,
		MarketCap:      r.Price.MarketCap.Raw,
		PERatio:        r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:      r.SummaryDetail.ForwardPE.Raw,
		PEGRatio:       r.DefaultKeyStatistics.PEGRatio.Raw,
		PriceToBook:    r.DefaultKeyStatistics.PriceToBook.Raw,
		EPS:            r.DefaultKeyStatistics.TrailingEPS.Raw,
		DividendYield:  r.SummaryDetail.DividendYield.Raw,
		ProfitMargin:   r.FinancialData.ProfitMargins.Raw,
		ReturnOnEquity: r.FinancialData.ReturnOnEquity.Raw,
		Beta:           r.SummaryDetail.Beta.Raw,
		Revenue:        r.FinancialData.TotalRevenue.Raw,
		Week52High:     r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		Week52Low:      r.SummaryDetail.FiftyTwoWeekLow.Raw,
		Source:         c.name,
	}
	if info.Symbol == "" {
		info.Symbol = provider.NormalizeSymbol(symbol)
	}
	if info.Name == "" {
		info.Name = r.Price.ShortName
	}
	if info.MarketCap == nil {
		info.MarketCap = r.SummaryDetail.MarketCap.Raw
	}
	return info, nil
}
