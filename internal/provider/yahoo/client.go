package yahoo

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"

	"github.com/verrerie/finx-sub000/internal/provider"
)

const (
	// DefaultName is the display name reported as the data source.
	DefaultName    = "Yahoo Finance"
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client serves quotes, fundamentals and history from Yahoo Finance. It
// needs no API key and implements provider.Provider and
// provider.HistoricalProvider.
type Client struct {
	name string
	http *resty.Client
	now  func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.http.SetBaseURL(strings.TrimRight(u, "/"))
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// WithClock replaces the time source used for ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(10*time.Second).
		SetHeaders(map[string]string{
			"Accept":          "application/json",
			"Accept-Encoding": "gzip, br",
			"User-Agent":      userAgent,
		}).
		OnAfterResponse(decompress)

	c := &Client{name: DefaultName, http: rc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// decompress inflates brotli and gzip bodies. Setting Accept-Encoding by
// hand disables the transport's own gzip handling, and resty may already
// have inflated a gzip body, so gzip is only decoded when the magic bytes
// are present.
func decompress(_ *resty.Client, resp *resty.Response) error {
	body := resp.Body()
	if len(body) == 0 {
		return nil
	}

	var reader io.Reader
	switch strings.ToLower(resp.Header().Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return nil
		}
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	default:
		return nil
	}

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	resp.SetBody(decompressed)
	return nil
}

// get fetches path and decodes the JSON body into out. A 404 is reported
// as provider.ErrNotFound.
func (c *Client) get(ctx context.Context, op, symbol, path string, query map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return &provider.Error{Provider: c.name, Op: op, Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return provider.NotFound(c.name, op, symbol)
	}
	if !resp.IsSuccess() {
		return provider.Errorf(c.name, op, "unexpected status code: %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return provider.Errorf(c.name, op, "decoding response: %w", err)
	}
	return nil
}

// apiError is the error object embedded in chart and quoteSummary bodies.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (c *Client) check(op, symbol string, e *apiError) error {
	if e == nil {
		return nil
	}
	if strings.EqualFold(e.Code, "Not Found") {
		return provider.NotFound(c.name, op, symbol)
	}
	return provider.Errorf(c.name, op, "%s: %s", e.Code, e.Description)
}
