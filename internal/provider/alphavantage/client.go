// Package alphavantage is a client for the Alpha Vantage query endpoint.
// Every function is a GET on the same URL selected by the "function"
// parameter; see https://www.alphavantage.co/documentation/.
package alphavantage

import (
	"errors"
	"net/http"
	"net/url"
)

const baseURL = "https://www.alphavantage.co/query"

// ErrMissingKey is returned by NewClient when no API key is given.
var ErrMissingKey = errors.New("alphavantage: missing API key")

// HTTPClient sends the vendor requests. *http.Client and *httpx.Client
// satisfy it.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	endpoint   string
	httpClient HTTPClient
	header     http.Header
	// params go on every request; the key travels as "apikey".
	params url.Values
}

type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
// Empty keeps the public one.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.endpoint = u
		}
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader merges header into every request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient returns a client authenticated with key.
func NewClient(key string, options ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	c := &Client{
		endpoint:   baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		params:     url.Values{"apikey": {key}},
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}
