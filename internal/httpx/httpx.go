// Package httpx provides the outbound HTTP client for vendor APIs.
package httpx

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultUserAgent is sent when a request carries no User-Agent of its own.
const DefaultUserAgent = "finx/1.0"

// redacted lists query parameters that never reach the logs.
var redacted = []string{"apikey", "api_key", "token"}

// Client wraps http.Client with default headers and request logging.
type Client struct {
	http      *http.Client
	userAgent string
	headers   http.Header
	log       logrus.FieldLogger
}

type Option func(*Client)

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader adds a header sent on every request that does not set it.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger logs each request at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(timeout time.Duration, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: timeout,
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		http:      &http.Client{Timeout: timeout, Transport: transport},
		userAgent: DefaultUserAgent,
		headers:   http.Header{},
		log:       discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do fills in default headers and sends req. The request context governs
// cancellation.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header[k] = v
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	entry := c.log.WithFields(logrus.Fields{
		"method":     req.Method,
		"url":        redact(req.URL),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Debug("upstream request failed")
		return nil, err
	}
	entry.WithField("status", res.StatusCode).Debug("upstream request")
	return res, nil
}

func redact(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, k := range redacted {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}
