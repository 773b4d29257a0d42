package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
)

var (
	// ErrThrottled is returned when the API answers with a usage note
	// instead of data.
	ErrThrottled = errors.New("alphavantage: request throttled")
	// ErrNoData is returned when the API answers with an empty payload.
	ErrNoData = errors.New("alphavantage: no data")
)

// APIError is an error message returned in the response body.
type APIError struct {
	Function string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage %s: %s", e.Function, e.Message)
}

type envelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// query performs a GET for function with params and decodes the body into
// out. The API reports errors with HTTP 200, so the body is inspected for
// the error keys before decoding.
func (c *Client) query(ctx context.Context, function string, params map[string]string, out any) error {
	q := maps.Clone(c.params)
	q.Set("function", function)
	for k, v := range params {
		q.Set(k, v)
	}

	url := fmt.Sprintf("%s?%s", c.endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", function, err)
	}
	switch {
	case env.ErrorMessage != "":
		return &APIError{Function: function, Message: env.ErrorMessage}
	case env.Note != "":
		return fmt.Errorf("%w: %s", ErrThrottled, env.Note)
	case env.Information != "":
		return fmt.Errorf("%w: %s", ErrThrottled, env.Information)
	}

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", function, err)
	}
	return nil
}
