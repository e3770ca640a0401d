// internal/adapter/upstream/http.go

// Package upstream holds the HTTP plumbing shared by the collector and
// article adapters.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserAgent is sent with every upstream request
const UserAgent = "trendwise/1.0"

// DefaultTimeout bounds upstream calls when no client is supplied
const DefaultTimeout = 10 * time.Second

// StatusError is returned when an upstream answers with a non-2xx status
type StatusError struct {
	API        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status code %d", e.API, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status code %d: %s", e.API, e.StatusCode, e.Body)
}

// Client returns c, or a fresh client with DefaultTimeout when c is nil
func Client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// Get performs a GET and returns the body of a 2xx response
func Get(ctx context.Context, client *http.Client, api, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", api, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", api, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", api, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{API: api, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

// GetJSON performs a GET and decodes the JSON body into v
func GetJSON(ctx context.Context, client *http.Client, api, url string, header http.Header, v any) error {
	body, err := Get(ctx, client, api, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", api, err)
	}
	return nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
