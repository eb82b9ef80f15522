// Package tinybird talks to the Tinybird Events API (click sink) and to
// published pipes (analytics queries) over HTTP with bearer tokens.
package tinybird

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tinybird %s: status %d: %s", e.Op, e.Status, e.Body)
}

type client struct {
	host  string
	token string
	http  *http.Client
}

func newClient(host, token string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return client{
		host:  strings.TrimRight(host, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

func (c client) configured() bool {
	return c.host != "" && c.token != ""
}

func (c client) do(ctx context.Context, op, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.host+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("tinybird %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tinybird %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}
