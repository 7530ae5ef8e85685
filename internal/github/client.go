// package github integrates with the GitHub REST and GraphQL APIs to build
// the chart and milestone sections of generated reports. All fetch failures
// are surfaced as errors so callers can omit the affected section.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const (
	defaultAPIBase = "https://api.github.com"

	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// Client is a thin GitHub API client with retries and exponential backoff.
// A 401 aborts retries immediately; 403/429 with an exhausted rate limit is
// reported as ErrRateLimited.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
	apiBase    string
	token      string

	mu         sync.Mutex
	titleCache map[string]string
}

var (
	ErrAuthFailed  = errors.New("github: authentication failed")
	ErrRateLimited = errors.New("github: rate limit exceeded")
)

func NewClient(log *slog.Logger, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		apiBase:    defaultAPIBase,
		token:      token,
		titleCache: map[string]string{},
	}
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// getJSON fetches a REST endpoint and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.apiBase + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		c.headers(req)

		return req, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

// graphql runs a GraphQL query and decodes the "data" object into out.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("github: failed to encode graphql request: %w", err)
	}

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/graphql", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		c.headers(req)
		req.Header.Set("Content-Type", "application/json")

		return req, nil
	})
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("github: failed to decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return fmt.Errorf("github: graphql error: %s", envelope.Errors[0].Message)
	}

	return json.Unmarshal(envelope.Data, out)
}

func (c *Client) doWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("github: failed to build request: %w", err)
		}

		body, retryAfter, err := c.do(req)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrRateLimited) {
			return nil, err
		}

		lastErr = err

		if attempt >= maxAttempts {
			break
		}

		delay := baseDelay * (1 << (attempt - 1))
		if retryAfter > delay {
			delay = retryAfter
		}

		c.log.Debug("retrying github request",
			slog.String("url", req.URL.String()),
			slog.Int("attempt", attempt),
			sl.Err(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("github: request failed after retries: %w", lastErr)
}

func (c *Client) do(req *http.Request) (body []byte, retryAfter time.Duration, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Error("github authentication failed", slog.String("url", req.URL.String()))

		return nil, 0, ErrAuthFailed

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			c.log.Warn("github rate limit exhausted",
				slog.String("url", req.URL.String()),
				slog.String("reset", resp.Header.Get("X-RateLimit-Reset")),
			)

			return nil, 0, ErrRateLimited
		}

		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("github: unexpected status %d", resp.StatusCode)

	case resp.StatusCode >= 400:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("github: unexpected status %d", resp.StatusCode)
	}

	return body, 0, nil
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
