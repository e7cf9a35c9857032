// Package httpapi implements analytics.API against the CRM's REST analytics backend.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/unkn0wn-root/swrcache/analytics"
)

const (
	pathCompany = "/analytics/company-performance"
	pathPending = "/analytics/pending-matches"
	pathBrokers = "/analytics/broker-rankings"
	pathChurn   = "/analytics/churn"
	pathFunnel  = "/analytics/conversion-funnel"
	pathCapture = "/analytics/capture-stats"

	// error bodies are truncated to this many bytes
	maxErrorBody = 4 << 10
)

// Error is a non-2xx response from the backend.
type Error struct {
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	header  http.Header
}

var _ analytics.API = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithBearerToken authenticates every request.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

func WithHeader(key, value string) Option { return func(c *Client) { c.header.Set(key, value) } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		header:  http.Header{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) CompanyPerformance(ctx context.Context, f analytics.Filters) (analytics.CompanyPerformance, error) {
	return get[analytics.CompanyPerformance](ctx, c, pathCompany, f)
}

func (c *Client) PendingMatches(ctx context.Context, f analytics.Filters) ([]analytics.PendingMatch, error) {
	return get[[]analytics.PendingMatch](ctx, c, pathPending, f)
}

func (c *Client) BrokerRankings(ctx context.Context, f analytics.Filters) ([]analytics.BrokerRanking, error) {
	return get[[]analytics.BrokerRanking](ctx, c, pathBrokers, f)
}

func (c *Client) ChurnAnalysis(ctx context.Context, f analytics.Filters) (analytics.ChurnAnalysis, error) {
	return get[analytics.ChurnAnalysis](ctx, c, pathChurn, f)
}

func (c *Client) ConversionFunnel(ctx context.Context, f analytics.Filters) (analytics.ConversionFunnel, error) {
	return get[analytics.ConversionFunnel](ctx, c, pathFunnel, f)
}

func (c *Client) CaptureStats(ctx context.Context, f analytics.Filters) (analytics.CaptureStats, error) {
	return get[analytics.CaptureStats](ctx, c, pathCapture, f)
}

func get[T any](ctx context.Context, c *Client, path string, f analytics.Filters) (T, error) {
	var out T

	url := c.baseURL + path
	if q := f.Query().Encode(); q != "" {
		url += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, &Error{Path: path, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%s: malformed response: %w", path, err)
	}
	return out, nil
}

// errorMessage pulls a human-readable message out of an error body:
// {"message": ...}, {"error": ...} or the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
