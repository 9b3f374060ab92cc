// Package client talks to the document question-answering service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/markis/docqa/internal/config"
)

// Endpoints exposed by the service.
const (
	pathUpload      = "/upload"
	pathScrape      = "/scrape_and_index"
	pathStreamQuery = "/stream_query"
	pathSummarize   = "/summarize"
	pathReset       = "/reset"
	pathStatus      = "/status"
)

// APIError is a non-2xx response. Detail carries the server's "detail"
// message when the body had one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Detail)
}

// Client is safe for concurrent use, although the CLI runs one request at a
// time.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *log.Logger
}

// New builds a client for cfg.Server. A nil logger discards diagnostics.
func New(cfg *config.Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Server, "/"),
		timeout: cfg.RequestTimeout,
		http:    newHTTPClient(),
		logger:  logger,
	}
}

// newHTTPClient returns a client without an overall timeout: answer streams
// stay open as long as the server keeps writing. Plain request/response calls
// bound themselves with a context deadline instead.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
		DisableKeepAlives:  false,
		ForceAttemptHTTP2:  true,
	}

	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &http.Client{
		Transport: transport,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// newJSONRequest builds a POST carrying payload as JSON.
func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a JSON response into out, bounded by the
// configured request timeout.
func (c *Client) do(req *http.Request, out any) error {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "method", req.Method, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer c.closeBody(resp.Body)

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		c.logger.Debug("failed to close response body", "err", err)
	}
}

// checkStatus turns a non-2xx response into an *APIError, pulling the
// FastAPI-style {"detail": "..."} message out of the body when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var detail struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && len(detail.Detail) > 0 {
		var msg string
		if json.Unmarshal(detail.Detail, &msg) == nil {
			apiErr.Detail = msg
		} else {
			// Validation errors carry a list of objects.
			apiErr.Detail = string(detail.Detail)
		}
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}
