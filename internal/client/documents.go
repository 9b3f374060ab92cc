package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize mirrors the server's upload limit so oversized files fail
// before any bytes are sent.
const MaxUploadSize = 10 * 1024 * 1024

var (
	ErrUnsupportedFile = errors.New("only PDF files are supported")
	ErrFileTooLarge    = errors.New("file size exceeds maximum limit")
)

// StatusResponse is the common envelope returned by upload, scrape, reset and
// status.
type StatusResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ServiceStatus is the typed view of the /status details.
type ServiceStatus struct {
	Status           string
	Message          string
	HasDocuments     bool
	DocumentCount    int
	IndexedDocuments []string
}

// SummaryResponse is the result of /summarize.
type SummaryResponse struct {
	Summary         string   `json:"summary"`
	WordCount       int      `json:"word_count"`
	SourceDocuments []string `json:"source_documents"`
}

// Upload sends a PDF to be extracted and indexed.
func (c *Client) Upload(ctx context.Context, path string) (*StatusResponse, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, ErrUnsupportedFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(pathUpload), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scrape asks the service to fetch rawURL and index its text.
func (c *Client) Scrape(ctx context.Context, rawURL string) (*StatusResponse, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: must be an absolute http(s) URL", rawURL)
	}

	req, err := c.newJSONRequest(ctx, pathScrape, map[string]string{"url": u.String()})
	if err != nil {
		return nil, err
	}

	var out StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports whether the service is up and what it has indexed.
func (c *Client) Status(ctx context.Context) (*ServiceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(pathStatus), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp StatusResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	status := &ServiceStatus{Status: resp.Status, Message: resp.Message}
	if has, ok := resp.Details["has_documents"].(bool); ok {
		status.HasDocuments = has
	}
	if count, ok := resp.Details["document_count"].(float64); ok {
		status.DocumentCount = int(count)
	}
	if docs, ok := resp.Details["indexed_documents"].([]any); ok {
		for _, d := range docs {
			if name, ok := d.(string); ok {
				status.IndexedDocuments = append(status.IndexedDocuments, name)
			}
		}
	}
	return status, nil
}

// Summarize asks for a summary of everything indexed, in roughly maxLength
// words.
func (c *Client) Summarize(ctx context.Context, maxLength int) (*SummaryResponse, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("max length %d must be positive", maxLength)
	}

	req, err := c.newJSONRequest(ctx, pathSummarize, map[string]int{"max_length": maxLength})
	if err != nil {
		return nil, err
	}

	var out SummaryResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset drops every indexed document on the server.
func (c *Client) Reset(ctx context.Context) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(pathReset), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
