// Package hfhub is a small HuggingFace Hub client covering what the toolchain
// needs: checking repositories, listing their files, downloading dataset
// shards, and uploading checkpoint files.
package hfhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the public HuggingFace Hub.
const DefaultEndpoint = "https://huggingface.co"

// RepoType distinguishes model and dataset repositories.
type RepoType string

const (
	RepoTypeModel   RepoType = "model"
	RepoTypeDataset RepoType = "dataset"
)

// apiPlural is the path segment the Hub API uses for a repo type.
func (t RepoType) apiPlural() string {
	if t == RepoTypeDataset {
		return "datasets"
	}
	return "models"
}

// resolvePrefix is the path prefix for resolve/ file URLs.
func (t RepoType) resolvePrefix() string {
	if t == RepoTypeDataset {
		return "datasets/"
	}
	return ""
}

// Client talks to a HuggingFace Hub endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different Hub endpoint, e.g. a test
// server or a private mirror.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithToken sets the bearer token for authenticated requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Hub client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 5 * time.Minute},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoFile is one entry in a repository tree listing.
type RepoFile struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	OID  string `json:"oid"`
}

// StatusError is a non-2xx Hub API response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub returned %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// RepoExists reports whether a repository exists and is accessible.
func (c *Client) RepoExists(ctx context.Context, repoType RepoType, repoID string) (bool, error) {
	u := fmt.Sprintf("%s/api/%s/%s", c.endpoint, repoType.apiPlural(), repoID)
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusUnauthorized:
		// The Hub hides private repos behind 401 for anonymous callers.
		return false, nil
	default:
		return false, newStatusError(resp, u)
	}
}

// ListFiles returns the recursive file listing of a repository revision.
func (c *Client) ListFiles(ctx context.Context, repoType RepoType, repoID, revision string) ([]RepoFile, error) {
	if revision == "" {
		revision = "main"
	}
	u := fmt.Sprintf("%s/api/%s/%s/tree/%s?recursive=true",
		c.endpoint, repoType.apiPlural(), repoID, url.PathEscape(revision))

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp, u)
	}

	var entries []RepoFile
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode tree listing: %w", err)
	}

	files := entries[:0]
	for _, entry := range entries {
		if entry.Type == "file" {
			files = append(files, entry)
		}
	}
	return files, nil
}

// do issues a request with auth and user-agent headers set.
func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "bertrun")
	return c.http.Do(req)
}

func newStatusError(resp *http.Response, u string) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, URL: u, Body: string(body)}
}
