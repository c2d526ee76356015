// Package github fetches raw repository content over the unauthenticated
// raw-content endpoint.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://raw.githubusercontent.com"

// defaultTimeout bounds a single raw fetch; exceeding it fails the delivery.
const defaultTimeout = 30 * time.Second

// RawFile is the fetched content plus the metadata the AI call needs.
type RawFile struct {
	Path        string
	Data        []byte
	ContentType string
	Size        int
}

// Client fetches raw files from the configured repository.
type Client interface {
	FetchRaw(ctx context.Context, path string) (*RawFile, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the raw-content host.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	owner   string
	repo    string
	branch  string
	baseURL string
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient creates a raw-content client for one repository/branch.
func NewClient(owner, repo, branch string, opts ...Option) Client {
	c := &httpClient{
		owner:   owner,
		repo:    repo,
		branch:  branch,
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(5, 5),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchRaw(ctx context.Context, path string) (*RawFile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "github: rate limiter wait")
	}

	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.baseURL, c.owner, c.repo, c.branch, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "github: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "github: fetch %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("github: fetch %s: status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "github: read %s", path)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	zap.L().Debug("github: fetched raw file",
		zap.String("path", path),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)

	return &RawFile{
		Path:        path,
		Data:        data,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}
