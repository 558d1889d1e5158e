// Package github is a minimal client for the GitHub Actions artifacts
// API: listing the artifacts of a repository and downloading one
// artifact archive. It covers exactly the read-only surface needed to
// mirror a CI-produced artifact locally.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultAPIVersion is the REST API version sent with every request.
	DefaultAPIVersion = "2022-11-28"

	acceptHeader = "application/vnd.github+json"
)

// Client calls the GitHub Actions artifacts API.
//
// The zero-value configuration talks to the public API anonymously,
// which works for public repositories at reduced rate limits. Provide a
// token via WithToken for private repositories and higher limits.
type Client struct {
	baseURL    string
	apiVersion string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithBaseURL overrides the API endpoint. Useful for GitHub Enterprise
// installations and tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIVersion overrides the API version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets the HTTP client used for requests. This is where
// request timeouts belong; the default client imposes none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger. Logging is off by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// listResponse is the body of the artifact listing endpoint. The API
// returns more fields; only the ones selection needs are decoded.
type listResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

// ListArtifacts returns the first page of artifacts for owner/repo.
func (c *Client) ListArtifacts(ctx context.Context, owner, repo string) ([]Artifact, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/artifacts", c.baseURL, owner, repo)
	c.log().Debug("listing artifacts", "owner", owner, "repo", repo)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to list artifacts: %v", ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: could not list artifacts (%s); verify that the repository exists and the token is valid", ErrRequestFailed, resp.Status)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode artifact listing: %w", err)
	}

	c.log().Debug("listed artifacts", "count", len(body.Artifacts))
	return body.Artifacts, nil
}

// Download streams the archive at url, which should be an artifact's
// ArchiveDownloadURL. Redirects are followed, carrying the same
// headers. The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	c.log().Debug("downloading artifact archive", "url", url)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to download artifact: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: could not download artifact (%s); verify that the repository exists and the token is valid", ErrRequestFailed, resp.Status)
	}

	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", c.apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
