// Package depot provides a typed client for the Depot artifact
// service, a content-addressed store where artifacts are identified by
// their SHA-256 digest.
//
// The package layers a small execution stack: package apierr turns
// HTTP responses into typed failures, package retry decides whether
// and when a failed request is resent, package request runs a single
// request through that loop, and package batch fans out many requests
// under a concurrency cap. Client wires the stack to the service's
// endpoints.
package depot

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avosk/go-depot/batch"
	"github.com/avosk/go-depot/request"
	"github.com/avosk/go-depot/retry"
)

// Depot API endpoints, relative to Config.BaseURL.
const (
	statusPath    = "api/v1/status"
	artifactsPath = "api/v1/artifacts"
	contentPath   = "content"
)

// headerAPIKey carries the API key on every request.
const headerAPIKey = "X-API-Key"

// hashHexLen is the length of a hex-encoded SHA-256 digest.
const hashHexLen = 64

// ErrInvalidHash reports an artifact hash that is not a hex-encoded
// SHA-256 digest. Hash arguments are checked before any request is
// sent.
var ErrInvalidHash = errors.New("invalid artifact hash")

// Status is the service health report from GET /api/v1/status.
type Status struct {
	Version   string `json:"version"`
	Healthy   bool   `json:"healthy"`
	Artifacts int64  `json:"artifacts"`
	UsedBytes int64  `json:"used_bytes"`
}

// Artifact is the metadata record for a stored artifact.
type Artifact struct {
	Hash        string            `json:"hash"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type"`
	CreatedAt   time.Time         `json:"created_at"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Client calls the Depot API. It is safe for concurrent use; all
// configuration is fixed at construction.
type Client struct {
	cfg      Config
	exec     *request.Executor
	logger   *slog.Logger
	observer request.Observer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client and its executor.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer for per-attempt callbacks, e.g.
// a metrics.Collector.
func WithObserver(o request.Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New validates cfg and builds a Client around it.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		logger:   slog.Default(),
		observer: request.NoopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient, err := request.NewHTTPClient(cfg.Timeouts, cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Jitter:     retry.DefaultJitter,
	}
	c.exec = request.New(httpClient, policy,
		request.WithTimeouts(cfg.Timeouts),
		request.WithLogger(c.logger),
		request.WithObserver(c.observer),
	)
	return c, nil
}

// Status fetches the service health report.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.getJSON(ctx, &s, statusPath); err != nil {
		return nil, err
	}
	return &s, nil
}

// ArtifactInfo fetches the metadata record for hash.
func (c *Client) ArtifactInfo(ctx context.Context, hash string) (*Artifact, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	var a Artifact
	if err := c.getJSON(ctx, &a, artifactsPath, hash); err != nil {
		return nil, err
	}
	return &a, nil
}

// Download fetches the content of hash. The payload body holds the
// artifact bytes; the Content-Type header survives in Payload.Header.
func (c *Client) Download(ctx context.Context, hash string) (*request.Payload, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	return c.get(ctx, artifactsPath, hash, contentPath)
}

// DownloadMany downloads every hash with at most parallel requests in
// flight and returns one result per hash. Individual download failures
// land in the result map; the returned error is reserved for invalid
// arguments. All hashes are validated before any request is sent, so a
// single malformed hash fails the whole call rather than surfacing as
// a per-item result. parallel < 1 selects Config.Parallel.
func (c *Client) DownloadMany(ctx context.Context, hashes []string, parallel int) (map[string]batch.Result, error) {
	for _, h := range hashes {
		if err := validateHash(h); err != nil {
			return nil, err
		}
	}
	if parallel < 1 {
		parallel = c.cfg.Parallel
	}

	c.logger.Debug("Starting bulk download", "count", len(hashes), "parallel", parallel)
	return batch.Run(ctx, hashes, c.Download, parallel)
}

// get executes a GET against the endpoint path assembled from parts.
func (c *Client) get(ctx context.Context, parts ...string) (*request.Payload, error) {
	u, err := url.JoinPath(c.cfg.BaseURL, parts...)
	if err != nil {
		return nil, fmt.Errorf("build request URL: %w", err)
	}
	spec := request.Spec{
		Method: http.MethodGet,
		URL:    u,
		Header: c.header(),
	}
	return c.exec.Execute(ctx, spec)
}

// getJSON executes a GET and decodes the payload body into out.
func (c *Client) getJSON(ctx context.Context, out any, parts ...string) error {
	payload, err := c.get(ctx, parts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", parts[0], err)
	}
	return nil
}

// header builds the common request headers.
func (c *Client) header() http.Header {
	if c.cfg.APIKey == "" {
		return nil
	}
	h := make(http.Header)
	h.Set(headerAPIKey, c.cfg.APIKey)
	return h
}

// validateHash rejects anything that is not a hex-encoded SHA-256
// digest. Both letter cases are accepted.
func validateHash(hash string) error {
	if len(hash) != hashHexLen {
		return fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidHash, hash, len(hash), hashHexLen)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidHash, hash)
	}
	return nil
}
