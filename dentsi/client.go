// Package dentsi is a client for the dental voice-agent demo backend.
//
// Reads go through a response cache and never fail: when the backend is
// unreachable or answers with something unusable the caller gets a fallback
// value flagged as such. Writes are never cached.
package dentsi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/briangreenhill/dentsi/cache"
)

const (
	DefaultBaseURL     = "https://dentcognit.abacusai.app"
	DefaultTimeout     = 10 * time.Second
	DefaultDemoTimeout = 30 * time.Second
	DefaultTTL         = 30 * time.Second

	userAgent = "dentsi-dashboard/1.0"

	// cap on how much of an error body ends up in a log line
	maxErrorBody = 512
)

// ErrRemoteUnavailable covers every way a backend call can fail: connection
// errors, timeouts, non-2xx statuses and bodies that are not the expected JSON.
var ErrRemoteUnavailable = errors.New("remote unavailable")

type Client struct {
	http    *http.Client
	baseURL *url.URL
	log     zerolog.Logger

	cache cache.Cache // optional; nil means no cache
	ttl   time.Duration

	timeout     time.Duration
	demoTimeout time.Duration

	flight singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithCache(cache cache.Cache, ttl time.Duration) Option {
	return func(c *Client) { c.cache, c.ttl = cache, ttl }
}

// WithTimeout sets the deadline for reads and ordinary writes
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDemoTimeout sets the deadline for demo conversation calls, which wait
// on the agent's language model
func WithDemoTimeout(d time.Duration) Option {
	return func(c *Client) { c.demoTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the backend at baseURL. An empty baseURL uses
// DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}

	c := &Client{
		http:        http.DefaultClient,
		baseURL:     u,
		log:         zerolog.Nop(),
		cache:       cache.NewMemoryCache(),
		ttl:         DefaultTTL,
		timeout:     DefaultTimeout,
		demoTimeout: DefaultDemoTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) newReq(ctx context.Context, method, p string, q map[string]string, body any) (*http.Request, error) {
	// p is already escaped; keep both forms so ids containing "/" stay one segment
	u := *c.baseURL
	u.RawPath = path.Join(u.EscapedPath(), p)
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, err
	}
	u.Path = unescaped
	qq := u.Query()
	for k, v := range q {
		if v != "" {
			qq.Set(k, v)
		}
	}
	u.RawQuery = qq.Encode()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends one request and returns the body of a 2xx response. Every failure
// is wrapped in ErrRemoteUnavailable.
func (c *Client) do(ctx context.Context, method, p string, q map[string]string, in any, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newReq(ctx, method, p, q, in)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s %s: %v", ErrRemoteUnavailable, method, p, err)
	}
	reqID := req.Header.Get("X-Request-ID")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRemoteUnavailable, method, p, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrRemoteUnavailable, method, p, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", p).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: %s %s: %s: %s", ErrRemoteUnavailable, method, p, resp.Status, string(body))
	}
	return body, nil
}
