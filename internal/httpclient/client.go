// Package httpclient provides the outbound HTTP client used by the provider
// clients: per-request timeouts, an optional rate limit, a cookie jar and a
// single bearer credential that is only ever sent to a trusted domain.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout applies when neither Config.Timeout nor the request
	// context sets a deadline.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent    = "satcore"
	defaultMaxRedirects = 10
)

// Config holds configuration for creating a Client.
type Config struct {
	// Timeout is applied when the request context has no deadline.
	Timeout time.Duration
	// UserAgent is added to every request that does not set one.
	UserAgent string
	// BearerToken is attached as "Authorization: Bearer <token>" to requests
	// whose host is TrustedDomain or one of its subdomains.
	BearerToken   string
	TrustedDomain string
	// RatePerSecond limits outbound requests when positive.
	RatePerSecond float64
	Burst         int
	MaxRedirects  int
	// Transport overrides http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
}

// Client is safe for concurrent use.
type Client struct {
	client        *http.Client
	timeout       time.Duration
	userAgent     string
	token         string
	trustedDomain string
	limiter       *rate.Limiter
}

// New creates a Client from cfg, applying defaults for zero values.
func New(cfg Config) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		timeout:       cfg.Timeout,
		userAgent:     cfg.UserAgent,
		token:         cfg.BearerToken,
		trustedDomain: normalizeHost(cfg.TrustedDomain),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			c.applyCredential(req)
			return nil
		},
	}
	return c, nil
}

// applyCredential sets or strips Authorization depending on req's host.
// net/http has already copied headers from the previous hop when this runs
// for a redirect, so both directions must be handled here.
func (c *Client) applyCredential(req *http.Request) {
	if c.token != "" && IsTrustedHost(req.URL.Host, c.trustedDomain) {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	req.Header.Del("Authorization")
}

// Do executes req under ctx. If ctx has no deadline, the client timeout is
// applied and released when the response body is closed. The caller must
// close the body if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	req = req.WithContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.applyCredential(req)

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// PostForm performs a POST with an url-encoded form body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(ctx, req)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// IsTrustedHost reports whether host equals domain or is a subdomain of it on
// whole labels. Ports and case are ignored; an empty domain trusts nothing.
func IsTrustedHost(host, domain string) bool {
	host, domain = normalizeHost(host), normalizeHost(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
