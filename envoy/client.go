// Package envoy is the client for the Envoy local gateway: token binding,
// telemetry reads, and power-state control.
//
// The client consumes tokens minted by the entrez package but knows nothing
// about how they are produced. When the gateway stops accepting the bound
// token the client reports enphase.AuthTokenExpired and waits for the caller
// to authenticate again with a fresh token; it never renews on its own.
package envoy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	enphase "enphase-go"
	"enphase-go/internal/config"
	"enphase-go/internal/httpc"
	"enphase-go/internal/logx"
)

// Client talks to one Envoy gateway over the local network.
type Client struct {
	hc        *http.Client
	baseURL   string
	limiter   *rate.Limiter
	log       *logx.Logger
	timeout   time.Duration
	verifyTLS bool

	binding atomic.Pointer[Binding]
	now     func() time.Time // test hook
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient supplies a custom HTTP client. The caller is responsible
// for TLS settings; Envoy units present self-signed certificates.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout bounds each request round-trip. Ignored when WithHTTPClient is
// also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit throttles requests to the gateway. Envoy firmware drops
// connections from aggressive pollers; a modest limit keeps long-running
// collectors healthy.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithTLSVerification re-enables certificate verification for gateways
// behind a real certificate.
func WithTLSVerification() Option {
	return func(c *Client) { c.verifyTLS = true }
}

// New creates a client for the gateway at the given host (hostname or IP;
// HTTPS is assumed).
func New(host string, opts ...Option) *Client {
	c := &Client{
		baseURL: "https://" + strings.TrimRight(host, "/"),
		log:     logx.GetScope("envoy"),
		timeout: httpc.DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = httpc.NewGateway(c.timeout, !c.verifyTLS)
	}
	return c
}

// NewFromEnv creates a client from the ENVOY_* configuration values
// (ENVOY_HOST is required; ENVOY_INSECURE_TLS and HTTP_TIMEOUT_SECONDS are
// honored).
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg := config.Load()
	if cfg.Envoy.Host == "" {
		return nil, errors.New("envoy: ENVOY_HOST is not set")
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	base := []Option{WithHTTPClient(httpc.NewGateway(timeout, cfg.Envoy.InsecureTLS))}
	return New(cfg.Envoy.Host, append(base, opts...)...), nil
}

// Authenticate validates the token against the gateway and atomically
// installs a new binding. An already-expired token fails fast with
// AuthTokenExpired before any network activity. Each successful call returns
// a distinct Binding; the previous one remains readable by in-flight
// requests until they finish.
func (c *Client) Authenticate(ctx context.Context, tok enphase.Token) (*Binding, error) {
	if tok.Zero() {
		return nil, &enphase.AuthError{Kind: enphase.AuthNotAuthenticated, Message: "token is unset"}
	}
	if tok.Expired(c.now()) {
		c.log.Debug("token already expired, skipping verification", zap.Stringer("token", tok))
		return nil, &enphase.AuthError{Kind: enphase.AuthTokenExpired, Message: "token expired before binding"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/check_jwt", nil)
	if err != nil {
		return nil, &enphase.AuthError{Kind: enphase.AuthNetwork, Message: "building verification request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Raw())
	req.Header.Set("User-Agent", httpc.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &enphase.AuthError{Kind: enphase.AuthNetwork, Message: "gateway verification failed", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Valid token") {
		return nil, &enphase.AuthError{
			Kind:    enphase.AuthRejected,
			Message: fmt.Sprintf("gateway rejected token (status %d)", resp.StatusCode),
		}
	}

	b := &Binding{host: c.baseURL, token: tok, boundAt: c.now().UTC()}
	c.binding.Store(b)
	c.log.Debug("token bound", zap.String("host", b.host), zap.Stringer("token", tok))
	return b, nil
}

// Binding returns the active binding, or nil before the first successful
// Authenticate.
func (c *Client) Binding() *Binding {
	return c.binding.Load()
}
