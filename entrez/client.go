// Package entrez is the client for the Enphase Entrez cloud service: account
// login and generation of device-scoped JWT tokens for Envoy gateways.
//
// The client holds the cloud session (a cookie-backed handle) internally.
// It never talks to a gateway; the only thing it hands out is the immutable
// enphase.Token, which the envoy package consumes.
package entrez

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	enphase "enphase-go"
	"enphase-go/internal/config"
	"enphase-go/internal/httpc"
	"enphase-go/internal/logx"
)

// DefaultBaseURL is the official Enphase Entrez service.
const DefaultBaseURL = "https://entrez.enphaseenergy.com"

// Session is the result of a successful login: an opaque handle plus the
// identity it authenticated as. The transport-level state (cookies) lives in
// the client's cookie jar; Session itself is read-only.
type Session struct {
	identity      string
	establishedAt time.Time
}

// Identity returns the account identifier the session authenticated as.
func (s *Session) Identity() string { return s.identity }

// EstablishedAt returns when the session was established.
func (s *Session) EstablishedAt() time.Time { return s.establishedAt }

// Client authenticates account credentials against the Entrez service and
// mints device-scoped tokens. A second Login replaces the prior session.
type Client struct {
	hc       *http.Client
	baseURL  string
	log      *logx.Logger
	validate *validator.Validate

	mu      sync.Mutex
	session *Session
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Entrez endpoint, e.g. a mock.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient supplies a custom HTTP client. A cookie jar is attached if
// the client has none, since the session is cookie-backed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = httpc.EnsureJar(hc) }
}

// New creates a client for the Entrez service.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		log:      logx.GetScope("entrez"),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		hc, err := httpc.NewCloud(httpc.DefaultTimeout)
		if err != nil {
			// cookiejar.New(nil) cannot fail, but keep the path honest.
			hc = &http.Client{Timeout: httpc.DefaultTimeout}
		}
		c.hc = hc
	}
	return c
}

// Login authenticates against the Entrez service and stores the session.
// A prior session, if any, is replaced; no logout is required first.
func (c *Client) Login(ctx context.Context, creds enphase.Credentials) (*Session, error) {
	if creds.Zero() {
		return nil, &enphase.AuthError{Kind: enphase.AuthMissingCredentials, Message: "credentials are unset"}
	}

	reqID := uuid.NewString()
	c.log.Debug("logging in", zap.String("request_id", reqID), zap.String("identity", creds.Identifier()))

	form := url.Values{
		"username": {creds.Identifier()},
		"password": {creds.Secret()},
		"authFlow": {"entrezSession"},
	}
	status, _, err := c.postForm(ctx, "/login", form)
	if err != nil {
		return nil, &enphase.AuthError{Kind: enphase.AuthNetwork, Message: "login request failed", Err: err}
	}

	switch {
	case status >= 200 && status < 300:
		// fall through to session creation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.log.Debug("login rejected", zap.String("request_id", reqID), zap.Int("status", status))
		return nil, &enphase.AuthError{Kind: enphase.AuthInvalidCredentials, Message: "cloud service rejected credentials"}
	default:
		return nil, &enphase.AuthError{Kind: enphase.AuthUnexpected, Status: status, Message: "login returned unexpected status"}
	}

	sess := &Session{identity: creds.Identifier(), establishedAt: time.Now().UTC()}
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	c.log.Debug("login succeeded", zap.String("request_id", reqID))
	return sess, nil
}

// LoginWithEnv behaves like Login, sourcing credentials from the
// ENTREZ_USERNAME and ENTREZ_PASSWORD configuration values (a .env file is
// honored when present).
func (c *Client) LoginWithEnv(ctx context.Context) (*Session, error) {
	cfg := config.Load()
	if cfg.Entrez.Username == "" || cfg.Entrez.Password == "" {
		return nil, &enphase.AuthError{
			Kind:    enphase.AuthMissingCredentials,
			Message: "ENTREZ_USERNAME and ENTREZ_PASSWORD must both be set",
		}
	}
	creds, err := enphase.NewCredentials(cfg.Entrez.Username, cfg.Entrez.Password)
	if err != nil {
		return nil, &enphase.AuthError{Kind: enphase.AuthMissingCredentials, Message: err.Error()}
	}
	return c.Login(ctx, creds)
}

// Session returns the active session, or nil when not logged in.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Logout discards the session. Subsequent GenerateToken calls fail with
// AuthNotAuthenticated until the next Login.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	// Drop session cookies so the old handle cannot be replayed.
	if jar, err := httpc.NewJar(); err == nil && c.hc != nil {
		c.hc.Jar = jar
	}
	c.log.Debug("session cleared")
}

// tokenRequest carries the mandatory scoping for a generated token; empty
// fields are a contract violation caught before any network activity.
type tokenRequest struct {
	SiteID       string `validate:"required"`
	DeviceSerial string `validate:"required"`
}

// GenerateToken requests a fresh token scoped to exactly one site and one
// device. It requires a prior successful Login. Tokens are never cached:
// each call yields a new one, and callers wanting reuse persist the returned
// Token themselves (see the tokencache package).
func (c *Client) GenerateToken(ctx context.Context, siteID, deviceSerial string, commissioned bool) (enphase.Token, error) {
	if err := c.validate.Struct(tokenRequest{SiteID: siteID, DeviceSerial: deviceSerial}); err != nil {
		return enphase.Token{}, fmt.Errorf("entrez: invalid token request: %w", err)
	}
	if c.Session() == nil {
		return enphase.Token{}, &enphase.AuthError{Kind: enphase.AuthNotAuthenticated, Message: "login required before generating tokens"}
	}

	reqID := uuid.NewString()
	c.log.Debug("generating token",
		zap.String("request_id", reqID),
		zap.String("site", siteID),
		zap.String("serial", deviceSerial),
		zap.Bool("commissioned", commissioned),
	)

	form := url.Values{
		"uncommissioned": {commissionedValue(commissioned)},
		"Site":           {normalizeSite(siteID)},
		"serialNum":      {deviceSerial},
	}
	status, body, err := c.postForm(ctx, "/entrez_tokens", form)
	if err != nil {
		return enphase.Token{}, &enphase.AuthError{Kind: enphase.AuthNetwork, Message: "token request failed", Err: err}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// The cloud session lapsed server-side; the caller must log in again.
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		return enphase.Token{}, &enphase.AuthError{Kind: enphase.AuthNotAuthenticated, Message: "cloud session no longer valid"}
	case status < 200 || status >= 300:
		return enphase.Token{}, &enphase.AuthError{Kind: enphase.AuthUnexpected, Status: status, Message: "token endpoint returned unexpected status"}
	}

	raw, err := extractToken(body)
	if err != nil {
		if !commissioned || mentionsCommissioning(body) {
			return enphase.Token{}, &enphase.AuthError{
				Kind:    enphase.AuthDeviceNotCommissioned,
				Message: fmt.Sprintf("no token issued for device %s", deviceSerial),
				Err:     err,
			}
		}
		return enphase.Token{}, &enphase.DecodeError{Reason: "token missing from response", Err: err}
	}

	tok, err := enphase.NewToken(raw, siteID, deviceSerial, commissioned)
	if err != nil {
		return enphase.Token{}, &enphase.DecodeError{Reason: "issued token is malformed", Err: err}
	}

	c.log.Debug("token generated", zap.String("request_id", reqID), zap.Stringer("token", tok))
	return tok, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", httpc.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

// normalizeSite lowercases the site name and joins words with '+', the shape
// the token form expects.
func normalizeSite(site string) string {
	return strings.ReplaceAll(strings.ToLower(site), " ", "+")
}

// commissionedValue maps the commissioned flag onto the form field the
// service defined. The field is named "uncommissioned" on the wire but takes
// "on" for commissioned devices; the name is the service's, not ours.
func commissionedValue(commissioned bool) string {
	if commissioned {
		return "on"
	}
	return "off"
}

// extractToken pulls the JWT out of the token page. The service returns HTML
// with the token inside <textarea id="JWTToken">...</textarea>.
func extractToken(body string) (string, error) {
	_, rest, ok := strings.Cut(body, `id="JWTToken"`)
	if !ok {
		return "", errors.New("JWTToken element not present")
	}
	_, rest, ok = strings.Cut(rest, ">")
	if !ok {
		return "", errors.New("JWTToken element not closed")
	}
	text, _, ok := strings.Cut(rest, "</textarea>")
	if !ok {
		return "", errors.New("JWTToken textarea not terminated")
	}
	token := strings.TrimSpace(text)
	if token == "" {
		return "", errors.New("JWTToken textarea is empty")
	}
	return token, nil
}

func mentionsCommissioning(body string) bool {
	return strings.Contains(strings.ToLower(body), "commission")
}
