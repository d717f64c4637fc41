// Package httpc builds the two HTTP clients the library needs: a cloud
// client that carries session cookies, and a gateway client that tolerates
// the self-signed certificates Envoy units ship with.
package httpc

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// UserAgent identifies this library on the wire.
const UserAgent = "enphase-go/0.1.0"

// DefaultTimeout bounds every request round-trip unless the caller supplies
// a client of their own.
const DefaultTimeout = 30 * time.Second

// NewCloud returns an HTTP client with an in-memory cookie jar. The Entrez
// session lives entirely in cookies, so the jar is what "being logged in"
// means at the transport level.
func NewCloud(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// NewGateway returns an HTTP client for the local gateway. Certificate
// verification is skipped when insecure is set: Envoy devices present
// self-signed certificates and there is no CA to pin.
func NewGateway(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewJar returns a fresh in-memory cookie jar. Swapping the jar is how a
// cookie-backed session is discarded.
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(nil)
}

// EnsureJar attaches a cookie jar to a caller-supplied client that lacks
// one. Without a jar the cloud session cannot persist across calls.
func EnsureJar(c *http.Client) *http.Client {
	if c.Jar != nil {
		return c
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return c
	}
	c.Jar = jar
	return c
}
