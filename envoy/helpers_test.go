package envoy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	enphase "enphase-go"
)

// newGateway starts a TLS test server (self-signed, like a real Envoy) and
// returns a client pointed at it plus a request counter.
func newGateway(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "https://")
	return New(host, opts...), &calls
}

// authOK answers the verification endpoint and delegates everything else.
func authOK(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/check_jwt" {
			w.Write([]byte("Valid token"))
			return
		}
		next(w, r)
	}
}

func freshToken(t *testing.T) enphase.Token {
	t.Helper()
	tok, err := enphase.NewToken("opaque-test-token", "my site", "121212121212", true)
	require.NoError(t, err)
	return tok
}

func expiredToken(t *testing.T) enphase.Token {
	t.Helper()
	issued := time.Now().Add(-2 * time.Hour)
	expiry := time.Now().Add(-time.Hour)
	tok, err := enphase.RestoreToken("expired-test-token", "my site", "121212121212", issued, &expiry, true)
	require.NoError(t, err)
	return tok
}

func authenticate(t *testing.T, c *Client, tok enphase.Token) *Binding {
	t.Helper()
	b, err := c.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	return b
}
