package envoy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	enphase "enphase-go"
	"enphase-go/internal/httpc"
)

// excerptLimit bounds the body excerpt carried in RequestError.
const excerptLimit = 200

// retryInitialInterval seeds the backoff before the single retry of an
// idempotent read.
const retryInitialInterval = 250 * time.Millisecond

var payloadValidator = validator.New()

// Endpoint describes one logical gateway call: method, path, optional body,
// and whether the operation is idempotent. Only idempotent endpoints are
// ever retried, and then at most once.
type Endpoint struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Idempotent  bool
}

// Call executes one endpoint against the client's active binding and decodes
// the response into T. It is the uniform execution path every facade method
// uses; new endpoints need only an Endpoint descriptor and a payload type.
//
// Classification:
//   - 2xx: JSON-decode into T (unknown fields ignored, missing required
//     fields are a DecodeError). An empty body yields the zero T.
//   - 401/403: the binding is marked stale and AuthTokenExpired is returned.
//     No internal retry — renewal needs cloud credentials this client does
//     not hold.
//   - 5xx and transport failures: TransportError; one backoff retry for
//     idempotent endpoints, none otherwise.
//   - other 4xx: RequestError with a bounded body excerpt, not retriable.
//
// Call holds no mutable state of its own, so concurrent reads may share one
// binding safely.
func Call[T any](ctx context.Context, c *Client, ep Endpoint) (T, error) {
	var zero T

	b := c.binding.Load()
	if b == nil {
		return zero, &enphase.AuthError{Kind: enphase.AuthNotAuthenticated, Message: "authenticate before calling endpoints"}
	}
	return CallWith[T](ctx, c, b, ep)
}

// CallWith executes one endpoint against an explicit binding. Bindings from
// earlier Authenticate calls stay usable here until the gateway rejects
// them.
func CallWith[T any](ctx context.Context, c *Client, b *Binding, ep Endpoint) (T, error) {
	var zero T

	if b.Stale() {
		return zero, &enphase.AuthError{Kind: enphase.AuthTokenExpired, Message: "binding is stale; re-authenticate with a fresh token"}
	}

	reqID := uuid.NewString()
	attempts := 1
	if ep.Idempotent {
		attempts = 2
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := bo.NextBackOff()
			c.log.Debug("retrying idempotent call",
				zap.String("request_id", reqID),
				zap.String("path", ep.Path),
				zap.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				return zero, &enphase.TransportError{Kind: enphase.TransportTimeout, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		v, retriable, err := roundTrip[T](ctx, c, b, ep, reqID)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retriable {
			return zero, err
		}
	}
	return zero, lastErr
}

// roundTrip performs a single attempt and reports whether its failure may be
// retried.
func roundTrip[T any](ctx context.Context, c *Client, b *Binding, ep Endpoint, reqID string) (T, bool, error) {
	var zero T

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, false, &enphase.TransportError{Kind: enphase.TransportTimeout, Err: err}
		}
	}

	var body io.Reader
	if len(ep.Body) > 0 {
		body = bytes.NewReader(ep.Body)
	}
	req, err := http.NewRequestWithContext(ctx, ep.Method, b.host+ep.Path, body)
	if err != nil {
		return zero, false, fmt.Errorf("envoy: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token.Raw())
	req.Header.Set("User-Agent", httpc.UserAgent)
	req.Header.Set("Accept", "application/json")
	if ep.ContentType != "" {
		req.Header.Set("Content-Type", ep.ContentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return zero, true, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, true, &enphase.TransportError{Kind: enphase.TransportConnectionFailed, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		b.markStale()
		c.log.Debug("gateway rejected bound token",
			zap.String("request_id", reqID),
			zap.String("path", ep.Path),
			zap.Int("status", resp.StatusCode),
		)
		return zero, false, &enphase.AuthError{Kind: enphase.AuthTokenExpired, Message: "gateway no longer accepts the bound token"}

	case resp.StatusCode >= 500:
		return zero, true, &enphase.TransportError{Kind: enphase.TransportRetriable, Status: resp.StatusCode}

	case resp.StatusCode >= 400:
		return zero, false, &enphase.RequestError{Status: resp.StatusCode, Excerpt: excerpt(raw)}
	}

	if len(raw) == 0 {
		// 204-style responses carry no payload.
		return zero, false, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, &enphase.DecodeError{Reason: "response does not match expected schema", Err: err}
	}
	if err := validatePayload(v); err != nil {
		return zero, false, &enphase.DecodeError{Reason: "required fields missing from response", Err: err}
	}
	return v, false, nil
}

// validatePayload enforces required-field tags on decoded struct payloads
// (and element-wise on slices of structs).
func validatePayload(v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		return payloadValidator.Struct(v)
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if rv.Index(i).Kind() != reflect.Struct {
				return nil
			}
			if err := payloadValidator.Struct(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &enphase.TransportError{Kind: enphase.TransportTimeout, Err: err}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &enphase.TransportError{Kind: enphase.TransportTimeout, Err: err}
	}
	return &enphase.TransportError{Kind: enphase.TransportConnectionFailed, Err: err}
}

func excerpt(body []byte) string {
	if len(body) > excerptLimit {
		body = body[:excerptLimit]
	}
	return string(body)
}
