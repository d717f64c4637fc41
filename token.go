package enphase

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Token is an immutable, device-and-site-scoped bearer credential for local
// gateway requests. Expiry is normalized from the JWT exp/iat claims when the
// raw token carries them; a token without an exp claim is treated as
// non-expiring and its lifetime is the caller's to manage. A Token is never
// mutated, only replaced wholesale on renewal.
type Token struct {
	raw          string
	siteID       string
	deviceSerial string
	issuedAt     time.Time
	expiresAt    *time.Time
	commissioned bool
}

// NewToken wraps a raw bearer string issued for the given site and device.
// The raw string is decoded as a JWT without signature verification (the
// client holds no verification key; the gateway does) purely to extract the
// issued-at and expiry claims. Opaque non-JWT tokens are accepted and treated
// as non-expiring.
func NewToken(raw, siteID, deviceSerial string, commissioned bool) (Token, error) {
	if raw == "" {
		return Token{}, errors.New("token: raw token must not be empty")
	}
	tok := Token{
		raw:          raw,
		siteID:       siteID,
		deviceSerial: deviceSerial,
		issuedAt:     time.Now().UTC(),
		commissioned: commissioned,
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		// Not a decodable JWT: keep it as an opaque non-expiring token.
		return tok, nil
	}
	if claims.IssuedAt != nil {
		tok.issuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		if !exp.After(tok.issuedAt) {
			return Token{}, fmt.Errorf("token: expiry %s is not after issue time %s", exp, tok.issuedAt)
		}
		tok.expiresAt = &exp
	}
	return tok, nil
}

// RestoreToken rebuilds a Token from previously persisted fields without
// re-reading claims. The expiry invariant still holds.
func RestoreToken(raw, siteID, deviceSerial string, issuedAt time.Time, expiresAt *time.Time, commissioned bool) (Token, error) {
	if raw == "" {
		return Token{}, errors.New("token: raw token must not be empty")
	}
	if expiresAt != nil && !expiresAt.After(issuedAt) {
		return Token{}, fmt.Errorf("token: expiry %s is not after issue time %s", expiresAt, issuedAt)
	}
	var exp *time.Time
	if expiresAt != nil {
		e := expiresAt.UTC()
		exp = &e
	}
	return Token{
		raw:          raw,
		siteID:       siteID,
		deviceSerial: deviceSerial,
		issuedAt:     issuedAt.UTC(),
		expiresAt:    exp,
		commissioned: commissioned,
	}, nil
}

// Raw returns the opaque bearer string.
func (t Token) Raw() string { return t.raw }

// SiteID returns the site the token was scoped to.
func (t Token) SiteID() string { return t.siteID }

// DeviceSerial returns the device serial the token was scoped to.
func (t Token) DeviceSerial() string { return t.deviceSerial }

// IssuedAt returns when the token was issued.
func (t Token) IssuedAt() time.Time { return t.issuedAt }

// ExpiresAt returns the expiry and true, or a zero time and false for a
// non-expiring token.
func (t Token) ExpiresAt() (time.Time, bool) {
	if t.expiresAt == nil {
		return time.Time{}, false
	}
	return *t.expiresAt, true
}

// Commissioned reports whether the token was requested for a commissioned
// device.
func (t Token) Commissioned() bool { return t.commissioned }

// Zero reports whether the token is unset.
func (t Token) Zero() bool { return t.raw == "" }

// Expired reports whether the token is past its expiry at the given instant.
// Non-expiring tokens never report expired.
func (t Token) Expired(now time.Time) bool {
	if t.expiresAt == nil {
		return false
	}
	return !now.Before(*t.expiresAt)
}

// Fresh reports whether the token can still be presented at the given
// instant.
func (t Token) Fresh(now time.Time) bool { return !t.Zero() && !t.Expired(now) }

// TTL returns the remaining lifetime at the given instant. Non-expiring
// tokens report a zero duration and false.
func (t Token) TTL(now time.Time) (time.Duration, bool) {
	if t.expiresAt == nil {
		return 0, false
	}
	d := t.expiresAt.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// String redacts the bearer string; only scoping metadata is shown.
func (t Token) String() string {
	exp := "never"
	if t.expiresAt != nil {
		exp = t.expiresAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("Token(site=%s serial=%s expires=%s)", t.siteID, t.deviceSerial, exp)
}
