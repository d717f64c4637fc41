package enphase

import "errors"

// Credentials is an identifier/secret pair: a cloud account email and
// password, or a local gateway username and password. The secret is redacted
// from every printable representation.
type Credentials struct {
	identifier string
	secret     string
}

// NewCredentials builds Credentials, rejecting empty fields eagerly.
func NewCredentials(identifier, secret string) (Credentials, error) {
	if identifier == "" {
		return Credentials{}, errors.New("credentials: identifier must not be empty")
	}
	if secret == "" {
		return Credentials{}, errors.New("credentials: secret must not be empty")
	}
	return Credentials{identifier: identifier, secret: secret}, nil
}

// Identifier returns the account identifier (email or username).
func (c Credentials) Identifier() string { return c.identifier }

// Secret returns the secret in the clear. Only the component that
// authenticates with these credentials should call this.
func (c Credentials) Secret() string { return c.secret }

// Zero reports whether the credentials are unset.
func (c Credentials) Zero() bool { return c.identifier == "" && c.secret == "" }

// String redacts the secret.
func (c Credentials) String() string {
	if c.Zero() {
		return "(unset)"
	}
	return c.identifier + ":[REDACTED]"
}

// GoString redacts the secret from %#v output as well.
func (c Credentials) GoString() string {
	return "enphase.Credentials{identifier: " + c.identifier + ", secret: [REDACTED]}"
}
