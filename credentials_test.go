package enphase

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewCredentialsValidation(t *testing.T) {
	if _, err := NewCredentials("", "secret"); err == nil {
		t.Fatalf("empty identifier must be rejected")
	}
	if _, err := NewCredentials("user@example.com", ""); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
	creds, err := NewCredentials("user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	if creds.Identifier() != "user@example.com" || creds.Secret() != "hunter2" {
		t.Fatalf("fields not preserved")
	}
}

func TestCredentialsRedaction(t *testing.T) {
	creds, err := NewCredentials("user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	for _, repr := range []string{
		creds.String(),
		fmt.Sprintf("%v", creds),
		fmt.Sprintf("%+v", creds),
		fmt.Sprintf("%#v", creds),
		fmt.Sprintf("%s", creds),
	} {
		if strings.Contains(repr, "hunter2") {
			t.Fatalf("secret leaked: %s", repr)
		}
	}
}

func TestCredentialsZero(t *testing.T) {
	var creds Credentials
	if !creds.Zero() {
		t.Fatalf("zero value should report Zero")
	}
	if creds.String() != "(unset)" {
		t.Fatalf("unexpected zero representation: %s", creds.String())
	}
}
