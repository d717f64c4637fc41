// Package enphase holds the shared value objects and error taxonomy for the
// Entrez cloud token service client and the Envoy local gateway client.
//
// The two clients are deliberately split: entrez.Client knows account
// credentials and mints device-scoped tokens, envoy.Client knows a gateway
// address and consumes tokens. They share nothing but the immutable Token
// defined here. Renewal is always caller-driven: when a gateway call reports
// an expired token, the caller mints a fresh one through entrez and calls
// envoy.Client.Authenticate again.
//
//	creds, _ := enphase.NewCredentials("user@example.com", "secret")
//	cloud := entrez.New()
//	if _, err := cloud.Login(ctx, creds); err != nil { ... }
//	tok, err := cloud.GenerateToken(ctx, "my site", "121212121212", true)
//	if err != nil { ... }
//
//	gw := envoy.New("envoy.local")
//	if _, err := gw.Authenticate(ctx, tok); err != nil { ... }
//	prod, err := gw.Production(ctx)
package enphase
