package envoy

import (
	"sync/atomic"
	"time"

	enphase "enphase-go"
)

// Binding associates one verified Token with one gateway address. The
// client's active binding is a single atomically-swappable pointer, so
// in-flight requests observe either the old or the new binding, never a torn
// one. A binding becomes stale when a request through it is answered with an
// authentication failure; staleness never self-heals — only a fresh
// Authenticate call produces a usable binding again.
type Binding struct {
	host    string
	token   enphase.Token
	boundAt time.Time
	stale   atomic.Bool
}

// Host returns the gateway host the token is bound to.
func (b *Binding) Host() string { return b.host }

// Token returns the bound token.
func (b *Binding) Token() enphase.Token { return b.token }

// BoundAt returns when the binding was established.
func (b *Binding) BoundAt() time.Time { return b.boundAt }

// Stale reports whether the gateway has rejected this binding's token. A
// stale binding surfaces AuthTokenExpired on every subsequent call so the
// owner of the cloud client can mint a new token and re-authenticate.
func (b *Binding) Stale() bool { return b.stale.Load() }

func (b *Binding) markStale() { b.stale.Store(true) }
