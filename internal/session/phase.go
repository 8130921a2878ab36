package session

import "fmt"

// Phase is the session lifecycle state. The only legal transitions are
// Bootstrapping → {Authenticated, Anonymous}, Authenticated → Anonymous
// (logout or validation failure) and Anonymous → Authenticated (login).
// Token refresh, if the backend ever does it, is invisible to callers.
type Phase int

const (
	// Bootstrapping is the initial state while the persisted token, if any,
	// is being validated.
	Bootstrapping Phase = iota

	// Anonymous means no validated identity is held.
	Anonymous

	// Authenticated means both a token and its validated identity are held.
	Authenticated
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case Bootstrapping:
		return "Bootstrapping"
	case Anonymous:
		return "Anonymous"
	case Authenticated:
		return "Authenticated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}
