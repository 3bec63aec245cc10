package session

import (
	"os"
	"strings"
)

// EnvSessionID is the environment fallback for the session token when the
// launch flag is not set.
const EnvSessionID = "SHUTTLE_SESSION"

// Identity is the correlation token pairing this process with one peer.
// It is resolved once at startup and immutable for the process lifetime.
type Identity struct {
	ID  string
	PID int
}

// Resolve determines the session identity from the launch flag value,
// falling back to the SHUTTLE_SESSION environment variable. An empty
// result is a valid degraded state, not an error: requests still flow but
// may be consumed by any peer.
func Resolve(flagValue string) Identity {
	id := strings.TrimSpace(flagValue)
	if id == "" {
		id = strings.TrimSpace(os.Getenv(EnvSessionID))
	}
	return Identity{ID: id, PID: os.Getpid()}
}

// Degraded reports whether no session token was supplied at launch.
func (i Identity) Degraded() bool {
	return i.ID == ""
}
