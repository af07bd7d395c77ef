// internal/lobby/errors.go
package lobby

import (
	"errors"
	"fmt"
)

// Domain sentinel errors. Handlers map these to HTTP codes; callers branch
// with errors.Is. Capacity and not-found conditions are user-actionable and
// never retried server-side; ErrLockTimeout is transient and safe to retry.
var (
	ErrLobbyNotFound       = errors.New("lobby not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrLobbyNotJoinable    = errors.New("lobby is not joinable")
	ErrSessionNotJoinable  = errors.New("session is not joinable")
	ErrSessionFull         = errors.New("session is full")
	ErrLobbyFull           = errors.New("lobby has no open capacity")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrCodeSpaceExhausted  = errors.New("could not generate an unused lobby code")
	ErrLockTimeout         = errors.New("lobby is busy, try again")

	// ErrSessionRequired is the invalid-request case handlers single out with
	// its own response code: manual_selection joins must name a session.
	ErrSessionRequired = fmt.Errorf("%w: session_id is required for manual selection", ErrInvalidRequest)
)
