// internal/lobby/lifecycle.go
package lobby

import (
	"time"

	"github.com/classcast/lobbyd/internal/models"
)

// IsJoinable reports whether a lobby accepts joins right now: it must be
// active and inside its window. Callers re-evaluate this on every join
// attempt rather than caching it, so a scheduler transition racing the join
// can never admit a participant to an expired lobby.
func IsJoinable(l models.Lobby, now time.Time) bool {
	if l.Status != models.LobbyActive {
		return false
	}
	if l.EndsAt != nil && !now.Before(*l.EndsAt) {
		return false
	}
	return true
}

// Status transitions below are idempotent and monotonic: each returns true
// only when it changed the lobby, and none ever moves a lobby backwards or
// out of a terminal state.

// activate promotes pending -> active. Assumes boundary is held.
func activate(l *models.Lobby) bool {
	if l.Status != models.LobbyPending {
		return false
	}
	l.Status = models.LobbyActive
	return true
}

// close moves pending/active -> closed and is applied ahead of expiry:
// when a teacher close and a scheduled expire land on the same tick, closed
// wins. Closing from pending is deliberately allowed so an owner can cancel
// a lobby that never activated. Assumes boundary is held.
func closeLobby(l *models.Lobby) bool {
	if l.Status.Terminal() {
		return false
	}
	l.Status = models.LobbyClosed
	return true
}

// expire moves pending/active -> expired when the window has ended.
// Assumes boundary is held.
func expire(l *models.Lobby) bool {
	if l.Status.Terminal() {
		return false
	}
	l.Status = models.LobbyExpired
	return true
}

// windowTransition computes which scheduled transition (if any) applies at
// the given instant. Expiry is checked first so a window that opened and
// closed between ticks goes straight to expired rather than activating.
func windowTransition(l models.Lobby, now time.Time) (to models.LobbyStatus, ok bool) {
	if l.Status.Terminal() {
		return "", false
	}
	if l.EndsAt != nil && !now.Before(*l.EndsAt) {
		return models.LobbyExpired, true
	}
	if l.Status == models.LobbyPending && l.StartsAt != nil && !now.Before(*l.StartsAt) {
		return models.LobbyActive, true
	}
	return "", false
}
