// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus is the lifecycle state of a lobby. Transitions are monotonic:
// pending -> active -> closed|expired, or straight from pending to either
// terminal state (a lobby can be cancelled or expire before it ever
// activates). closed and expired are terminal.
type LobbyStatus string

const (
	LobbyPending LobbyStatus = "pending"
	LobbyActive  LobbyStatus = "active"
	LobbyClosed  LobbyStatus = "closed"
	LobbyExpired LobbyStatus = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s LobbyStatus) Terminal() bool {
	return s == LobbyClosed || s == LobbyExpired
}

// InvitationType governs how joining students are assigned to sessions.
// "order" fills sessions in creation order and auto-creates new ones;
// "manual_selection" requires the student to pick or create a session.
type InvitationType string

const (
	InviteOrder           InvitationType = "order"
	InviteManualSelection InvitationType = "manual_selection"
)

// LobbySettings holds the per-lobby assignment policy. MaxPlayers caps each
// session; MaxSessions optionally caps the lobby itself (0 means unlimited).
type LobbySettings struct {
	InvitationType InvitationType `json:"invitation_type"`
	MaxPlayers     int            `json:"max_players"`
	MaxSessions    int            `json:"max_sessions,omitempty"`
}

// Lobby represents one code-addressable container for a game's live play,
// with its activation window and capacity policy.
type Lobby struct {
	ID       uuid.UUID     `json:"id"`
	Code     string        `json:"lobby_code"`
	GameID   uuid.UUID     `json:"game_id"`
	Settings LobbySettings `json:"settings"`
	Status   LobbyStatus   `json:"status"`

	// Optional activation window. StartsAt nil means the lobby activates only
	// by explicit teacher action; EndsAt nil means it never expires.
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
