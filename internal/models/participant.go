// internal/models/participant.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one student or guest occupying a slot in exactly one session.
// Exactly one of UserID (registered account) or GuestToken (client-generated,
// ephemeral) identifies the person; rejoining with the same identity before
// leaving returns the existing membership.
type Participant struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"display_name"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	GuestToken  string     `json:"guest_token,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// IdentityKey collapses the user-or-guest identity pair into one comparable
// key for idempotent-rejoin lookups within a lobby.
func (p *Participant) IdentityKey() string {
	if p.UserID != nil {
		return "u:" + p.UserID.String()
	}
	return "g:" + p.GuestToken
}
