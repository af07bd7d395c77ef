// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session (room) inside a lobby.
type SessionStatus string

const (
	SessionOpen       SessionStatus = "open"
	SessionFull       SessionStatus = "full"
	SessionInProgress SessionStatus = "in_progress"
	SessionFinished   SessionStatus = "finished"
)

// Session is a capacity-bounded group of participants within a lobby; the
// unit that actually plays. Number is monotonic per lobby and assigned at
// creation for display ("Room 3").
type Session struct {
	ID           uuid.UUID      `json:"id"`
	LobbyID      uuid.UUID      `json:"lobby_id"`
	Number       int            `json:"session_number"`
	Status       SessionStatus  `json:"status"`
	Participants []*Participant `json:"participants"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Joinable reports whether the session accepts new participants in its
// current state. Capacity is checked separately against the lobby cap.
func (s *Session) Joinable() bool {
	return s.Status == SessionOpen
}

// Clone returns a deep copy safe to hand outside the per-lobby boundary.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Participants = make([]*Participant, len(s.Participants))
	for i, p := range s.Participants {
		pc := *p
		cp.Participants[i] = &pc
	}
	return &cp
}
