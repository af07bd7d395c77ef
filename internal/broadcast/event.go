// internal/broadcast/event.go
package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// Event type names, as delivered to clients. The "lobby:" prefix is part of
// the wire contract, independent of which channel carries the event.
const (
	EventLobbyActivated    = "lobby:lobby_activated"
	EventLobbyClosed       = "lobby:lobby_closed"
	EventLobbyExpired      = "lobby:lobby_expired"
	EventSessionCreated    = "lobby:session_created"
	EventParticipantJoined = "lobby:participant_joined"
	EventParticipantLeft   = "lobby:participant_left"
	EventSessionStarted    = "lobby:session_started"
	EventSessionFinished   = "lobby:session_finished"
)

// LobbyChannel, GameChannel and SessionChannel build the three channel
// families clients subscribe to.
func LobbyChannel(id uuid.UUID) string   { return "lobby:" + id.String() }
func GameChannel(id uuid.UUID) string    { return "game:" + id.String() }
func SessionChannel(id uuid.UUID) string { return "session:" + id.String() }

// Event is one ephemeral state-change message. Payload always carries the
// full updated entity snapshot, so duplicate or reordered delivery is safely
// ignorable by a reconciler applying latest-wins on entity id.
type Event struct {
	Channel   string      `json:"channel"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	EmittedAt time.Time   `json:"emitted_at"`

	// Origin identifies the engine instance that produced the event, so the
	// redis bridge can skip re-delivering its own publications.
	Origin string `json:"origin,omitempty"`
}

// Broadcaster fans an event out to every subscriber of its channel.
// Publication is fire-and-forget: implementations must never block the
// mutating request on subscriber delivery.
type Broadcaster interface {
	Publish(ev Event)
}
