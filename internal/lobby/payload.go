// internal/lobby/payload.go
package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/classcast/lobbyd/internal/models"
)

// SessionOccupancy is one row of the lobby participant summary: enough for a
// client to render room occupancy without fetching each session.
type SessionOccupancy struct {
	ID               uuid.UUID            `json:"id"`
	Number           int                  `json:"session_number"`
	Status           models.SessionStatus `json:"status"`
	ParticipantCount int                  `json:"participant_count"`
	Capacity         int                  `json:"capacity"`
}

// Summary aggregates lobby-wide occupancy. It rides on every lobby-channel
// event so reconcilers can apply latest-wins without an event log.
type Summary struct {
	LobbyID          uuid.UUID          `json:"lobby_id"`
	ParticipantCount int                `json:"participant_count"`
	SessionCount     int                `json:"session_count"`
	Sessions         []SessionOccupancy `json:"sessions"`
}

// Snapshot is the canonical full state of a lobby as returned by REST reads
// and join responses. Event consumers use the same shape for
// fetch-to-confirm.
type Snapshot struct {
	Lobby      models.Lobby      `json:"lobby"`
	Game       *models.Game      `json:"game,omitempty"`
	Sessions   []*models.Session `json:"sessions"`
	Summary    Summary           `json:"participantsSummary"`
	IsJoinable bool              `json:"is_joinable"`
}

// JoinResult is what a successful join or session creation hands back.
type JoinResult struct {
	Lobby       models.Lobby        `json:"lobby"`
	Session     *models.Session     `json:"session"`
	Participant *models.Participant `json:"participant"`
}

// EventPayload is the body of every published event: the full updated
// session (when one is in scope) plus the lobby summary, so any subscriber
// granularity receives a complete, idempotently-applicable snapshot.
type EventPayload struct {
	Lobby       models.Lobby        `json:"lobby"`
	Session     *models.Session     `json:"session,omitempty"`
	Participant *models.Participant `json:"participant,omitempty"`
	Summary     Summary             `json:"participantsSummary"`
}

// buildSummary computes the occupancy summary. Assumes boundary is held.
func buildSummary(rt *runtime) Summary {
	sum := Summary{
		LobbyID:      rt.lobby.ID,
		SessionCount: len(rt.sessions),
		Sessions:     make([]SessionOccupancy, 0, len(rt.sessions)),
	}
	for _, s := range rt.sessions {
		sum.ParticipantCount += len(s.Participants)
		sum.Sessions = append(sum.Sessions, SessionOccupancy{
			ID:               s.ID,
			Number:           s.Number,
			Status:           s.Status,
			ParticipantCount: len(s.Participants),
			Capacity:         rt.lobby.Settings.MaxPlayers,
		})
	}
	return sum
}

// buildSnapshot deep-copies the runtime into a Snapshot. Assumes boundary is
// held.
func buildSnapshot(rt *runtime, now time.Time) Snapshot {
	return Snapshot{
		Lobby:      rt.lobby,
		Sessions:   rt.cloneSessions(),
		Summary:    buildSummary(rt),
		IsJoinable: IsJoinable(rt.lobby, now),
	}
}
