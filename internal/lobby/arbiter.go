// internal/lobby/arbiter.go
package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/database"
	"github.com/classcast/lobbyd/internal/models"
)

// NewParticipant is the identity a client presents when joining. Exactly one
// of UserID or GuestToken must be set.
type NewParticipant struct {
	DisplayName string     `json:"display_name"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	GuestToken  string     `json:"guest_token,omitempty"`
}

func (p NewParticipant) validate() error {
	if n := len(p.DisplayName); n < 1 || n > 30 {
		return fmt.Errorf("%w: display_name must be 1-30 characters", ErrInvalidRequest)
	}
	hasUser := p.UserID != nil && *p.UserID != uuid.Nil
	hasGuest := p.GuestToken != ""
	if hasUser == hasGuest {
		return fmt.Errorf("%w: exactly one of user_id or guest_token is required", ErrInvalidRequest)
	}
	return nil
}

func (p NewParticipant) identityKey() string {
	if p.UserID != nil && *p.UserID != uuid.Nil {
		return "u:" + p.UserID.String()
	}
	return "g:" + p.GuestToken
}

// JoinByCode resolves a lobby by its typed code and, for order-policy
// lobbies, assigns the participant to the first session with room (creating
// one if every session is full). Manual-selection lobbies are resolved but
// not joined; the returned snapshot gives the client the rooms to pick from
// and result is nil.
func (e *Engine) JoinByCode(ctx context.Context, code string, p NewParticipant) (Snapshot, *JoinResult, error) {
	if err := p.validate(); err != nil {
		return Snapshot{}, nil, err
	}
	rt, ok := e.store.resolveByCode(code)
	if !ok {
		return Snapshot{}, nil, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return Snapshot{}, nil, err
	}
	defer rt.release()

	now := time.Now().UTC()
	if !IsJoinable(rt.lobby, now) {
		return Snapshot{}, nil, ErrLobbyNotJoinable
	}

	if rt.lobby.Settings.InvitationType == models.InviteManualSelection {
		// The student picks or creates a room in a follow-up call.
		return buildSnapshot(rt, now), nil, nil
	}

	res, err := e.joinLocked(rt, p, nil, now)
	if err != nil {
		return Snapshot{}, nil, err
	}
	return buildSnapshot(rt, now), res, nil
}

// Join attaches a participant to a lobby the client already resolved. Under
// manual_selection a session id is mandatory; under order it is optional and
// the first-with-room rule applies when absent.
func (e *Engine) Join(ctx context.Context, lobbyID uuid.UUID, p NewParticipant, sessionID *uuid.UUID) (*JoinResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return nil, err
	}
	defer rt.release()

	now := time.Now().UTC()
	if !IsJoinable(rt.lobby, now) {
		return nil, ErrLobbyNotJoinable
	}
	if sessionID == nil && rt.lobby.Settings.InvitationType == models.InviteManualSelection {
		return nil, ErrSessionRequired
	}
	return e.joinLocked(rt, p, sessionID, now)
}

// CreateSession explicitly opens a fresh room and joins the requester to it
// in one atomic step, so an empty-but-visible session can never race two
// creators. Permitted only under manual_selection.
func (e *Engine) CreateSession(ctx context.Context, lobbyID uuid.UUID, p NewParticipant) (*JoinResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return nil, err
	}
	defer rt.release()

	now := time.Now().UTC()
	if !IsJoinable(rt.lobby, now) {
		return nil, ErrLobbyNotJoinable
	}
	if rt.lobby.Settings.InvitationType != models.InviteManualSelection {
		return nil, fmt.Errorf("%w: explicit session creation requires manual_selection", ErrInvalidRequest)
	}

	// Rejoin before leave is idempotent even here: an existing membership is
	// returned instead of opening a second room for the same identity.
	if m, ok := rt.memberships[p.identityKey()]; ok {
		return e.existingMembership(rt, m)
	}

	if max := rt.lobby.Settings.MaxSessions; max > 0 && len(rt.sessions) >= max {
		return nil, ErrLobbyFull
	}

	s := rt.addSession(now)
	e.emitSessionCreated(rt, s)
	return e.attachLocked(rt, s, p, now)
}

// Leave removes a participant from a session and recomputes its status. An
// emptied session is intentionally kept: teardown is an owner or scheduler
// action, so a concurrent joiner never races a vanishing session.
func (e *Engine) Leave(ctx context.Context, lobbyID, sessionID, participantID uuid.UUID) error {
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return err
	}
	defer rt.release()

	s := rt.sessionByID(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}
	idx := -1
	for i, part := range s.Participants {
		if part.ID == participantID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrParticipantNotFound
	}

	left := s.Participants[idx]
	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)
	delete(rt.memberships, left.IdentityKey())
	if s.Status == models.SessionFull && len(s.Participants) < rt.lobby.Settings.MaxPlayers {
		s.Status = models.SessionOpen
	}

	sid := s.ID
	pid := left.ID
	e.persist("delete participant", func(ctx context.Context) error {
		return database.DeleteParticipant(ctx, sid, pid)
	})
	status := s.Status
	e.persist("update session status", func(ctx context.Context) error {
		return database.UpdateSessionStatus(ctx, sid, status)
	})

	payload := EventPayload{
		Lobby:       rt.lobby,
		Session:     s.Clone(),
		Participant: left,
		Summary:     buildSummary(rt),
	}
	e.emit(broadcast.EventParticipantLeft, payload,
		broadcast.SessionChannel(s.ID),
		broadcast.LobbyChannel(rt.lobby.ID),
		broadcast.GameChannel(rt.lobby.GameID),
	)
	e.log.WithFields(logrus.Fields{
		"lobby_id":       rt.lobby.ID,
		"session_id":     s.ID,
		"participant_id": left.ID,
	}).Info("participant left")
	return nil
}

// joinLocked is the single serialized assignment path. Assumes boundary is
// held and joinability was checked.
func (e *Engine) joinLocked(rt *runtime, p NewParticipant, desired *uuid.UUID, now time.Time) (*JoinResult, error) {
	// Idempotent rejoin: same identity before leaving returns the existing
	// membership and never double-counts a slot.
	if m, ok := rt.memberships[p.identityKey()]; ok {
		return e.existingMembership(rt, m)
	}

	var s *models.Session
	switch {
	case desired != nil:
		s = rt.sessionByID(*desired)
		if s == nil {
			return nil, ErrSessionNotFound
		}
		if !s.Joinable() && s.Status != models.SessionFull {
			return nil, ErrSessionNotJoinable
		}
		if len(s.Participants) >= rt.lobby.Settings.MaxPlayers {
			return nil, ErrSessionFull
		}
	default:
		s = rt.firstOpenSession(rt.lobby.Settings.MaxPlayers)
		if s == nil {
			if max := rt.lobby.Settings.MaxSessions; max > 0 && len(rt.sessions) >= max {
				return nil, ErrLobbyFull
			}
			s = rt.addSession(now)
			e.emitSessionCreated(rt, s)
		}
	}
	return e.attachLocked(rt, s, p, now)
}

// attachLocked appends the participant, recomputes session status, persists
// and emits. The append and the membership index update commit together, so
// a join is never partially applied. Assumes boundary is held.
func (e *Engine) attachLocked(rt *runtime, s *models.Session, p NewParticipant, now time.Time) (*JoinResult, error) {
	part := &models.Participant{
		ID:          uuid.New(),
		DisplayName: p.DisplayName,
		UserID:      p.UserID,
		GuestToken:  p.GuestToken,
		JoinedAt:    now,
	}
	s.Participants = append(s.Participants, part)
	rt.memberships[p.identityKey()] = membership{sessionID: s.ID, participantID: part.ID}
	if len(s.Participants) >= rt.lobby.Settings.MaxPlayers {
		s.Status = models.SessionFull
	}

	sid := s.ID
	partCopy := *part
	e.persist("insert participant", func(ctx context.Context) error {
		return database.InsertParticipant(ctx, sid, &partCopy)
	})
	status := s.Status
	e.persist("update session status", func(ctx context.Context) error {
		return database.UpdateSessionStatus(ctx, sid, status)
	})

	snap := s.Clone()
	payload := EventPayload{
		Lobby:       rt.lobby,
		Session:     snap,
		Participant: part,
		Summary:     buildSummary(rt),
	}
	e.emit(broadcast.EventParticipantJoined, payload,
		broadcast.SessionChannel(s.ID),
		broadcast.LobbyChannel(rt.lobby.ID),
		broadcast.GameChannel(rt.lobby.GameID),
	)
	e.log.WithFields(logrus.Fields{
		"lobby_id":       rt.lobby.ID,
		"session_id":     s.ID,
		"session_number": s.Number,
		"participant_id": part.ID,
	}).Info("participant joined")

	return &JoinResult{Lobby: rt.lobby, Session: snap, Participant: part}, nil
}

// existingMembership resolves an idempotent rejoin to its current state.
func (e *Engine) existingMembership(rt *runtime, m membership) (*JoinResult, error) {
	s := rt.sessionByID(m.sessionID)
	if s == nil {
		// Membership pointing at a torn-down session; treat as not joined.
		return nil, ErrSessionNotFound
	}
	for _, part := range s.Participants {
		if part.ID == m.participantID {
			return &JoinResult{Lobby: rt.lobby, Session: s.Clone(), Participant: part}, nil
		}
	}
	return nil, ErrParticipantNotFound
}

// emitSessionCreated announces a new room on the lobby and game channels.
// Assumes boundary is held and the session was just added.
func (e *Engine) emitSessionCreated(rt *runtime, s *models.Session) {
	sCopy := s.Clone()
	e.persist("insert session", func(ctx context.Context) error {
		return database.InsertSession(ctx, sCopy)
	})
	payload := EventPayload{
		Lobby:   rt.lobby,
		Session: sCopy,
		Summary: buildSummary(rt),
	}
	e.emit(broadcast.EventSessionCreated, payload,
		broadcast.LobbyChannel(rt.lobby.ID),
		broadcast.GameChannel(rt.lobby.GameID),
	)
	e.log.WithFields(logrus.Fields{
		"lobby_id":       rt.lobby.ID,
		"session_id":     s.ID,
		"session_number": s.Number,
	}).Info("session created")
}
