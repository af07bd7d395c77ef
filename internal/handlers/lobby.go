// internal/handlers/lobby.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/classcast/lobbyd/internal/lobby"
	"github.com/classcast/lobbyd/internal/models"
)

type createLobbyRequest struct {
	GameID   uuid.UUID            `json:"game_id"`
	Settings models.LobbySettings `json:"settings"`
	StartsAt *time.Time           `json:"starts_at,omitempty"`
	EndsAt   *time.Time           `json:"ends_at,omitempty"`
}

type joinByCodeRequest struct {
	LobbyCode   string               `json:"lobby_code"`
	Participant lobby.NewParticipant `json:"participant"`
}

type joinRequest struct {
	Participant lobby.NewParticipant `json:"participant"`
	SessionID   *uuid.UUID           `json:"session_id,omitempty"`
}

type createSessionRequest struct {
	Participant lobby.NewParticipant `json:"participant"`
}

type leaveRequest struct {
	SessionID     uuid.UUID `json:"session_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
}

// joinByCodeResponse is the full payload a client needs to render the lobby
// and (if assigned) its own membership, plus the channel names to subscribe.
type joinByCodeResponse struct {
	Lobby               models.Lobby        `json:"lobby"`
	Game                *models.Game        `json:"game,omitempty"`
	Sessions            []*models.Session   `json:"sessions"`
	ParticipantsSummary lobby.Summary       `json:"participantsSummary"`
	IsJoinable          bool                `json:"is_joinable"`
	Session             *models.Session     `json:"session,omitempty"`
	Participant         *models.Participant `json:"participant,omitempty"`
	Channels            []string            `json:"channels"`
}

// CreateLobbyHandler registers a new pending lobby. Teacher-only.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad lobby request payload", http.StatusBadRequest)
		return
	}
	l, err := s.Engine.CreateLobby(r.Context(), req.GameID, req.Settings, req.StartsAt, req.EndsAt)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// JoinByCodeHandler resolves a typed code and, for order-policy lobbies,
// assigns the participant in the same call.
func (s *Server) JoinByCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req joinByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad join request payload", http.StatusBadRequest)
		return
	}
	fillIdentity(&req.Participant, w, r)

	snap, res, err := s.Engine.JoinByCode(r.Context(), req.LobbyCode, req.Participant)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := joinByCodeResponse{
		Lobby:               snap.Lobby,
		Game:                s.Engine.LookupGame(r.Context(), snap.Lobby.GameID),
		Sessions:            snap.Sessions,
		ParticipantsSummary: snap.Summary,
		IsJoinable:          snap.IsJoinable,
		Channels:            subscribeChannels(snap),
	}
	if res != nil {
		resp.Session = res.Session
		resp.Participant = res.Participant
	}
	writeJSON(w, http.StatusOK, resp)
}

// JoinHandler attaches a participant to an already-resolved lobby, into a
// chosen session under manual_selection or by the order policy otherwise.
func (s *Server) JoinHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad join request payload", http.StatusBadRequest)
		return
	}
	fillIdentity(&req.Participant, w, r)

	res, err := s.Engine.Join(r.Context(), lobbyID, req.Participant, req.SessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateSessionHandler opens a fresh room and joins the requester to it.
func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad create-session payload", http.StatusBadRequest)
		return
	}
	fillIdentity(&req.Participant, w, r)

	res, err := s.Engine.CreateSession(r.Context(), lobbyID, req.Participant)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// LeaveHandler removes a participant from their session.
func (s *Server) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad leave payload", http.StatusBadRequest)
		return
	}
	if err := s.Engine.Leave(r.Context(), lobbyID, req.SessionID, req.ParticipantID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// GetLobbyHandler returns the canonical snapshot, the fetch-to-confirm
// target for reconcilers that received an ambiguous event.
func (s *Server) GetLobbyHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	snap, err := s.Engine.Snapshot(r.Context(), lobbyID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ActivateLobbyHandler promotes pending -> active by teacher action.
func (s *Server) ActivateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	s.lobbyTransition(w, r, s.Engine.Activate)
}

// CloseLobbyHandler terminally closes a lobby.
func (s *Server) CloseLobbyHandler(w http.ResponseWriter, r *http.Request) {
	s.lobbyTransition(w, r, s.Engine.Close)
}

func (s *Server) lobbyTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (models.Lobby, error)) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	l, err := op(r.Context(), lobbyID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// StartSessionHandler moves a session to in_progress.
func (s *Server) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(w, r, s.Engine.StartSession)
}

// FinishSessionHandler moves a session to finished.
func (s *Server) FinishSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(w, r, s.Engine.FinishSession)
}

func (s *Server) sessionTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) (*models.Session, error)) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	lobbyID, ok := pathUUID(w, r, "lobbyID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	sess, err := op(r.Context(), lobbyID, sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// pathUUID parses one {wildcard} path segment as a uuid.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// fillIdentity resolves the joining identity when the payload omits it. An
// authenticated user's id comes from the auth cookie; anyone else gets a
// guest token, minted on first contact and pinned in a cookie so the same
// browser rejoins as the same participant.
func fillIdentity(p *lobby.NewParticipant, w http.ResponseWriter, r *http.Request) {
	if p.UserID != nil || p.GuestToken != "" {
		return
	}
	if id := authenticatedUser(r); id != uuid.Nil {
		p.UserID = &id
		return
	}
	if c, err := r.Cookie("guest_token"); err == nil && c.Value != "" {
		p.GuestToken = c.Value
		return
	}
	p.GuestToken = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "guest_token",
		Value:    p.GuestToken,
		HttpOnly: true,
		Path:     "/",
	})
}

// subscribeChannels derives the channel set a client should subscribe to
// from a join-by-code response: its lobby, its game, and every session.
func subscribeChannels(snap lobby.Snapshot) []string {
	channels := []string{
		"lobby:" + snap.Lobby.ID.String(),
		"game:" + snap.Lobby.GameID.String(),
	}
	for _, sess := range snap.Sessions {
		channels = append(channels, "session:"+sess.ID.String())
	}
	return channels
}
