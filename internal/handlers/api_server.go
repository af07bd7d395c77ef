// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/lobby"
)

// Server bundles the engine, the broadcast hub and the logger for the HTTP
// and websocket surfaces.
type Server struct {
	Engine *lobby.Engine
	Hub    *broadcast.Hub
	Logger *logrus.Logger
}

// NewServer wires the handler layer.
func NewServer(engine *lobby.Engine, hub *broadcast.Hub, logger *logrus.Logger) *Server {
	return &Server{Engine: engine, Hub: hub, Logger: logger}
}

// Routes registers the REST and websocket endpoints on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// student surface
	mux.HandleFunc("POST /api/game-lobbies/join-by-code", s.JoinByCodeHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/join", s.JoinHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/sessions/create-student", s.CreateSessionHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/leave", s.LeaveHandler)
	mux.HandleFunc("GET /api/game-lobbies/{lobbyID}", s.GetLobbyHandler)

	// teacher surface
	mux.HandleFunc("POST /api/game-lobbies", s.CreateLobbyHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/activate", s.ActivateLobbyHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/close", s.CloseLobbyHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/sessions/{sessionID}/start", s.StartSessionHandler)
	mux.HandleFunc("POST /api/game-lobbies/{lobbyID}/sessions/{sessionID}/finish", s.FinishSessionHandler)

	// accounts
	mux.HandleFunc("POST /user/create", CreateUserHandler)
	mux.HandleFunc("POST /user/login", LoginHandler)
	mux.HandleFunc("GET /user/me", MeHandler)

	// realtime channel transport
	mux.HandleFunc("/ws", s.WSHandler)

	return mux
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeEngineError maps domain sentinel errors to HTTP codes. Capacity and
// joinability failures carry distinct codes so clients can show a specific
// message instead of a generic failure.
func writeEngineError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		status, code = http.StatusNotFound, "LobbyNotFound"
	case errors.Is(err, lobby.ErrSessionNotFound):
		status, code = http.StatusNotFound, "SessionNotFound"
	case errors.Is(err, lobby.ErrParticipantNotFound):
		status, code = http.StatusNotFound, "ParticipantNotFound"
	case errors.Is(err, lobby.ErrLobbyNotJoinable):
		status, code = http.StatusForbidden, "LobbyNotJoinable"
	case errors.Is(err, lobby.ErrSessionFull):
		status, code = http.StatusConflict, "SessionFull"
	case errors.Is(err, lobby.ErrLobbyFull):
		status, code = http.StatusConflict, "LobbyFull"
	case errors.Is(err, lobby.ErrSessionNotJoinable):
		status, code = http.StatusConflict, "SessionNotJoinable"
	case errors.Is(err, lobby.ErrSessionRequired):
		status, code = http.StatusBadRequest, "SessionRequiredForManualSelection"
	case errors.Is(err, lobby.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, lobby.ErrLockTimeout):
		status, code = http.StatusServiceUnavailable, "TryAgain"
	default:
		status, code = http.StatusInternalServerError, "Internal"
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}
