// internal/lobby/engine.go
package lobby

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/database"
	"github.com/classcast/lobbyd/internal/models"
)

const defaultLockTimeoutMs = 2000

// Engine owns lobby and session state and is the only path that mutates it.
// Every mutating operation runs under the target lobby's exclusivity
// boundary; event publication happens after the mutation commits and never
// blocks the caller.
type Engine struct {
	store       *Store
	bc          broadcast.Broadcaster
	log         *logrus.Logger
	lockTimeout time.Duration
}

// NewEngine wires an engine over the given store and broadcaster. The
// boundary acquisition timeout is tunable via LOBBY_LOCK_TIMEOUT_MS.
func NewEngine(store *Store, bc broadcast.Broadcaster, logger *logrus.Logger) *Engine {
	timeout := defaultLockTimeoutMs
	if s := os.Getenv("LOBBY_LOCK_TIMEOUT_MS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			timeout = v
		}
	}
	return &Engine{
		store:       store,
		bc:          bc,
		log:         logger,
		lockTimeout: time.Duration(timeout) * time.Millisecond,
	}
}

// Store exposes the underlying store to the scheduler.
func (e *Engine) Store() *Store { return e.store }

// CreateLobby registers a new pending lobby for a game. Teacher action.
func (e *Engine) CreateLobby(ctx context.Context, gameID uuid.UUID, settings models.LobbySettings, startsAt, endsAt *time.Time) (models.Lobby, error) {
	if settings.MaxPlayers <= 0 {
		return models.Lobby{}, fmt.Errorf("%w: max_players must be positive", ErrInvalidRequest)
	}
	switch settings.InvitationType {
	case models.InviteOrder, models.InviteManualSelection:
	case "":
		settings.InvitationType = models.InviteOrder
	default:
		return models.Lobby{}, fmt.Errorf("%w: unknown invitation_type %q", ErrInvalidRequest, settings.InvitationType)
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return models.Lobby{}, fmt.Errorf("%w: activation window ends before it starts", ErrInvalidRequest)
	}

	l, err := e.store.Create(gameID, settings, startsAt, endsAt)
	if err != nil {
		return models.Lobby{}, err
	}
	e.persist("insert lobby", func(ctx context.Context) error {
		return database.InsertLobby(ctx, &l)
	})
	e.log.WithFields(logrus.Fields{
		"lobby_id": l.ID,
		"code":     l.Code,
		"game_id":  gameID,
	}).Info("lobby created")
	return l, nil
}

// Snapshot returns the canonical full state of a lobby for REST reads and
// fetch-to-confirm. Read path, but it still takes the boundary briefly so it
// never observes a half-applied join.
func (e *Engine) Snapshot(ctx context.Context, lobbyID uuid.UUID) (Snapshot, error) {
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return Snapshot{}, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return Snapshot{}, err
	}
	defer rt.release()
	return buildSnapshot(rt, time.Now().UTC()), nil
}

// Activate promotes a pending lobby to active by explicit teacher action.
// Idempotent: activating an already-active lobby is a no-op.
func (e *Engine) Activate(ctx context.Context, lobbyID uuid.UUID) (models.Lobby, error) {
	return e.transition(ctx, lobbyID, models.LobbyActive)
}

// Close terminally closes a lobby, marking all child sessions finished.
// Closed wins over a concurrent scheduled expiry.
func (e *Engine) Close(ctx context.Context, lobbyID uuid.UUID) (models.Lobby, error) {
	return e.transition(ctx, lobbyID, models.LobbyClosed)
}

// Expire terminally expires a lobby whose window has ended.
func (e *Engine) Expire(ctx context.Context, lobbyID uuid.UUID) (models.Lobby, error) {
	return e.transition(ctx, lobbyID, models.LobbyExpired)
}

// transition applies one explicit status change under the boundary.
func (e *Engine) transition(ctx context.Context, lobbyID uuid.UUID, to models.LobbyStatus) (models.Lobby, error) {
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return models.Lobby{}, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return models.Lobby{}, err
	}
	defer rt.release()

	e.applyTransitionLocked(rt, to)
	return rt.lobby, nil
}

// applyTransitionLocked performs the idempotent status change plus its side
// effects (session teardown, code release, events, persistence). Assumes the
// boundary is held. Shared by explicit actions and the scheduler.
func (e *Engine) applyTransitionLocked(rt *runtime, to models.LobbyStatus) bool {
	var changed bool
	switch to {
	case models.LobbyActive:
		changed = activate(&rt.lobby)
	case models.LobbyClosed:
		changed = closeLobby(&rt.lobby)
	case models.LobbyExpired:
		changed = expire(&rt.lobby)
	}
	if !changed {
		return false
	}

	evType := map[models.LobbyStatus]string{
		models.LobbyActive:  broadcast.EventLobbyActivated,
		models.LobbyClosed:  broadcast.EventLobbyClosed,
		models.LobbyExpired: broadcast.EventLobbyExpired,
	}[to]

	if rt.lobby.Status.Terminal() {
		// Teardown: child sessions finish with their lobby and the join code
		// becomes reusable.
		for _, s := range rt.sessions {
			if s.Status != models.SessionFinished {
				s.Status = models.SessionFinished
				sid := s.ID
				e.persist("finish session", func(ctx context.Context) error {
					return database.UpdateSessionStatus(ctx, sid, models.SessionFinished)
				})
			}
		}
		e.store.releaseCode(rt.lobby.Code)
	}

	l := rt.lobby
	e.persist("update lobby status", func(ctx context.Context) error {
		return database.UpdateLobbyStatus(ctx, l.ID, l.Status)
	})

	payload := EventPayload{Lobby: l, Summary: buildSummary(rt)}
	e.emit(evType, payload,
		broadcast.LobbyChannel(l.ID),
		broadcast.GameChannel(l.GameID),
	)
	e.log.WithFields(logrus.Fields{
		"lobby_id": l.ID,
		"status":   l.Status,
	}).Info("lobby status transition")
	return true
}

// StartSession moves an open or full session to in_progress.
func (e *Engine) StartSession(ctx context.Context, lobbyID, sessionID uuid.UUID) (*models.Session, error) {
	return e.sessionTransition(ctx, lobbyID, sessionID, models.SessionInProgress, broadcast.EventSessionStarted)
}

// FinishSession moves a session to finished. The session and its membership
// records stay visible until the lobby closes.
func (e *Engine) FinishSession(ctx context.Context, lobbyID, sessionID uuid.UUID) (*models.Session, error) {
	return e.sessionTransition(ctx, lobbyID, sessionID, models.SessionFinished, broadcast.EventSessionFinished)
}

func (e *Engine) sessionTransition(ctx context.Context, lobbyID, sessionID uuid.UUID, to models.SessionStatus, evType string) (*models.Session, error) {
	rt, ok := e.store.get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := rt.acquire(ctx, e.lockTimeout); err != nil {
		return nil, err
	}
	defer rt.release()

	s := rt.sessionByID(sessionID)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if s.Status == to {
		return s.Clone(), nil
	}
	if s.Status == models.SessionFinished {
		return nil, fmt.Errorf("%w: session already finished", ErrInvalidRequest)
	}

	s.Status = to
	sid := s.ID
	e.persist("update session status", func(ctx context.Context) error {
		return database.UpdateSessionStatus(ctx, sid, to)
	})

	snap := s.Clone()
	payload := EventPayload{Lobby: rt.lobby, Session: snap, Summary: buildSummary(rt)}
	e.emit(evType, payload,
		broadcast.SessionChannel(s.ID),
		broadcast.LobbyChannel(rt.lobby.ID),
		broadcast.GameChannel(rt.lobby.GameID),
	)
	return snap, nil
}

// LookupGame fetches game display metadata from the registry. The engine
// only reads it; absence is not an error for join flows.
func (e *Engine) LookupGame(ctx context.Context, gameID uuid.UUID) *models.Game {
	if database.DB == nil {
		return nil
	}
	g, err := database.GetGame(ctx, gameID)
	if err != nil {
		e.log.Warnf("game registry lookup for %s failed: %v", gameID, err)
		return nil
	}
	return g
}

// emit publishes one logical event on every channel relevant to its scope.
func (e *Engine) emit(evType string, payload EventPayload, channels ...string) {
	for _, ch := range channels {
		e.bc.Publish(broadcast.Event{
			Channel: ch,
			Type:    evType,
			Payload: payload,
		})
	}
}

// persist runs a durable write in the background when postgres is wired.
// Coordination truth lives in memory; the store is write-behind, so a failed
// write is logged, not surfaced.
func (e *Engine) persist(op string, fn func(context.Context) error) {
	if database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.Warnf("persist %s failed: %v", op, err)
		}
	}()
}
