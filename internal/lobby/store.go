// internal/lobby/store.go
package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/classcast/lobbyd/internal/models"
)

// Store manages the live lobbies in memory with an id index and a
// case-insensitive code index. Codes are unique among non-terminal lobbies;
// a closed or expired lobby releases its code for reuse.
type Store struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*runtime
	byCode map[string]uuid.UUID
}

// NewStore initializes an empty Store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[uuid.UUID]*runtime),
		byCode: make(map[string]uuid.UUID),
	}
}

// Create mints a lobby with a collision-checked code and registers it.
// Attempts are bounded; exhausting them returns ErrCodeSpaceExhausted.
func (s *Store) Create(gameID uuid.UUID, settings models.LobbySettings, startsAt, endsAt *time.Time) (models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	length := codeLength()
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return models.Lobby{}, ErrCodeSpaceExhausted
		}
		code = newCode(length)
		if _, taken := s.byCode[code]; !taken {
			break
		}
	}

	l := models.Lobby{
		ID:        uuid.New(),
		Code:      code,
		GameID:    gameID,
		Settings:  settings,
		Status:    models.LobbyPending,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CreatedAt: time.Now().UTC(),
	}
	s.byID[l.ID] = newRuntime(l)
	s.byCode[code] = l.ID
	return l, nil
}

// get returns the runtime for a lobby id.
func (s *Store) get(id uuid.UUID) (*runtime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.byID[id]
	return rt, ok
}

// resolveByCode finds a live (non-terminal) lobby by its code,
// case-insensitively. Whether the lobby is actually joinable is a separate,
// per-attempt check against the clock.
func (s *Store) resolveByCode(code string) (*runtime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[NormalizeCode(code)]
	if !ok {
		return nil, false
	}
	rt, ok := s.byID[id]
	return rt, ok
}

// releaseCode frees a terminal lobby's code for reuse. Called under the
// lobby's own boundary after a terminal transition commits.
func (s *Store) releaseCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCode, code)
}

// liveRuntimes snapshots the current runtime set for the scheduler sweep.
func (s *Store) liveRuntimes() []*runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*runtime, 0, len(s.byID))
	for _, rt := range s.byID {
		out = append(out, rt)
	}
	return out
}
