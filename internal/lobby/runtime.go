// internal/lobby/runtime.go
package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/classcast/lobbyd/internal/models"
)

// membership records which session a participant identity currently occupies
// within a lobby, for idempotent rejoin.
type membership struct {
	sessionID     uuid.UUID
	participantID uuid.UUID
}

// runtime is the authoritative in-memory state of one lobby: the record, its
// sessions in creation order, and the membership index. All mutation happens
// under the exclusivity boundary (sem); read-only resolution may snapshot
// through the store without it.
type runtime struct {
	// sem is the per-lobby exclusivity boundary: a one-slot semaphore so
	// acquisition can be bounded by a timeout, which sync.Mutex cannot do.
	sem chan struct{}

	lobby       models.Lobby
	sessions    []*models.Session
	nextNumber  int
	memberships map[string]membership
}

func newRuntime(l models.Lobby) *runtime {
	return &runtime{
		sem:         make(chan struct{}, 1),
		lobby:       l,
		nextNumber:  1,
		memberships: make(map[string]membership),
	}
}

// acquire blocks until the boundary is held, the timeout elapses, or ctx is
// cancelled. A timeout surfaces as ErrLockTimeout, which callers may retry.
func (rt *runtime) acquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case rt.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryAcquire takes the boundary only if it is free. Scheduler ticks use this
// to skip a busy lobby instead of waiting behind join traffic.
func (rt *runtime) tryAcquire() bool {
	select {
	case rt.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (rt *runtime) release() {
	<-rt.sem
}

// sessionByID scans the (small) session list. Assumes boundary is held.
func (rt *runtime) sessionByID(id uuid.UUID) *models.Session {
	for _, s := range rt.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// firstOpenSession returns the earliest-created session with free capacity,
// honoring the "order" policy's creation-order tie-break. Assumes boundary
// is held.
func (rt *runtime) firstOpenSession(maxPlayers int) *models.Session {
	for _, s := range rt.sessions {
		if s.Joinable() && len(s.Participants) < maxPlayers {
			return s
		}
	}
	return nil
}

// addSession appends a new open session with the next monotonic number.
// Assumes boundary is held.
func (rt *runtime) addSession(now time.Time) *models.Session {
	s := &models.Session{
		ID:        uuid.New(),
		LobbyID:   rt.lobby.ID,
		Number:    rt.nextNumber,
		Status:    models.SessionOpen,
		CreatedAt: now,
	}
	rt.nextNumber++
	rt.sessions = append(rt.sessions, s)
	return s
}

// cloneSessions deep-copies the session list for use outside the boundary.
func (rt *runtime) cloneSessions() []*models.Session {
	out := make([]*models.Session, len(rt.sessions))
	for i, s := range rt.sessions {
		out[i] = s.Clone()
	}
	return out
}
