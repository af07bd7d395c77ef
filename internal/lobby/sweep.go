// internal/lobby/sweep.go
package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/classcast/lobbyd/internal/models"
)

// SweepResult records one scheduled transition applied during a sweep.
type SweepResult struct {
	LobbyID uuid.UUID
	To      models.LobbyStatus
}

// SweepOnce applies every due window transition at the given instant. Busy
// lobbies (boundary held by join traffic) are skipped rather than waited on;
// the caller's next tick picks them up. Transition application is idempotent
// and guarded by the same boundary as joins, so concurrent sweepers cannot
// double-apply, and an explicit close that already landed makes a due expiry
// a no-op.
func (e *Engine) SweepOnce(now time.Time) []SweepResult {
	var results []SweepResult
	for _, rt := range e.store.liveRuntimes() {
		if !rt.tryAcquire() {
			continue
		}
		if to, due := windowTransition(rt.lobby, now); due {
			if e.applyTransitionLocked(rt, to) {
				results = append(results, SweepResult{LobbyID: rt.lobby.ID, To: to})
			}
		}
		rt.release()
	}
	return results
}
