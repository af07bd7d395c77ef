// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/lobby"
)

const defaultSweepIntervalMs = 1000

// Scheduler advances lobby lifecycle on wall-clock deadlines: it promotes
// pending lobbies whose window opened and expires lobbies whose window
// closed. Each tick is idempotent, and the transitions run under the same
// per-lobby boundary the join arbiter uses, so running multiple scheduler
// instances can at worst duplicate event emission, never duplicate the
// transition itself.
type Scheduler struct {
	engine   *lobby.Engine
	log      *logrus.Logger
	interval time.Duration
	now      func() time.Time
}

// New builds a scheduler over the engine. Sweep cadence is tunable via
// LOBBY_SWEEP_INTERVAL_MS.
func New(engine *lobby.Engine, logger *logrus.Logger) *Scheduler {
	interval := defaultSweepIntervalMs
	if s := os.Getenv("LOBBY_SWEEP_INTERVAL_MS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			interval = v
		}
	}
	return &Scheduler{
		engine:   engine,
		log:      logger,
		interval: time.Duration(interval) * time.Millisecond,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps until ctx is cancelled. Start it in its own goroutine.
func (sc *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	sc.log.Infof("lifecycle scheduler running, sweep interval %s", sc.interval)
	for {
		select {
		case <-ctx.Done():
			sc.log.Info("lifecycle scheduler stopping")
			return
		case <-ticker.C:
			sc.Sweep()
		}
	}
}

// Sweep applies due window transitions across all live lobbies. A lobby
// whose boundary is currently held by join traffic is skipped; the next tick
// retries it. A failure on one lobby is logged and never blocks the rest.
func (sc *Scheduler) Sweep() {
	now := sc.now()
	for _, transitioned := range sc.engine.SweepOnce(now) {
		sc.log.WithFields(logrus.Fields{
			"lobby_id": transitioned.LobbyID,
			"status":   transitioned.To,
		}).Info("scheduled lifecycle transition")
	}
}
