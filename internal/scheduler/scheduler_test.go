// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/lobby"
	"github.com/classcast/lobbyd/internal/models"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(broadcast.Event) {}

func testEngine() *lobby.Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return lobby.NewEngine(lobby.NewStore(), nopBroadcaster{}, logger)
}

func TestSweepAdvancesWindows(t *testing.T) {
	e := testEngine()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sc := New(e, logger)
	ctx := context.Background()

	start := time.Now().UTC().Add(time.Hour)
	end := start.Add(time.Hour)
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, &start, &end)
	require.NoError(t, err)

	// Simulated clock: before the window, inside it, after it.
	clock := start.Add(-time.Minute)
	sc.now = func() time.Time { return clock }

	sc.Sweep()
	snap, err := e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyPending, snap.Lobby.Status)

	clock = start.Add(time.Minute)
	sc.Sweep()
	snap, err = e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyActive, snap.Lobby.Status)
	assert.True(t, snap.IsJoinable)

	clock = end.Add(time.Minute)
	sc.Sweep()
	snap, err = e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyExpired, snap.Lobby.Status)

	// Sweeping again after the terminal transition changes nothing.
	sc.Sweep()
	snap, err = e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyExpired, snap.Lobby.Status)
}

func TestSweepLeavesManuallyControlledLobbiesAlone(t *testing.T) {
	e := testEngine()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sc := New(e, logger)
	ctx := context.Background()

	// No window: lifecycle is entirely teacher-driven.
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, nil, nil)
	require.NoError(t, err)

	sc.now = func() time.Time { return time.Now().UTC().Add(24 * time.Hour) }
	sc.Sweep()

	snap, err := e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyPending, snap.Lobby.Status)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := testEngine()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sc := New(e, logger)
	sc.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sc.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
