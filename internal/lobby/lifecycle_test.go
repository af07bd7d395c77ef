// internal/lobby/lifecycle_test.go
package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/models"
)

func TestLifecycleIsMonotonic(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()

	settings := models.LobbySettings{InvitationType: models.InviteOrder, MaxPlayers: 4}
	l, err := e.CreateLobby(ctx, uuid.New(), settings, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyPending, l.Status)

	l, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyActive, l.Status)

	// Activating an already-active lobby is a no-op, not an error.
	l, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyActive, l.Status)

	l, err = e.Close(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, l.Status)

	// Terminal states never move again.
	l, err = e.Expire(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, l.Status)
	l, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, l.Status)
}

func TestOwnerCanCancelPendingLobby(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()

	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, models.LobbyPending, l.Status)

	l, err = e.Close(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, l.Status)
	assert.NotEmpty(t, cb.byType(broadcast.EventLobbyClosed))

	// Cancelled before it ever activated; it can never come back.
	l, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, l.Status)

	_, _, err = e.JoinByCode(ctx, l.Code, guest("late"))
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestClosedBeatsScheduledExpiry(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()

	ends := time.Now().UTC().Add(-time.Second)
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, nil, &ends)
	require.NoError(t, err)
	_, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)

	_, err = e.Close(ctx, l.ID)
	require.NoError(t, err)

	// The expiry is due but the explicit close already landed; the sweep
	// must not overwrite it.
	results := e.SweepOnce(time.Now().UTC())
	assert.Empty(t, results)

	snap, err := e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyClosed, snap.Lobby.Status)
	assert.Empty(t, cb.byType(broadcast.EventLobbyExpired))
}

func TestWindowTransition(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	pendingNoWindow := models.Lobby{Status: models.LobbyPending}
	_, due := windowTransition(pendingNoWindow, now)
	assert.False(t, due, "no window means manual control only")

	pendingDue := models.Lobby{Status: models.LobbyPending, StartsAt: &past}
	to, due := windowTransition(pendingDue, now)
	assert.True(t, due)
	assert.Equal(t, models.LobbyActive, to)

	pendingEarly := models.Lobby{Status: models.LobbyPending, StartsAt: &future}
	_, due = windowTransition(pendingEarly, now)
	assert.False(t, due)

	// A window that opened and closed between ticks goes straight to
	// expired, never activating.
	earlier := now.Add(-2 * time.Minute)
	missed := models.Lobby{Status: models.LobbyPending, StartsAt: &earlier, EndsAt: &past}
	to, due = windowTransition(missed, now)
	assert.True(t, due)
	assert.Equal(t, models.LobbyExpired, to)

	activeDue := models.Lobby{Status: models.LobbyActive, EndsAt: &past}
	to, due = windowTransition(activeDue, now)
	assert.True(t, due)
	assert.Equal(t, models.LobbyExpired, to)

	closed := models.Lobby{Status: models.LobbyClosed, EndsAt: &past}
	_, due = windowTransition(closed, now)
	assert.False(t, due)
}

func TestSweepActivatesAndExpires(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()
	settings := models.LobbySettings{InvitationType: models.InviteOrder, MaxPlayers: 4}

	start := time.Now().UTC().Add(time.Minute)
	end := start.Add(time.Minute)
	l, err := e.CreateLobby(ctx, uuid.New(), settings, &start, &end)
	require.NoError(t, err)

	// Before the window opens: nothing due.
	assert.Empty(t, e.SweepOnce(start.Add(-time.Second)))

	results := e.SweepOnce(start.Add(time.Second))
	require.Len(t, results, 1)
	assert.Equal(t, l.ID, results[0].LobbyID)
	assert.Equal(t, models.LobbyActive, results[0].To)
	assert.Len(t, cb.byType(broadcast.EventLobbyActivated), 2, "lobby and game channels")

	results = e.SweepOnce(end.Add(time.Second))
	require.Len(t, results, 1)
	assert.Equal(t, models.LobbyExpired, results[0].To)
	assert.NotEmpty(t, cb.byType(broadcast.EventLobbyExpired))

	snap, err := e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyExpired, snap.Lobby.Status)
	assert.False(t, snap.IsJoinable)
}

func TestSweepSkipsBusyLobby(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()

	end := time.Now().UTC().Add(-time.Second)
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, nil, &end)
	require.NoError(t, err)
	_, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)

	rt, ok := e.store.get(l.ID)
	require.True(t, ok)

	// While join traffic holds the boundary the sweep moves on; the next
	// tick catches the lobby.
	require.True(t, rt.tryAcquire())
	assert.Empty(t, e.SweepOnce(time.Now().UTC()))
	rt.release()

	results := e.SweepOnce(time.Now().UTC())
	require.Len(t, results, 1)
	assert.Equal(t, models.LobbyExpired, results[0].To)
}

func TestExpiryFinishesSessionsAndFreesCode(t *testing.T) {
	cb := &captureBroadcaster{}
	e := NewEngine(NewStore(), cb, testLogger())
	ctx := context.Background()

	end := time.Now().UTC().Add(50 * time.Millisecond)
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, nil, &end)
	require.NoError(t, err)
	_, err = e.Activate(ctx, l.ID)
	require.NoError(t, err)
	_, _, err = e.JoinByCode(ctx, l.Code, guest("ada"))
	require.NoError(t, err)

	results := e.SweepOnce(end.Add(time.Second))
	require.Len(t, results, 1)

	snap, err := e.Snapshot(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, models.SessionFinished, snap.Sessions[0].Status)

	_, _, err = e.JoinByCode(ctx, l.Code, guest("late"))
	assert.ErrorIs(t, err, ErrLobbyNotFound, "code released on terminal transition")
}

func TestCreateLobbyValidation(t *testing.T) {
	e := NewEngine(NewStore(), &captureBroadcaster{}, testLogger())
	ctx := context.Background()

	_, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
	}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest, "max_players must be positive")

	start := time.Now().UTC().Add(time.Hour)
	end := start.Add(-time.Minute)
	_, err = e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: models.InviteOrder,
		MaxPlayers:     4,
	}, &start, &end)
	assert.ErrorIs(t, err, ErrInvalidRequest, "window must end after it starts")

	_, err = e.CreateLobby(ctx, uuid.New(), models.LobbySettings{
		InvitationType: "broadcast",
		MaxPlayers:     4,
	}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest, "unknown invitation type")

	// Omitted invitation type defaults to order.
	l, err := e.CreateLobby(ctx, uuid.New(), models.LobbySettings{MaxPlayers: 4}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.InviteOrder, l.Settings.InvitationType)
}

func TestCodesAreWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := newCode(defaultCodeLength)
		require.Len(t, code, defaultCodeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	// 200 draws from a 31^6 space collide with negligible probability.
	assert.Greater(t, len(seen), 195)

	assert.Equal(t, "ABC234", NormalizeCode("  abc234 "))
}
