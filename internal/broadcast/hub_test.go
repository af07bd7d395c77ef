// internal/broadcast/hub_test.go
package broadcast

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger)
}

func drain(sub *Subscriber) []Event {
	var out []Event
	for {
		select {
		case ev := <-sub.Out:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestFanoutByChannel(t *testing.T) {
	h := testHub()
	lobbyCh := LobbyChannel(uuid.New())
	gameCh := GameChannel(uuid.New())

	a := h.NewSubscriber(8)
	b := h.NewSubscriber(8)
	h.Subscribe(a, lobbyCh)
	h.Subscribe(b, lobbyCh, gameCh)

	h.Publish(Event{Channel: lobbyCh, Type: EventParticipantJoined})
	h.Publish(Event{Channel: gameCh, Type: EventLobbyActivated})

	aEvents := drain(a)
	require.Len(t, aEvents, 1)
	assert.Equal(t, EventParticipantJoined, aEvents[0].Type)
	assert.False(t, aEvents[0].EmittedAt.IsZero())
	assert.Equal(t, h.Instance(), aEvents[0].Origin)

	bEvents := drain(b)
	require.Len(t, bEvents, 2)
}

func TestSubscriptionSetChangesWithoutReconnect(t *testing.T) {
	h := testHub()
	first := SessionChannel(uuid.New())
	second := SessionChannel(uuid.New())

	sub := h.NewSubscriber(8)
	h.Subscribe(sub, first)
	h.Publish(Event{Channel: first, Type: EventSessionStarted})

	// Move the client from one room to another mid-connection.
	h.Unsubscribe(sub, first)
	h.Subscribe(sub, second)
	h.Publish(Event{Channel: first, Type: EventSessionFinished})
	h.Publish(Event{Channel: second, Type: EventParticipantJoined})

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, EventSessionStarted, events[0].Type)
	assert.Equal(t, EventParticipantJoined, events[1].Type)

	assert.ElementsMatch(t, []string{second}, sub.Channels())
}

func TestDuplicateSubscribeIsNoOp(t *testing.T) {
	h := testHub()
	ch := LobbyChannel(uuid.New())

	sub := h.NewSubscriber(8)
	h.Subscribe(sub, ch)
	h.Subscribe(sub, ch)

	h.Publish(Event{Channel: ch, Type: EventSessionCreated})
	assert.Len(t, drain(sub), 1, "a doubly-subscribed channel must not duplicate delivery")
	assert.Len(t, sub.Channels(), 1)
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	h := testHub()
	ch := LobbyChannel(uuid.New())

	slow := h.NewSubscriber(1)
	fast := h.NewSubscriber(8)
	h.Subscribe(slow, ch)
	h.Subscribe(fast, ch)

	for i := 0; i < 5; i++ {
		h.Publish(Event{Channel: ch, Type: EventParticipantJoined})
	}

	assert.Len(t, drain(slow), 1, "overflow events are dropped for the slow subscriber")
	assert.Len(t, drain(fast), 5, "the fast subscriber is unaffected")
}

func TestRemoveClosesOutboxAndStopsDelivery(t *testing.T) {
	h := testHub()
	ch := LobbyChannel(uuid.New())

	sub := h.NewSubscriber(8)
	h.Subscribe(sub, ch)
	h.Remove(sub)

	// Publishing after removal reaches nobody and must not panic on the
	// closed outbox.
	h.Publish(Event{Channel: ch, Type: EventLobbyClosed})

	_, open := <-sub.Out
	assert.False(t, open)
}

func TestRemoveRacingFanoutNeverPanics(t *testing.T) {
	h := testHub()
	ch := LobbyChannel(uuid.New())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			h.Publish(Event{Channel: ch, Type: EventParticipantJoined})
		}
	}()

	// Churn subscribers against the publish loop: a fanout that snapshotted
	// a subscriber right before Remove must drop, not send on closed.
	for i := 0; i < 500; i++ {
		sub := h.NewSubscriber(1)
		h.Subscribe(sub, ch)
		h.Remove(sub)
	}
	<-done
}

func TestChannelNames(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "lobby:11111111-2222-3333-4444-555555555555", LobbyChannel(id))
	assert.Equal(t, "game:11111111-2222-3333-4444-555555555555", GameChannel(id))
	assert.Equal(t, "session:11111111-2222-3333-4444-555555555555", SessionChannel(id))
}
