// internal/broadcast/hub.go
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subscriber is one client's registration with the hub. Its Out channel is
// drained by the transport layer (the websocket write pump); delivery is
// non-blocking and slow consumers drop events rather than stalling the hub.
type Subscriber struct {
	ID  uuid.UUID
	Out chan Event

	mu       sync.Mutex
	closed   bool
	channels map[string]struct{}
}

// trySend delivers without blocking. Returns false when the outbox is full;
// a send after Remove is silently dropped so an in-flight fanout that
// snapshotted this subscriber never hits a closed channel.
func (s *Subscriber) trySend(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.Out <- ev:
		return true
	default:
		return false
	}
}

// Channels returns a snapshot of the subscriber's current channel set.
func (s *Subscriber) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Hub routes events to local subscribers by channel name. A client holds a
// single Subscriber for its whole connection and changes its channel set
// with Subscribe/Unsubscribe, never by reconnecting.
type Hub struct {
	mu       sync.RWMutex
	byChan   map[string]map[*Subscriber]struct{}
	instance string
	logger   *logrus.Logger
}

// NewHub creates an empty hub. The instance id tags outgoing events so the
// redis bridge can tell its own publications apart from other engines'.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		byChan:   make(map[string]map[*Subscriber]struct{}),
		instance: uuid.NewString(),
		logger:   logger,
	}
}

// Instance returns this hub's origin tag.
func (h *Hub) Instance() string { return h.instance }

// NewSubscriber registers an empty subscription with the given outbound
// buffer. The caller must Remove it when the connection ends.
func (h *Hub) NewSubscriber(buffer int) *Subscriber {
	return &Subscriber{
		ID:       uuid.New(),
		Out:      make(chan Event, buffer),
		channels: make(map[string]struct{}),
	}
}

// Subscribe adds the subscriber to each named channel. Subscribing to a
// channel twice is a no-op.
func (h *Hub) Subscribe(sub *Subscriber, channels ...string) {
	sub.mu.Lock()
	added := channels[:0:0]
	for _, ch := range channels {
		if _, ok := sub.channels[ch]; !ok {
			sub.channels[ch] = struct{}{}
			added = append(added, ch)
		}
	}
	sub.mu.Unlock()

	if len(added) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range added {
		set, ok := h.byChan[ch]
		if !ok {
			set = make(map[*Subscriber]struct{})
			h.byChan[ch] = set
		}
		set[sub] = struct{}{}
	}
}

// Unsubscribe removes the subscriber from each named channel.
func (h *Hub) Unsubscribe(sub *Subscriber, channels ...string) {
	sub.mu.Lock()
	for _, ch := range channels {
		delete(sub.channels, ch)
	}
	sub.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if set, ok := h.byChan[ch]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.byChan, ch)
			}
		}
	}
}

// Remove drops the subscriber from every channel and closes its outbox. The
// closed flag commits under the subscriber lock before the close, so a
// concurrent fanout drops the event instead of panicking.
func (h *Hub) Remove(sub *Subscriber) {
	h.Unsubscribe(sub, sub.Channels()...)
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.Out)
	}
	sub.mu.Unlock()
}

// Publish stamps the event and delivers it to local subscribers, then hands
// it to the redis bridge (if connected) for other instances. Never blocks.
func (h *Hub) Publish(ev Event) {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now().UTC()
	}
	ev.Origin = h.instance
	h.deliverLocal(ev)
	publishRemote(h.logger, ev)
}

// deliverLocal fans out to subscribers of ev.Channel without blocking; a
// full outbox drops the event for that subscriber only.
func (h *Hub) deliverLocal(ev Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.byChan[ev.Channel]))
	for sub := range h.byChan[ev.Channel] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.trySend(ev) {
			h.logger.WithFields(logrus.Fields{
				"subscriber": sub.ID,
				"channel":    ev.Channel,
				"type":       ev.Type,
			}).Warn("subscriber outbox full, dropping event")
		}
	}
}
