// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/classcast/lobbyd/internal/broadcast"
	"github.com/classcast/lobbyd/internal/middleware"
)

// wsClientMessage is what a connected client sends: a subscription change.
// The channel set evolves over the connection's lifetime (a student who
// switches rooms subscribes to the new session channel without
// reconnecting).
type wsClientMessage struct {
	Type     string   `json:"type"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}

// validChannelName accepts only the three channel families.
func validChannelName(ch string) bool {
	return strings.HasPrefix(ch, "lobby:") ||
		strings.HasPrefix(ch, "game:") ||
		strings.HasPrefix(ch, "session:")
}

// WSHandler upgrades the connection and runs the channel transport: a read
// pump applying subscribe/unsubscribe requests and a write pump draining
// the hub subscriber's outbox.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"lobby-events"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "lobby-events" {
		c.Close(BadSubprotocolError, "client must speak the lobby-events subprotocol")
		return
	}

	middleware.LogWebSocketConnect(s.Logger, remoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.Hub.NewSubscriber(32)
	defer s.Hub.Remove(sub)

	go s.eventWritePump(ctx, c, sub)
	readErr := s.subscriptionReadPump(ctx, c, sub)

	middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, r.URL.Path, readErr)
}

// subscriptionReadPump consumes subscription changes until the connection
// closes. Malformed frames get an error reply rather than a disconnect.
func (s *Server) subscriptionReadPump(ctx context.Context, c *websocket.Conn, sub *broadcast.Subscriber) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var req wsClientMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			s.writeWSError(ctx, c, "invalid JSON")
			continue
		}

		channels := req.Channels[:0:0]
		for _, ch := range req.Channels {
			if validChannelName(ch) {
				channels = append(channels, ch)
			}
		}
		if len(channels) == 0 {
			s.writeWSError(ctx, c, "no valid channels in request")
			continue
		}

		switch req.Type {
		case "subscribe":
			s.Hub.Subscribe(sub, channels...)
		case "unsubscribe":
			s.Hub.Unsubscribe(sub, channels...)
		default:
			s.writeWSError(ctx, c, "unknown message type: "+req.Type)
			continue
		}

		ack, _ := json.Marshal(map[string]interface{}{
			"type":     "subscription_ack",
			"channels": sub.Channels(),
		})
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = c.Write(writeCtx, websocket.MessageText, ack)
		cancel()
		if err != nil {
			return err
		}
	}
}

// eventWritePump pushes hub events to the socket and pings periodically.
// A write or ping failure ends the pump; the read pump notices the broken
// connection and cleans up.
func (s *Server) eventWritePump(ctx context.Context, c *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing event: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.WithFields(logrus.Fields{
					"subscriber": sub.ID,
				}).Warnf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("ping failed for subscriber %s, assuming disconnect: %v", sub.ID, err)
				return
			}
		}
	}
}

func (s *Server) writeWSError(ctx context.Context, c *websocket.Conn, msg string) {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": msg})
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = c.Write(writeCtx, websocket.MessageText, data)
}
