// internal/broadcast/redis.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the global Redis client bridging events between engine instances.
// It is optional: when nil, the hub delivers to local subscribers only.
var Rdb *redis.Client

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// publishRemote pushes the event to the identically-named redis channel so
// subscribers attached to other engine instances receive it. Fire-and-forget:
// failures are logged, never surfaced to the mutating request.
func publishRemote(logger *logrus.Logger, ev Event) {
	if Rdb == nil {
		return
	}
	go func(ev Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Warnf("failed to marshal event for redis publish: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := Rdb.Publish(ctx, ev.Channel, data).Err(); err != nil {
			logger.Warnf("redis publish on %s failed: %v", ev.Channel, err)
		}
	}(ev)
}

// RunRedisBridge pattern-subscribes to all three channel families and feeds
// events originated by other instances into the local hub. Blocks until ctx
// is cancelled; run it in its own goroutine after ConnectRedis.
func RunRedisBridge(ctx context.Context, hub *Hub, logger *logrus.Logger) {
	if Rdb == nil {
		return
	}
	sub := Rdb.PSubscribe(ctx, "lobby:*", "game:*", "session:*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warnf("redis bridge: bad event payload on %s: %v", msg.Channel, err)
				continue
			}
			if ev.Origin == hub.Instance() {
				continue // our own publication echoed back
			}
			hub.deliverLocal(ev)
		}
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
