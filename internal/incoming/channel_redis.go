package incoming

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisChannel delivers inbound rings over a redis pub/sub channel. The
// telephony webhook publishes a Ring for every inbound voice call; every API
// instance subscribed to the workspace channel surfaces it.
type RedisChannel struct {
	rdb *redis.Client
	key string
	log *slog.Logger
}

// RingChannelKey names the pub/sub channel for a workspace.
func RingChannelKey(workspaceID string) string {
	return "ring:" + workspaceID
}

func NewRedisChannel(rdb *redis.Client, workspaceID string, log *slog.Logger) *RedisChannel {
	if log == nil {
		log = slog.Default()
	}
	return &RedisChannel{rdb: rdb, key: RingChannelKey(workspaceID), log: log}
}

func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan Ring, func(), error) {
	sub := c.rdb.Subscribe(ctx, c.key)
	// Force the subscription to be established before we report success.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Ring, 8)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var r Ring
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				c.log.Warn("malformed ring payload", "err", err)
				continue
			}
			out <- r
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			c.log.Warn("ring unsubscribe failed", "err", err)
		}
	}
	return out, cancel, nil
}

// PublishRing pushes an inbound ring onto the workspace channel. Used by the
// telephony webhook handler.
func PublishRing(ctx context.Context, rdb *redis.Client, workspaceID string, r Ring) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, RingChannelKey(workspaceID), payload).Err()
}
