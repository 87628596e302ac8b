package notifier

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// ChangeChannel is the pub/sub channel carrying change signals between
// instances. The message body is ignored; receipt alone means "re-fetch".
const ChangeChannel = "licensehub:changes"

// RedisNotifier publishes change signals through Redis so every instance,
// including the one that performed the write, fans out to its own sessions.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier connects a notifier to the given Redis instance.
func NewRedisNotifier(addr string, password string, db int) *RedisNotifier {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisNotifier{client: rdb}
}

// Announce publishes one change signal to all subscribed instances.
func (n *RedisNotifier) Announce(ctx context.Context) error {
	return n.client.Publish(ctx, ChangeChannel, "changed").Err()
}

// Relay subscribes to the change channel and rebroadcasts every received
// signal into the local hub. It blocks until ctx is cancelled; run it in
// its own goroutine.
func (n *RedisNotifier) Relay(ctx context.Context, hub *Hub) {
	pubsub := n.client.Subscribe(ctx, ChangeChannel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Printf("failed to close pubsub: %v", err)
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast()
		}
	}
}

func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
