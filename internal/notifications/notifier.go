package notifications

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const eventChannelPrefix = "events:"

// Notifier publishes hub events into Redis so that every server instance
// can deliver them to its own websocket clients. A nil Redis client turns
// both publish and subscribe into no-ops; callers then fall back to
// in-process delivery.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether cross-process delivery is available.
func (n *Notifier) Enabled() bool { return n != nil && n.rdb != nil }

// Publish sends payload to the Redis channel for topic.
func (n *Notifier) Publish(ctx context.Context, topic Topic, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, eventChannelPrefix+string(topic), payload).Err()
}

// StartSubscriber subscribes to the `events:*` pattern and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, eventChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in event subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
