// Package bus fans chat messages out to every server instance over Redis
// pub/sub. One channel serves the whole deployment.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"parlor/chat"
)

// Bus publishes and consumes message envelopes. Every published envelope
// reaches every subscriber, including the publishing instance; delivery
// order across instances is best-effort.
type Bus struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
	healthy atomic.Bool
}

func New(client *redis.Client, channel string, logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{client: client, channel: channel, logger: logger}
}

func (b *Bus) Publish(ctx context.Context, env chat.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus marshal failed: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("bus publish failed: %w", err)
	}
	return nil
}

// Subscribe attaches the handler to the deployment channel. It confirms the
// subscription before returning, then consumes in a goroutine until ctx is
// canceled. If the subscription drops while the context is still live the
// instance is marked unhealthy: without the bus it cannot take part in
// cross-instance fan-out.
func (b *Bus) Subscribe(ctx context.Context, handler func(chat.Envelope)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("bus subscribe failed: %w", err)
	}
	b.healthy.Store(true)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				b.healthy.Store(false)
				return
			case msg, ok := <-ch:
				if !ok {
					b.healthy.Store(false)
					b.logger.Printf("Bus subscription closed, instance no longer receives broadcasts")
					return
				}
				var env chat.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Printf("Dropping malformed bus payload: %v", err)
					continue
				}
				handler(env)
			}
		}
	}()

	return nil
}

// Healthy reports whether the instance still holds a live subscription.
func (b *Bus) Healthy() bool {
	return b.healthy.Load()
}
