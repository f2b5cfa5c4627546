// Package history keeps a bounded per-room buffer of recent messages in
// Redis lists, shared by every server instance.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parlor/chat"
)

// Cache holds the most recent limit messages per room. The bound is a
// product choice, configured rather than hard-coded.
type Cache struct {
	client *redis.Client
	limit  int
}

func New(client *redis.Client, limit int) *Cache {
	return &Cache{client: client, limit: limit}
}

func roomKey(room string) string {
	return "room:" + room + ":messages"
}

// Append pushes the message onto the room's list and trims it to the most
// recent limit entries. Append then trim, in that order, so a concurrent
// reader never observes fewer than the correct tail.
func (c *Cache) Append(ctx context.Context, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("history marshal failed: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, roomKey(msg.Room), data)
	pipe.LTrim(ctx, roomKey(msg.Room), int64(-c.limit), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history append failed: %w", err)
	}
	return nil
}

// Recent returns up to limit cached messages in chronological order. An
// unknown room yields an empty slice, not an error.
func (c *Cache) Recent(ctx context.Context, room string) ([]chat.Message, error) {
	entries, err := c.client.LRange(ctx, roomKey(room), int64(-c.limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history range failed: %w", err)
	}

	msgs := make([]chat.Message, 0, len(entries))
	for _, entry := range entries {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("history unmarshal failed: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Fill bulk-loads messages into the room's list, used to repair a cold
// cache from the durable store. Messages must already be in chronological
// order.
func (c *Cache) Fill(ctx context.Context, room string, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("history marshal failed: %w", err)
		}
		values = append(values, data)
	}

	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, roomKey(room), values...)
	pipe.LTrim(ctx, roomKey(room), int64(-c.limit), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history fill failed: %w", err)
	}
	return nil
}
