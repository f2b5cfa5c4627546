// Package presence tracks which usernames are present in which rooms
// through Redis sets, shared by every server instance.
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const roomKeyPattern = "room:*:users"

// Tracker records room membership in per-room Redis sets. Set add/remove
// are single-key atomic commands, so concurrent calls from many instances
// never race on a read-modify-write.
type Tracker struct {
	client *redis.Client
}

func New(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func roomKey(room string) string {
	return "room:" + room + ":users"
}

// Add inserts the username into the room's set. Duplicate adds are no-ops.
func (t *Tracker) Add(ctx context.Context, room, username string) error {
	if err := t.client.SAdd(ctx, roomKey(room), username).Err(); err != nil {
		return fmt.Errorf("presence add failed: %w", err)
	}
	return nil
}

// Remove drops the username from the room's set, a no-op when absent.
func (t *Tracker) Remove(ctx context.Context, room, username string) error {
	if err := t.client.SRem(ctx, roomKey(room), username).Err(); err != nil {
		return fmt.Errorf("presence remove failed: %w", err)
	}
	return nil
}

// Members returns the usernames currently present in the room.
func (t *Tracker) Members(ctx context.Context, room string) ([]string, error) {
	members, err := t.client.SMembers(ctx, roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members failed: %w", err)
	}
	return members, nil
}

// ListActive returns the union of present usernames across all rooms.
func (t *Tracker) ListActive(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := t.client.Scan(ctx, cursor, roomKeyPattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("presence scan failed: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil, nil
	}

	active, err := t.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence union failed: %w", err)
	}
	return active, nil
}
