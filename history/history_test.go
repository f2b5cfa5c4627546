package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"parlor/chat"
)

// Tests require Redis running on localhost:6379 and skip otherwise.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T, limit int) (*Cache, string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	room := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		client.Del(ctx, roomKey(room))
		client.Close()
	})

	return New(client, limit), room
}

func testMessage(room string, i int) chat.Message {
	return chat.Message{
		Room:      room,
		Sender:    "alice",
		Content:   fmt.Sprintf("message %d", i),
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second),
	}
}

func TestRecentEmptyRoom(t *testing.T) {
	cache, room := setupTestCache(t, 20)

	msgs, err := cache.Recent(context.Background(), room)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Recent() on empty room returned %d messages, want 0", len(msgs))
	}
}

func TestAppendKeepsChronologicalTail(t *testing.T) {
	cache, room := setupTestCache(t, 20)
	ctx := context.Background()

	const total = 30
	for i := 0; i < total; i++ {
		if err := cache.Append(ctx, testMessage(room, i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	msgs, err := cache.Recent(ctx, room)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	if len(msgs) != 20 {
		t.Fatalf("Recent() returned %d messages, want 20", len(msgs))
	}

	// The tail of everything appended, oldest evicted first.
	for i, msg := range msgs {
		want := fmt.Sprintf("message %d", total-20+i)
		if msg.Content != want {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msg.Content, want)
		}
		if i > 0 && msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Errorf("msgs[%d] out of chronological order", i)
		}
	}
}

func TestAppendPreservesTimestampPrecision(t *testing.T) {
	cache, room := setupTestCache(t, 20)
	ctx := context.Background()

	want := chat.Message{
		Room:      room,
		Sender:    "bob",
		Content:   "precise",
		Timestamp: time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC),
	}
	if err := cache.Append(ctx, want); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	msgs, err := cache.Recent(ctx, room)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Recent() returned %d messages, want 1", len(msgs))
	}
	if !msgs[0].Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", msgs[0].Timestamp, want.Timestamp)
	}
}

func TestFillRepopulatesCache(t *testing.T) {
	cache, room := setupTestCache(t, 20)
	ctx := context.Background()

	var stored []chat.Message
	for i := 0; i < 5; i++ {
		stored = append(stored, testMessage(room, i))
	}

	if err := cache.Fill(ctx, room, stored); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	msgs, err := cache.Recent(ctx, room)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("Recent() returned %d messages, want 5", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Content != stored[i].Content {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msg.Content, stored[i].Content)
		}
	}
}

func TestFillEmptyIsNoOp(t *testing.T) {
	cache, room := setupTestCache(t, 20)

	if err := cache.Fill(context.Background(), room, nil); err != nil {
		t.Fatalf("Fill(nil) error = %v", err)
	}
}

func TestConfigurableBound(t *testing.T) {
	cache, room := setupTestCache(t, 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := cache.Append(ctx, testMessage(room, i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	msgs, err := cache.Recent(ctx, room)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("Recent() returned %d messages, want 3", len(msgs))
	}
}
