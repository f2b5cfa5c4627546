package bus

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"parlor/chat"
)

// Tests require Redis running on localhost:6379 and skip otherwise.
const testRedisAddr = "localhost:6379"

func setupTestBus(t *testing.T) *Bus {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { client.Close() })

	channel := fmt.Sprintf("test-chat-%s-%d", t.Name(), time.Now().UnixNano())
	return New(client, channel, log.Default())
}

func TestPublishReachesEverySubscriberIncludingPublisher(t *testing.T) {
	b := setupTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two subscriptions stand in for two server instances.
	received := make(chan chat.Envelope, 2)
	for i := 0; i < 2; i++ {
		if err := b.Subscribe(ctx, func(env chat.Envelope) {
			received <- env
		}); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	want := chat.Envelope{
		Message: chat.Message{
			Room:      "general",
			Sender:    "alice",
			Content:   "fan out",
			Timestamp: time.Now().UTC(),
		},
		Exclude: "conn-1",
	}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			if got.Message.Content != want.Message.Content {
				t.Errorf("Content = %q, want %q", got.Message.Content, want.Message.Content)
			}
			if got.Exclude != want.Exclude {
				t.Errorf("Exclude = %q, want %q", got.Exclude, want.Exclude)
			}
			if !got.Message.Timestamp.Equal(want.Message.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Message.Timestamp, want.Message.Timestamp)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d did not receive the envelope", i)
		}
	}
}

func TestHealthyTracksSubscription(t *testing.T) {
	b := setupTestBus(t)

	if b.Healthy() {
		t.Error("Healthy() = true before Subscribe")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Subscribe(ctx, func(chat.Envelope) {}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !b.Healthy() {
		t.Error("Healthy() = false after Subscribe")
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for b.Healthy() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.Healthy() {
		t.Error("Healthy() = true after subscription context canceled")
	}
}
