package events

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evn/pos_backend/internal/models"
)

func TestRedisPublisherRelaysToHub(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	c := &Client{Send: make(chan []byte, 4), BranchID: "b1"}
	hub.Register(c)

	go Relay(ctx, client, hub)

	pub := NewRedisPublisher(client)
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	// The relay subscribes asynchronously; publish until a message lands.
	for {
		select {
		case msg := <-c.Send:
			if !strings.Contains(string(msg), `"shift.opened"`) {
				t.Fatalf("message = %s", msg)
			}
			return
		case <-tick.C:
			if err := pub.Publish(ctx, models.ShiftEvent{Type: models.EventShiftOpened, BranchID: "b1", ShiftID: "s1"}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		case <-deadline:
			t.Fatalf("no event relayed")
		}
	}
}
