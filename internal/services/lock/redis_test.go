package lock

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evn/pos_backend/internal/ledger"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockerExclusive(t *testing.T) {
	locker := NewRedisLocker(newTestClient(t), 5*time.Second)
	ctx := context.Background()
	key := "shift:open:" + uuid.NewString()

	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	if _, err := locker.Lock(ctx, key); !errors.Is(err, ledger.ErrLockBusy) {
		t.Fatalf("second Lock err = %v, want ErrLockBusy", err)
	}

	unlock()
	unlock2, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
