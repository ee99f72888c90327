package lock_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"retail-sim/internal/config"
	"retail-sim/internal/core"
	"retail-sim/internal/lock"
	"retail-sim/internal/logger"

	"github.com/google/uuid"
)

func exerciseLocker(t *testing.T, l core.SessionLocker) {
	ctx := context.Background()
	session := uuid.NewString()

	unlock, err := l.TryLock(ctx, session)
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if _, err := l.TryLock(ctx, session); !errors.Is(err, core.ErrCommitInProgress) {
		t.Errorf("second TryLock err = %v, want ErrCommitInProgress", err)
	}

	other, err := l.TryLock(ctx, uuid.NewString())
	if err != nil {
		t.Errorf("other session blocked: %v", err)
	} else {
		other()
	}

	unlock()
	again, err := l.TryLock(ctx, session)
	if err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
	again()
}

func TestLocalLocker(t *testing.T) {
	exerciseLocker(t, lock.NewLocalLocker())
}

func TestLocalLocker_OneWinnerUnderContention(t *testing.T) {
	l := lock.NewLocalLocker()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryLock(context.Background(), "s"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestNew_FallsBackToLocal(t *testing.T) {
	l, closeFn, err := lock.New(context.Background(), config.RedisConfig{}, logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()
	if _, ok := l.(*lock.LocalLocker); !ok {
		t.Errorf("locker = %T, want *lock.LocalLocker", l)
	}
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping integration test")
	}
	cfg := config.RedisConfig{URL: url, LockTTL: 5 * time.Second, KeyPrefix: "retail-sim-test:"}
	l, closeFn, err := lock.New(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()
	exerciseLocker(t, l)
}
