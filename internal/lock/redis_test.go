package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// testRedis connects to REDIS_ADDR. Tests using it are skipped when the
// variable is unset.
func testRedis(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisLocker_SerializesSameKey(t *testing.T) {
	l := NewRedisLocker(testRedis(t), 5*time.Second, 5*time.Millisecond, zap.NewNop())
	key := "test:" + uuid.NewString()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
}

func TestRedisLocker_ExpiredHolderCannotRelease(t *testing.T) {
	rdb := testRedis(t)
	l := NewRedisLocker(rdb, 100*time.Millisecond, 5*time.Millisecond, zap.NewNop())
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	stale, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	// The first holder's ttl lapses and a second caller takes the key.
	current, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	stale()
	if n, err := rdb.Exists(ctx, redisKeyPrefix+key).Result(); err != nil || n != 1 {
		t.Fatalf("after stale release: exists=%d err=%v", n, err)
	}
	current()
	if n, err := rdb.Exists(ctx, redisKeyPrefix+key).Result(); err != nil || n != 0 {
		t.Fatalf("after owner release: exists=%d err=%v", n, err)
	}
}

func TestRedisLocker_ContextTimeout(t *testing.T) {
	l := NewRedisLocker(testRedis(t), 5*time.Second, 5*time.Millisecond, zap.NewNop())
	key := "test:" + uuid.NewString()

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, key); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
