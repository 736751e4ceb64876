package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/redis/go-redis/v9"

	"draw-service/pkg/errorx"
)

// Locker serialises work on a key. Release must be called exactly once after
// a successful Acquire; extra calls are ignored.
type Locker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

func userLockKey(userID string) string { return "lock:user:" + userID }
func drawLockKey(drawID string) string { return "lock:draw:" + drawID }

// LocalLocker is an in-process keyed mutex backed by one-slot semaphores. A
// key is dropped once nobody holds or waits on it.
type LocalLocker struct {
	sems *xsync.MapOf[string, *keySem]
}

type keySem struct {
	mu   sync.Mutex
	refs int
	dead bool
	ch   chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sems: xsync.NewMapOf[*keySem]()}
}

// ref returns the live semaphore of key with the caller counted in.
func (l *LocalLocker) ref(key string) *keySem {
	for {
		ks, _ := l.sems.LoadOrCompute(key, func() *keySem {
			return &keySem{ch: make(chan struct{}, 1)}
		})
		ks.mu.Lock()
		if !ks.dead {
			ks.refs++
			ks.mu.Unlock()
			return ks
		}
		ks.mu.Unlock()
	}
}

func (l *LocalLocker) unref(key string, ks *keySem) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.refs--
	if ks.refs == 0 {
		ks.dead = true
		l.sems.Delete(key)
	}
}

// Keys is the number of keys currently held or waited on.
func (l *LocalLocker) Keys() int {
	return l.sems.Size()
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	ks := l.ref(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ks.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-ks.ch
				l.unref(key, ks)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, ks)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key, ks)
		return nil, errorx.New(errorx.ConcurrentModification, "lock %s busy", key)
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker holds keys with SET NX PX so several instances share one lock
// space. A crashed holder frees its key after TTL.
type RedisLocker struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Client: client, TTL: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, errorx.Wrap(errorx.Internal, err, "lock %s", key)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the caller's ctx may already be done
					releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = releaseScript.Run(releaseCtx, l.Client, []string{key}, token).Err()
				})
			}, nil
		}

		if time.Now().Add(backoff).After(deadline) {
			return nil, errorx.New(errorx.ConcurrentModification, "lock %s busy", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}
