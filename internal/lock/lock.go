package lock

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
)

var (
	// ErrLockHeld is returned when another worker holds the reference lock.
	ErrLockHeld = errors.New("reference lock held")
)

const defaultTTL = 30 * time.Second

// ReferenceLock serializes state transitions per payment reference. Verify
// calls and webhook deliveries for the same reference can land at the same
// time; the database's conditional update is the correctness backstop, the
// lock keeps the losers from doing wasted bank calls and receipt work.
type ReferenceLock struct {
	redis  redis.RedisAdapter
	prefix string
	ttl    time.Duration
}

func New(redisAdapter redis.RedisAdapter) *ReferenceLock {
	return &ReferenceLock{
		redis:  redisAdapter,
		prefix: "payment:lock:",
		ttl:    defaultTTL,
	}
}

// Acquire takes the lock for a reference. The returned release func is
// safe to defer; it only logs on failure because the TTL bounds the
// damage of a leaked lock.
func (l *ReferenceLock) Acquire(reference string) (func(), error) {
	key := l.prefix + reference
	value := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := l.redis.SetNX(key, value, l.ttl)
	if err != nil {
		return nil, errors.Wrap(err, "acquire reference lock")
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	release := func() {
		if err := l.redis.Del(key); err != nil {
			logger.Warn("failed to release reference lock", "reference", reference, "error", err)
		}
	}
	return release, nil
}
