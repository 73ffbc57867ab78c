package lock

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/pkg/redis"
)

func setupLock(t *testing.T) (*miniredis.Miniredis, *ReferenceLock) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// Unique connection name per test, the adapter registry caches by name.
	adapter, err := redis.NewRedisAdapter("lock-test-"+t.Name(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, New(adapter)
}

func TestReferenceLock_Acquire(t *testing.T) {
	_, l := setupLock(t)

	release, err := l.Acquire("ZING-1-aaaaaaaa")
	require.NoError(t, err)
	require.NotNil(t, release)

	t.Run("second acquire fails while held", func(t *testing.T) {
		_, err := l.Acquire("ZING-1-aaaaaaaa")
		assert.ErrorIs(t, err, ErrLockHeld)
	})

	t.Run("different reference is independent", func(t *testing.T) {
		release2, err := l.Acquire("ZING-2-bbbbbbbb")
		require.NoError(t, err)
		release2()
	})

	t.Run("release frees the reference", func(t *testing.T) {
		release()
		release2, err := l.Acquire("ZING-1-aaaaaaaa")
		require.NoError(t, err)
		release2()
	})
}

func TestReferenceLock_TTLExpiry(t *testing.T) {
	mr, l := setupLock(t)

	_, err := l.Acquire("ZING-3-cccccccc")
	require.NoError(t, err)

	mr.FastForward(defaultTTL * 2)

	release, err := l.Acquire("ZING-3-cccccccc")
	require.NoError(t, err)
	release()
}
