package memlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

func TestAccountLock_LockAndRelease(t *testing.T) {
	ctx := context.Background()
	lock := NewAccountLock(0)
	id := domain.NewAccountID()

	require.NoError(t, lock.LockAccount(ctx, id))
	require.NoError(t, lock.ReleaseAccount(ctx, id))
	assert.Equal(t, 0, lock.size())

	// Releasing twice fails
	assert.ErrorIs(t, lock.ReleaseAccount(ctx, id), ErrLockNotHeld)
}

func TestAccountLock_IndependentAccounts(t *testing.T) {
	ctx := context.Background()
	lock := NewAccountLock(50 * time.Millisecond)

	a := domain.NewAccountID()
	b := domain.NewAccountID()

	require.NoError(t, lock.LockAccount(ctx, a))
	require.NoError(t, lock.LockAccount(ctx, b))
	require.NoError(t, lock.ReleaseAccount(ctx, b))
	require.NoError(t, lock.ReleaseAccount(ctx, a))
}

func TestAccountLock_Timeout(t *testing.T) {
	ctx := context.Background()
	lock := NewAccountLock(20 * time.Millisecond)
	id := domain.NewAccountID()

	require.NoError(t, lock.LockAccount(ctx, id))

	err := lock.LockAccount(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The failed waiter must not leave the lock in a broken state
	require.NoError(t, lock.ReleaseAccount(ctx, id))
	require.NoError(t, lock.LockAccount(ctx, id))
	require.NoError(t, lock.ReleaseAccount(ctx, id))
	assert.Equal(t, 0, lock.size())
}

func TestAccountLock_ContextCancelled(t *testing.T) {
	lock := NewAccountLock(0)
	id := domain.NewAccountID()
	require.NoError(t, lock.LockAccount(context.Background(), id))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, lock.LockAccount(ctx, id), context.Canceled)
}

func TestAccountLock_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	lock := NewAccountLock(0)
	id := domain.NewAccountID()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, lock.LockAccount(ctx, id)) {
				return
			}

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)

			assert.NoError(t, lock.ReleaseAccount(ctx, id))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, lock.size())
}
