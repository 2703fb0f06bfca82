package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_AcquireRelease(t *testing.T) {
	m := NewKeyedMutex()

	release, err := m.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	release()
	assert.Equal(t, 0, m.Len())

	// Releasing twice is harmless.
	release()
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_SameKeySerializes(t *testing.T) {
	m := NewKeyedMutex()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(context.Background(), "p1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_DifferentKeysDoNotContend(t *testing.T) {
	m := NewKeyedMutex(WithWait(50 * time.Millisecond))

	releaseA, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := m.Acquire(context.Background(), "b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_WaitExceeded(t *testing.T) {
	var observed []bool
	m := NewKeyedMutex(
		WithWait(20*time.Millisecond),
		WithWaitObserver(func(_ string, _ time.Duration, acquired bool) {
			observed = append(observed, acquired)
		}),
	)

	release, err := m.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.True(t, errors.Is(err, ErrWaitExceeded))

	var conflict *domain.ConcurrencyConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "acquire project lock", conflict.Op)

	assert.Equal(t, []bool{true, false}, observed)
	assert.Equal(t, 1, m.Len(), "timed-out waiter must drop its reference")
}

func TestKeyedMutex_CallerCancel(t *testing.T) {
	m := NewKeyedMutex()

	release, err := m.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Acquire(ctx, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrWaitExceeded)
}

func TestKeyedMutex_HandOff(t *testing.T) {
	m := NewKeyedMutex(WithWait(time.Second))

	release, err := m.Acquire(context.Background(), "p1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		r, err := m.Acquire(context.Background(), "p1")
		if err == nil {
			r()
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}
	assert.Equal(t, 0, m.Len())
}
