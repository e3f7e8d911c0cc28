package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusive(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "ticket:1", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "ticket:1", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.Acquire(ctx, "ticket:2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "ticket:1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestMemoryLockerExpires(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }

	stale, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	// releasing the expired holder must not drop the new one
	stale()
	_, err = l.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)
	fresh()
}
