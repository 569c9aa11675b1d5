package wait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := For(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFor_NonPositiveDurationReturnsImmediately(t *testing.T) {
	start := time.Now()
	require.NoError(t, For(context.Background(), 0))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestBetween_StaysWithinBounds(t *testing.T) {
	start := time.Now()
	require.NoError(t, Between(context.Background(), 10*time.Millisecond, 30*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestBetween_ZeroBoundsDoNotPanic(t *testing.T) {
	require.NoError(t, Between(context.Background(), 0, 0))
}
