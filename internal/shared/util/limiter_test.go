package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	assert.True(t, l.Allow(1), "first token")
	assert.True(t, l.Allow(1), "second token (burst)")
	assert.False(t, l.Allow(1), "burst exhausted")

	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Allow(1), "token refilled after wait")
}

func TestIntervalLimiter(t *testing.T) {
	l := NewIntervalLimiter(time.Hour)
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))

	unlimited := NewIntervalLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow(1))
	}
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := NewIntervalLimiter(time.Hour)
	require.True(t, l.Allow(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, 1))
}
