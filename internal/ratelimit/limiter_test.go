package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BurstEqualsRate(t *testing.T) {
	l := New("gutendex", 2)
	assert.Equal(t, "gutendex", l.Name())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestNew_NonPositiveRateIsUnlimited(t *testing.T) {
	l := New("unlimited", 0)
	for range 100 {
		require.True(t, l.Allow())
	}
}

func TestEvery(t *testing.T) {
	l := Every("slow", time.Hour)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestWait_CancelledContext(t *testing.T) {
	l := Every("slow", time.Hour)
	require.True(t, l.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait for slow")
}
