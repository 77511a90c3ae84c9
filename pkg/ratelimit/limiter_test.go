package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketRefills(t *testing.T) {
	clk := testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tb := NewTokenBucket(2, time.Minute, clk)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clk.Advance(59 * time.Second)
	assert.False(t, tb.Allow())

	clk.Advance(time.Second)
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitUnblocksAfterRefill(t *testing.T) {
	clk := testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tb := NewTokenBucket(1, time.Minute, clk)
	require.True(t, tb.Allow())

	done := make(chan error, 1)
	go func() { done <- tb.Wait(context.Background()) }()

	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after refill")
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	tb := NewTokenBucket(1, time.Minute, clk)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.Canceled)
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, PerMinute(0, nil))
	assert.NotNil(t, PerMinute(30, nil))
}
