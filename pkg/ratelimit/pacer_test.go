package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_Disabled(t *testing.T) {
	p := NewPacer(0, 1)
	start := time.Now()
	for range 50 {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_SpacesSends(t *testing.T) {
	p := NewPacer(30*time.Millisecond, 1)
	start := time.Now()
	for range 3 {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestPacer_ContextCanceled(t *testing.T) {
	p := NewPacer(time.Hour, 1)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacer_Nil(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))
}
