package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacer_ZeroIsUnlimited(t *testing.T) {
	p := NewPacer(0)
	assert.True(t, p.Unlimited())

	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
}

func TestNilPacer(t *testing.T) {
	var p *Pacer
	assert.True(t, p.Unlimited())
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPacer_WaitHonoursCancellation(t *testing.T) {
	p := NewPacer(0.001)
	require.False(t, p.Unlimited())

	// first token is available from the burst
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacer_CancelledContextUnlimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewPacer(0).Wait(ctx), context.Canceled)
}
