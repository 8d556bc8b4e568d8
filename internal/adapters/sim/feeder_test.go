package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeder(t *testing.T) {
	var buf bytes.Buffer
	f := NewFeeder(&buf, nil)

	require.NoError(t, f.ActivateFeeder(context.Background(), 20*time.Millisecond))
	assert.True(t, f.Raised())
	assert.Contains(t, buf.String(), "hopper up for 20ms")
	assert.Eventually(t, func() bool { return !f.Raised() }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.ActivateFeeder(context.Background(), time.Hour))
	n, total := f.Pulses()
	assert.Equal(t, 2, n)
	assert.Equal(t, time.Hour+20*time.Millisecond, total)

	require.NoError(t, f.Close())
	assert.False(t, f.Raised())
}

func TestFeeder_Cancelled(t *testing.T) {
	f := NewFeeder(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, f.ActivateFeeder(ctx, time.Second))
	n, _ := f.Pulses()
	assert.Zero(t, n)
}
