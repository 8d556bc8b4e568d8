package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script writes an executable shell script into a temp dir.
func script(t *testing.T, name, body string) Command {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts only")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return Command{Path: path}
}

func TestFeeder_RaiseAndLower(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hopper.log")
	raise := script(t, "raise", `echo "up $OPERANT_HOPPER_MS" >> `+out)
	lower := script(t, "lower", `echo down >> `+out)

	f, err := NewFeeder(raise, lower, nil)
	require.NoError(t, err)
	require.NoError(t, f.ActivateFeeder(context.Background(), 30*time.Millisecond))

	assert.Eventually(t, func() bool {
		b, _ := os.ReadFile(out)
		return string(b) == "up 30\ndown\n"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeeder_ExitErrorIsRecoverable(t *testing.T) {
	raise := script(t, "raise", `echo "relay busy" >&2; exit 3`)
	lower := script(t, "lower", `exit 0`)

	f, err := NewFeeder(raise, lower, nil)
	require.NoError(t, err)

	err = f.ActivateFeeder(context.Background(), time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDeviceFault)
	assert.Contains(t, err.Error(), "relay busy")
	assert.NoError(t, f.Close())
}

func TestNewFeeder_MissingCommand(t *testing.T) {
	_, err := NewFeeder(Command{Path: "/nonexistent/relay"}, Command{Path: "/nonexistent/relay"}, nil)
	assert.ErrorIs(t, err, domain.ErrDeviceFault)
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("  relayctl  --board 1 on ")
	require.NoError(t, err)
	assert.Equal(t, Command{Path: "relayctl", Args: []string{"--board", "1", "on"}}, c)

	_, err = ParseCommand(" ")
	assert.Error(t, err)
}
