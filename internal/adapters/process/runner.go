// Package process drives the hopper through external commands, for relay
// boards that ship their own control tool.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
)

// Command is an allow-listed executable and its fixed arguments.
type Command struct {
	Path string
	Args []string
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}
	return Command{Path: fields[0], Args: fields[1:]}, nil
}

// Feeder implements ports.Feeder by running Raise, then Lower once the pulse
// has elapsed. The pulse duration is passed in the environment as
// OPERANT_HOPPER_MS, never as arguments.
type Feeder struct {
	Raise Command
	Lower Command

	mu     sync.Mutex
	timer  *time.Timer
	logger *slog.Logger
}

// NewFeeder creates a command feeder. Both commands must resolve on PATH.
func NewFeeder(raise, lower Command, logger *slog.Logger) (*Feeder, error) {
	for _, c := range []Command{raise, lower} {
		if _, err := exec.LookPath(c.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDeviceFault, err)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Feeder{Raise: raise, Lower: lower, logger: logger}, nil
}

func (f *Feeder) ActivateFeeder(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	if err := f.run(ctx, f.Raise, d); err != nil {
		return err
	}
	f.timer = time.AfterFunc(d, func() {
		if err := f.run(context.Background(), f.Lower, d); err != nil {
			f.logger.Error("lower hopper failed", "err", err)
		}
	})
	return nil
}

// run executes c. A command that cannot start is a device fault; a non-zero
// exit is reported with its stderr and left to the caller to record.
func (f *Feeder) run(ctx context.Context, c Command, d time.Duration) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(cmd.Environ(), "OPERANT_HOPPER_MS="+strconv.FormatInt(d.Milliseconds(), 10))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s exited with %d: %s", c.Path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDeviceFault, c.Path, err)
}

// Close cancels a pending pulse and lowers the hopper.
func (f *Feeder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	return f.run(context.Background(), f.Lower, 0)
}
