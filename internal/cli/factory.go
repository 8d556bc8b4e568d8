package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/aretw0/operant/internal/adapters/console"
	"github.com/aretw0/operant/internal/adapters/file"
	"github.com/aretw0/operant/internal/adapters/gpio"
	httpadapter "github.com/aretw0/operant/internal/adapters/http"
	"github.com/aretw0/operant/internal/adapters/process"
	"github.com/aretw0/operant/internal/adapters/redis"
	"github.com/aretw0/operant/internal/adapters/sim"
	"github.com/aretw0/operant/internal/chamber"
	"github.com/aretw0/operant/internal/config"
	"github.com/aretw0/operant/pkg/ports"
)

// createRig wires the display and feeder selected by the configuration.
// The mode only decides the feeder; either display works in both modes.
func createRig(cfg *config.Config, out io.Writer, metrics http.Handler, version string, logger *slog.Logger) (*chamber.Rig, error) {
	var display ports.Display
	switch cfg.Display.Kind {
	case "http":
		opts := []httpadapter.Option{httpadapter.WithLogger(logger), httpadapter.WithVersion(version)}
		if metrics != nil {
			opts = append(opts, httpadapter.WithMetricsHandler(metrics))
		}
		display = httpadapter.NewDisplay(opts...)
	default:
		display = console.NewDisplay(out)
	}

	feeder, err := createFeeder(cfg, out, logger)
	if err != nil {
		return nil, err
	}
	return chamber.New(display, feeder)
}

func createFeeder(cfg *config.Config, out io.Writer, logger *slog.Logger) (ports.Feeder, error) {
	if cfg.Mode != config.ModeHardware {
		return sim.NewFeeder(out, logger), nil
	}

	hw := cfg.Hardware
	if hw.HopperPin != "" {
		opts := []gpio.Option{gpio.WithLogger(logger)}
		if hw.HouseLightPin != "" {
			opts = append(opts, gpio.WithHouseLight(gpio.Pin{Path: hw.HouseLightPin}))
		}
		f, err := gpio.NewFeeder(gpio.Pin{Path: hw.HopperPin, ActiveLow: hw.HopperActiveLow}, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open hopper: %w", err)
		}
		return f, nil
	}

	raise, err := process.ParseCommand(hw.RaiseCommand)
	if err != nil {
		return nil, fmt.Errorf("raise_command: %w", err)
	}
	lower, err := process.ParseCommand(hw.LowerCommand)
	if err != nil {
		return nil, fmt.Errorf("lower_command: %w", err)
	}
	f, err := process.NewFeeder(raise, lower, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up hopper commands: %w", err)
	}
	return f, nil
}

// createJournal opens the trial journal: Redis when an address is configured,
// JSONL files otherwise. The returned closer is never nil.
func createJournal(cfg *config.Config) (ports.Journal, func() error, error) {
	if cfg.Journal.RedisAddr != "" {
		var opts []redis.Option
		if cfg.Journal.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Journal.TTL))
		}
		j := redis.New(cfg.Journal.RedisAddr, cfg.Journal.RedisPassword, cfg.Journal.RedisDB, opts...)
		return j, j.Close, nil
	}
	return file.NewJournal(cfg.Journal.Dir), func() error { return nil }, nil
}

// subjectDir is where a subject's data and event logs live.
func subjectDir(cfg *config.Config, subject string) string {
	return filepath.Join(cfg.DataDir, subject)
}
