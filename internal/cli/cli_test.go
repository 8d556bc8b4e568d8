package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/operant/internal/adapters/console"
	"github.com/aretw0/operant/internal/adapters/file"
	"github.com/aretw0/operant/internal/adapters/gpio"
	httpadapter "github.com/aretw0/operant/internal/adapters/http"
	"github.com/aretw0/operant/internal/adapters/process"
	"github.com/aretw0/operant/internal/adapters/redis"
	"github.com/aretw0/operant/internal/adapters/sim"
	"github.com/aretw0/operant/internal/config"
	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = "Subject,Hopper Duration (ms),Rejection FI Duration (ms),Informative Side,Informative S+,Informative S-,Non-Informative Side,Non-Informative S+,Non-Informative S-\n" +
	"Zappa,3000,5000,Left,green,red,Right,blue,yellow\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.csv")
	require.NoError(t, os.WriteFile(path, []byte(sheet), 0644))

	cfg := config.Defaults()
	cfg.Subject = "Zappa"
	cfg.Settings = path
	cfg.Seed = 7
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Journal.Dir = filepath.Join(dir, "journal")
	cfg.LogLevel = "error"
	return &cfg
}

func TestCreateRig(t *testing.T) {
	logger := logging.NewNop()

	t.Run("Simulated console", func(t *testing.T) {
		rig, err := createRig(testConfig(t), &bytes.Buffer{}, nil, "test", logger)
		require.NoError(t, err)
		assert.IsType(t, &console.Display{}, rig.Display)
		assert.IsType(t, &sim.Feeder{}, rig.Feeder)
		assert.NoError(t, rig.Close())
	})

	t.Run("HTTP display", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Display.Kind = "http"
		rig, err := createRig(cfg, &bytes.Buffer{}, nil, "test", logger)
		require.NoError(t, err)
		assert.IsType(t, &httpadapter.Display{}, rig.Display)
		assert.NoError(t, rig.Close())
	})

	t.Run("GPIO hopper", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = config.ModeHardware
		pin := filepath.Join(t.TempDir(), "value")
		require.NoError(t, os.WriteFile(pin, []byte("1"), 0644))
		cfg.Hardware.HopperPin = pin

		rig, err := createRig(cfg, &bytes.Buffer{}, nil, "test", logger)
		require.NoError(t, err)
		assert.IsType(t, &gpio.Feeder{}, rig.Feeder)

		v, err := os.ReadFile(pin)
		require.NoError(t, err)
		assert.Equal(t, "0", string(v), "the hopper starts lowered")
		assert.NoError(t, rig.Close())
	})

	t.Run("Missing GPIO pin", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = config.ModeHardware
		cfg.Hardware.HopperPin = filepath.Join(t.TempDir(), "missing")
		_, err := createRig(cfg, &bytes.Buffer{}, nil, "test", logger)
		assert.ErrorIs(t, err, domain.ErrDeviceFault)
	})

	t.Run("Hopper commands", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = config.ModeHardware
		cfg.Hardware.RaiseCommand = "true"
		cfg.Hardware.LowerCommand = "true"
		rig, err := createRig(cfg, &bytes.Buffer{}, nil, "test", logger)
		require.NoError(t, err)
		assert.IsType(t, &process.Feeder{}, rig.Feeder)
		assert.NoError(t, rig.Close())
	})
}

func TestCreateJournal(t *testing.T) {
	cfg := testConfig(t)
	j, closer, err := createJournal(cfg)
	require.NoError(t, err)
	assert.IsType(t, &file.Journal{}, j)
	assert.NoError(t, closer())

	mr := miniredis.RunT(t)
	cfg.Journal.RedisAddr = mr.Addr()
	cfg.Journal.TTL = time.Hour
	j, closer, err = createJournal(cfg)
	require.NoError(t, err)
	assert.IsType(t, &redis.Journal{}, j)
	assert.NoError(t, closer())
}

func TestRunSession_AbortBeforeFirstTrial(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := RunSession(RunOptions{
		Config:  cfg,
		Version: "test",
		In:      strings.NewReader("q\n"),
		Out:     &out,
	})
	require.NoError(t, err, "an operator abort is not an error")

	subject := filepath.Join(cfg.DataDir, "Zappa")
	csvs, err := filepath.Glob(filepath.Join(subject, "Zappa_*_P037_data-Phase1.csv"))
	require.NoError(t, err)
	require.Len(t, csvs, 1, "the data file is written even when no trial ran")

	recs, err := file.ReadRecords(csvs[0])
	require.NoError(t, err)
	assert.Empty(t, recs)

	logs, err := filepath.Glob(filepath.Join(subject, "events-*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRunSession_StartupErrors(t *testing.T) {
	t.Run("Unknown subject", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Subject = "Hendrix"
		err := RunSession(RunOptions{Config: cfg, In: strings.NewReader(""), Out: &bytes.Buffer{}})
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
		_, statErr := os.Stat(cfg.DataDir)
		assert.True(t, os.IsNotExist(statErr), "nothing is written before startup succeeds")
	})

	t.Run("Missing settings", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Settings = filepath.Join(t.TempDir(), "none.csv")
		err := RunSession(RunOptions{Config: cfg, In: strings.NewReader(""), Out: &bytes.Buffer{}})
		assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
	})

	t.Run("Display address in use", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer busy.Close()

		cfg := testConfig(t)
		cfg.Display.Kind = "http"
		cfg.Display.Addr = busy.Addr().String()
		err = RunSession(RunOptions{Config: cfg, In: strings.NewReader(""), Out: &bytes.Buffer{}})
		assert.ErrorContains(t, err, "display server on "+busy.Addr().String())
		_, statErr := os.Stat(cfg.DataDir)
		assert.True(t, os.IsNotExist(statErr), "the session never started")
	})

	t.Run("Invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = "dream"
		err := RunSession(RunOptions{Config: cfg, In: strings.NewReader(""), Out: &bytes.Buffer{}})
		assert.ErrorContains(t, err, "invalid mode")
	})
}

func TestPrintSequence(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, PrintSequence(&a, domain.PhaseChoice, 42))
	require.NoError(t, PrintSequence(&b, domain.PhaseChoice, 42))
	assert.Equal(t, a.String(), b.String(), "a seed reproduces its sequence")

	lines := strings.Split(strings.TrimSpace(a.String()), "\n")
	assert.Len(t, lines, 101)
	assert.Contains(t, lines[0], "seed 42")

	var pre bytes.Buffer
	require.NoError(t, PrintSequence(&pre, domain.PhasePretraining, 42))
	assert.Contains(t, pre.String(), "pretrain")
}

func TestValidateSettings(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, ValidateSettings(&out, cfg.Settings))
	assert.Contains(t, out.String(), "✓ Zappa")

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(sheet+"Bowie,lots,0,Left,green,red,Right,blue,yellow\n"), 0644))
	out.Reset()
	err := ValidateSettings(&out, bad)
	assert.ErrorContains(t, err, "Bowie")
	assert.Contains(t, out.String(), "✗ Bowie")
}

func TestRecoverSession(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	j := file.NewJournal(cfg.Journal.Dir)
	for i := 1; i <= 2; i++ {
		require.NoError(t, j.Append(ctx, "crashed", domain.TrialRecord{
			Timestamp:   time.Date(2023, 6, 9, 9, 1, i, 0, time.UTC),
			TrialNumber: i,
			TrialType:   domain.FreeChoice,
			Block:       1,
			Outcome:     domain.OutcomeNoFood,
			SubjectID:   "Zappa",
			Phase:       domain.PhaseChoice.String(),
		}))
	}

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, &out, cfg))
	assert.Equal(t, "crashed\n", out.String())

	out.Reset()
	require.NoError(t, RecoverSession(ctx, &out, cfg, "crashed"))
	assert.Contains(t, out.String(), "Recovered 2 trials")

	path := filepath.Join(cfg.DataDir, "Zappa", "Zappa_2023-06-09_09.01.01_P037_data-Phase1.csv")
	recs, err := file.ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	assert.ErrorIs(t, RecoverSession(ctx, &out, cfg, "nope"), domain.ErrSessionNotFound)
}

func TestRecoverSession_KeepsSessionFileName(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	j := file.NewJournal(cfg.Journal.Dir)
	require.NoError(t, j.Begin(ctx, domain.SessionMeta{
		SessionID:  "crashed",
		SubjectID:  "Zappa",
		Phase:      domain.PhaseChoice,
		Experiment: "P037",
		StartedAt:  time.Date(2023, 6, 9, 8, 58, 0, 0, time.UTC),
	}))
	require.NoError(t, j.Append(ctx, "crashed", domain.TrialRecord{
		Timestamp:   time.Date(2023, 6, 9, 9, 1, 1, 0, time.UTC),
		TrialNumber: 1,
		TrialType:   domain.FreeChoice,
		Block:       1,
		Outcome:     domain.OutcomeFood,
		SubjectID:   "Zappa",
		Phase:       domain.PhaseChoice.String(),
	}))

	var out bytes.Buffer
	require.NoError(t, RecoverSession(ctx, &out, cfg, "crashed"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "Zappa", "Zappa_2023-06-09_08.58.00_P037_data-Phase1.csv"))

	sessions, err := j.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"crashed"}, sessions)
}
