// Package config loads the operator configuration: a YAML file, OPERANT_*
// environment variables and command-line flags, merged by viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/settings"
	"github.com/aretw0/operant/pkg/trial"
	"github.com/spf13/viper"
)

// Operating modes.
const (
	ModeHardware  = "hardware"
	ModeSimulated = "simulated"
)

// Config is the full operant configuration.
type Config struct {
	Mode       string         `mapstructure:"mode" yaml:"mode"`
	Subject    string         `mapstructure:"subject" yaml:"subject"`
	Phase      int            `mapstructure:"phase" yaml:"phase"`
	Experiment string         `mapstructure:"experiment" yaml:"experiment"`
	Seed       uint64         `mapstructure:"seed" yaml:"seed"`
	Settings   string         `mapstructure:"settings" yaml:"settings"`
	DataDir    string         `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel   string         `mapstructure:"log_level" yaml:"log_level"`
	Timing     TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Task       TaskConfig     `mapstructure:"task" yaml:"task"`
	Journal    JournalConfig  `mapstructure:"journal" yaml:"journal"`
	Display    DisplayConfig  `mapstructure:"display" yaml:"display"`
	Hardware   HardwareConfig `mapstructure:"hardware" yaml:"hardware"`
	Events     EventsConfig   `mapstructure:"events" yaml:"events"`
}

// TimingConfig holds the session-level intervals.
type TimingConfig struct {
	Feedback    time.Duration `mapstructure:"feedback" yaml:"feedback"`
	ITI         time.Duration `mapstructure:"iti" yaml:"iti"`
	Acclimation time.Duration `mapstructure:"acclimation" yaml:"acclimation"`
	// SessionLimit stops the session between trials; zero disables it.
	SessionLimit time.Duration `mapstructure:"session_limit" yaml:"session_limit"`
}

// TaskConfig holds the contingencies of the task.
type TaskConfig struct {
	OutcomePolicy  string              `mapstructure:"outcome_policy" yaml:"outcome_policy"`
	RejectionDelay string              `mapstructure:"rejection_delay" yaml:"rejection_delay"`
	FR             int                 `mapstructure:"fr" yaml:"fr"`
	Probabilities  trial.Probabilities `mapstructure:"probabilities" yaml:"probabilities"`
}

// JournalConfig selects where completed trials are journaled.
type JournalConfig struct {
	// Dir holds the JSONL journals; defaults to <data_dir>/.journal.
	Dir           string        `mapstructure:"dir" yaml:"dir,omitempty"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db,omitempty"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// DisplayConfig selects the screen adapter.
type DisplayConfig struct {
	// Kind is "console" or "http".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// Addr is the listen address of the http display and of /metrics.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Metrics serves Prometheus metrics at /metrics.
	Metrics bool `mapstructure:"metrics" yaml:"metrics"`
}

// HardwareConfig wires the feeder in hardware mode. Either the GPIO pins or the
// raise/lower commands must be set.
type HardwareConfig struct {
	HopperPin       string `mapstructure:"hopper_pin" yaml:"hopper_pin,omitempty"`
	HopperActiveLow bool   `mapstructure:"hopper_active_low" yaml:"hopper_active_low,omitempty"`
	HouseLightPin   string `mapstructure:"house_light_pin" yaml:"house_light_pin,omitempty"`
	RaiseCommand    string `mapstructure:"raise_command" yaml:"raise_command,omitempty"`
	LowerCommand    string `mapstructure:"lower_command" yaml:"lower_command,omitempty"`
}

// EventsConfig toggles the per-peck event log.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Defaults is the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Mode:       ModeSimulated,
		Phase:      int(domain.PhaseChoice),
		Experiment: "P037",
		Settings:   "P037_subject_settings.csv",
		DataDir:    "data",
		LogLevel:   "info",
		Timing: TimingConfig{
			Feedback:     15 * time.Second,
			ITI:          10 * time.Second,
			Acclimation:  30 * time.Second,
			SessionLimit: 90 * time.Minute,
		},
		Task: TaskConfig{
			OutcomePolicy:  string(trial.PolicyIndependent),
			RejectionDelay: string(trial.DelayFixed),
			FR:             1,
			Probabilities:  trial.DefaultProbabilities(),
		},
		Display: DisplayConfig{Kind: "console", Addr: ":8080"},
		Events:  EventsConfig{Enabled: true},
	}
}

// SetDefaults registers Defaults on v so explicit zero values in a file or
// flag still win.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("phase", d.Phase)
	v.SetDefault("experiment", d.Experiment)
	v.SetDefault("settings", d.Settings)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("timing.feedback", d.Timing.Feedback)
	v.SetDefault("timing.iti", d.Timing.ITI)
	v.SetDefault("timing.acclimation", d.Timing.Acclimation)
	v.SetDefault("timing.session_limit", d.Timing.SessionLimit)
	v.SetDefault("task.outcome_policy", d.Task.OutcomePolicy)
	v.SetDefault("task.rejection_delay", d.Task.RejectionDelay)
	v.SetDefault("task.fr", d.Task.FR)
	v.SetDefault("task.probabilities.informative", d.Task.Probabilities.Informative)
	v.SetDefault("task.probabilities.noninformative", d.Task.Probabilities.NonInformative)
	v.SetDefault("task.probabilities.noninformative_s1", d.Task.Probabilities.NonInformativeS1)
	v.SetDefault("display.kind", d.Display.Kind)
	v.SetDefault("display.addr", d.Display.Addr)
	v.SetDefault("events.enabled", d.Events.Enabled)
}

// Load unmarshals v and applies the derived defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills derived values and the TEST subject's shortened timings.
func applyDefaults(cfg *Config) {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulated
	}
	if cfg.Experiment == "" {
		cfg.Experiment = "P037"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = cfg.DataDir + "/.journal"
	}
	if cfg.Display.Kind == "" {
		cfg.Display.Kind = "console"
	}
	if cfg.Task.FR <= 0 {
		cfg.Task.FR = 1
	}

	if cfg.Subject == settings.TestSubject {
		cfg.Timing.Feedback = 5 * time.Second
		cfg.Timing.ITI = time.Second
		cfg.Timing.Acclimation = 0
	}
}

// Validate checks the configuration before any hardware is touched.
func (c *Config) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	switch c.Mode {
	case ModeHardware, ModeSimulated:
	default:
		return fmt.Errorf("invalid mode: %s (must be hardware or simulated)", c.Mode)
	}
	if _, err := c.PhaseValue(); err != nil {
		return err
	}
	if _, err := trial.ParseOutcomePolicy(c.Task.OutcomePolicy); err != nil {
		return err
	}
	if _, err := trial.ParseDelayPolicy(c.Task.RejectionDelay); err != nil {
		return err
	}
	if err := c.Task.Probabilities.Validate(); err != nil {
		return err
	}
	if c.Timing.Feedback < 0 || c.Timing.ITI < 0 || c.Timing.Acclimation < 0 || c.Timing.SessionLimit < 0 {
		return fmt.Errorf("timings cannot be negative")
	}
	switch c.Display.Kind {
	case "console", "http":
	default:
		return fmt.Errorf("invalid display kind: %s (must be console or http)", c.Display.Kind)
	}
	if c.Mode == ModeHardware {
		hw := c.Hardware
		pins := hw.HopperPin != ""
		cmds := hw.RaiseCommand != "" || hw.LowerCommand != ""
		switch {
		case pins && cmds:
			return fmt.Errorf("hardware mode takes either hopper_pin or raise/lower commands, not both")
		case cmds && (hw.RaiseCommand == "" || hw.LowerCommand == ""):
			return fmt.Errorf("hardware mode requires both raise_command and lower_command")
		case !pins && !cmds:
			return fmt.Errorf("hardware mode requires hopper_pin or raise/lower commands")
		}
	}
	return nil
}

// PhaseValue returns the configured phase.
func (c *Config) PhaseValue() (domain.Phase, error) {
	switch domain.Phase(c.Phase) {
	case domain.PhasePretraining, domain.PhaseChoice:
		return domain.Phase(c.Phase), nil
	}
	return 0, fmt.Errorf("invalid phase: %d (must be 0 or 1)", c.Phase)
}

// EnvPrefix prefixes the environment variables read by NewViper, e.g. OPERANT_TIMING_ITI.
const EnvPrefix = "OPERANT"

// NewViper returns a viper instance with the defaults and environment binding set.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}
