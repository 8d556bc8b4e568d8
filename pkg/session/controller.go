package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/ports"
)

// DefaultExperiment is the experiment code used in output file names.
const DefaultExperiment = "P037"

// Reason explains why a session ended.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonAborted   Reason = "aborted"
	ReasonTimeLimit Reason = "time_limit"
	ReasonFault     Reason = "fault"
)

// Timing holds the session-level intervals.
type Timing struct {
	// Acclimation is waited once before the first trial.
	Acclimation time.Duration
	// ITI blanks the screen before every trial.
	ITI time.Duration
	// Limit stops the session between trials once exceeded. Zero disables it.
	Limit time.Duration
}

// TrialRunner executes one trial. *trial.Executor satisfies it.
type TrialRunner interface {
	Run(ctx context.Context, spec domain.TrialSpec, state *domain.SessionState) (domain.TrialRecord, error)
}

// Result summarizes a finished session.
type Result struct {
	Reason  Reason
	Records []domain.TrialRecord
	// Path is where the output data file was written, empty if no writer is configured.
	Path string
	// Err is the fault that ended the session, if any.
	Err error
}

// Controller runs a session from acclimation to teardown.
type Controller struct {
	hw     ports.Hardware
	runner TrialRunner
	specs  []domain.TrialSpec
	state  *domain.SessionState

	journal    ports.Journal
	writer     ports.RecordWriter
	clock      ports.Clock
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	timing     Timing
	experiment string
}

// Option configures the Controller.
type Option func(*Controller)

// WithJournal appends every completed record to j as soon as it is folded.
func WithJournal(j ports.Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithRecordWriter configures where the output data file is written at teardown.
func WithRecordWriter(w ports.RecordWriter) Option {
	return func(c *Controller) {
		c.writer = w
	}
}

// WithClock replaces the wall clock.
func WithClock(clock ports.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers the session start and end hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithTiming sets acclimation, ITI and the session time limit.
func WithTiming(t Timing) Option {
	return func(c *Controller) {
		c.timing = t
	}
}

// WithExperiment sets the experiment code used when writing records.
func WithExperiment(code string) Option {
	return func(c *Controller) {
		c.experiment = code
	}
}

// New creates a controller for specs. The state must be fresh or already hold
// the records of the first state.Index specs.
func New(hw ports.Hardware, runner TrialRunner, specs []domain.TrialSpec, state *domain.SessionState, opts ...Option) (*Controller, error) {
	if hw == nil || runner == nil || state == nil {
		return nil, errors.New("session controller requires hardware, a trial runner and a state")
	}
	if len(specs) == 0 {
		return nil, errors.New("session has no trials")
	}
	if state.Index > len(specs) {
		return nil, fmt.Errorf("state holds %d records but the sequence has %d trials", state.Index, len(specs))
	}
	c := &Controller{
		hw:         hw,
		runner:     runner,
		specs:      specs,
		state:      state,
		clock:      ports.SystemClock{},
		logger:     logging.NewNop(),
		experiment: DefaultExperiment,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State exposes the session state. It must not be mutated while Run is in progress.
func (c *Controller) State() *domain.SessionState {
	return c.state
}

// Run executes the remaining trials. Cancelling ctx aborts the session: no further
// stimulation is issued and the completed trials are still written.
// The returned error is non-nil for device faults and persistence failures; an
// abort is reported through Result.Reason.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	c.logger.Info("session started",
		"session_id", c.state.SessionID,
		"subject", c.state.SubjectID,
		"phase", c.state.Phase,
		"trials", len(c.specs))
	if c.journal != nil {
		if err := c.journal.Begin(context.WithoutCancel(ctx), c.state.Meta(c.experiment)); err != nil {
			c.logger.Warn("journal begin failed", "err", err)
		}
	}
	if c.hooks.OnSessionStart != nil {
		c.hooks.OnSessionStart(ctx, c.event(""))
	}

	reason, runErr := c.loop(ctx)
	res := c.teardown(ctx, reason, runErr)
	return res, res.Err
}

func (c *Controller) loop(ctx context.Context) (Reason, error) {
	start := c.clock.Now()
	if c.state.Index == 0 {
		if err := c.blank(ctx, c.timing.Acclimation); err != nil {
			return c.stopped(ctx, err)
		}
	}

	for _, spec := range c.specs[c.state.Index:] {
		if c.timing.Limit > 0 && c.clock.Now().Sub(start) >= c.timing.Limit {
			c.logger.Info("session time limit reached", "limit", c.timing.Limit, "trials", c.state.Index)
			return ReasonTimeLimit, nil
		}
		if err := c.blank(ctx, c.timing.ITI); err != nil {
			return c.stopped(ctx, err)
		}

		rec, err := c.runner.Run(ctx, spec, c.state)
		if rec.Complete() {
			if foldErr := c.fold(ctx, rec); foldErr != nil {
				return ReasonFault, foldErr
			}
		}
		if err != nil {
			return c.stopped(ctx, err)
		}
	}
	return ReasonCompleted, nil
}

// stopped classifies the error that ended the loop.
func (c *Controller) stopped(ctx context.Context, err error) (Reason, error) {
	if ctx.Err() != nil && !errors.Is(err, domain.ErrDeviceFault) {
		return ReasonAborted, err
	}
	return ReasonFault, err
}

func (c *Controller) fold(ctx context.Context, rec domain.TrialRecord) error {
	if err := c.state.Fold(rec); err != nil {
		return err
	}
	if c.journal != nil {
		// The record is already folded; a cancelled session must still reach the journal.
		if err := c.journal.Append(context.WithoutCancel(ctx), c.state.SessionID, rec); err != nil {
			c.logger.Warn("journal append failed", "trial", rec.TrialNumber, "err", err)
		}
	}
	return nil
}

// blank clears the screen and waits d. It issues nothing once ctx is cancelled.
func (c *Controller) blank(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.hw.ClearDisplay(); err != nil {
		return fmt.Errorf("clear display: %w", err)
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

// teardown leaves the chamber idle and persists every folded record.
func (c *Controller) teardown(ctx context.Context, reason Reason, runErr error) Result {
	res := Result{Reason: reason, Records: c.state.Snapshot()}
	if reason == ReasonFault {
		res.Err = runErr
		c.logger.Error("session halted", "err", runErr, "trials", len(res.Records))
	} else {
		c.logger.Info("session ended", "reason", reason, "trials", len(res.Records))
	}

	var errs []error
	if err := c.hw.ClearDisplay(); err != nil {
		errs = append(errs, fmt.Errorf("clear display: %w", err))
	}
	if err := c.hw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close hardware: %w", err))
	}

	if c.writer != nil {
		path, err := c.writer.WriteRecords(context.WithoutCancel(ctx), c.state.Meta(c.experiment), res.Records)
		if err != nil {
			errs = append(errs, fmt.Errorf("write records: %w", err))
		} else {
			res.Path = path
			c.logger.Info("data written", "path", path, "records", len(res.Records))
		}
	}

	if c.hooks.OnSessionEnd != nil {
		c.hooks.OnSessionEnd(context.WithoutCancel(ctx), c.event(reason))
	}
	if len(errs) > 0 {
		res.Err = errors.Join(append([]error{res.Err}, errs...)...)
	}
	return res
}

func (c *Controller) event(reason Reason) *domain.SessionEvent {
	return &domain.SessionEvent{
		Timestamp: c.clock.Now(),
		SessionID: c.state.SessionID,
		SubjectID: c.state.SubjectID,
		Phase:     c.state.Phase,
		Reason:    string(reason),
		Trials:    c.state.Index,
	}
}
