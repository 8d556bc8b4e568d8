package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aretw0/operant/internal/adapters/console"
	"github.com/aretw0/operant/internal/adapters/file"
	httpadapter "github.com/aretw0/operant/internal/adapters/http"
	"github.com/aretw0/operant/internal/chamber"
	"github.com/aretw0/operant/internal/config"
	"github.com/aretw0/operant/internal/events"
	"github.com/aretw0/operant/internal/metrics"
	"github.com/aretw0/operant/internal/presentation/tui"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/sequence"
	"github.com/aretw0/operant/pkg/session"
	"github.com/aretw0/operant/pkg/settings"
	"github.com/aretw0/operant/pkg/trial"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// RunOptions configures a session run from the command line.
type RunOptions struct {
	Config *config.Config
	Debug  bool
	// Interactive shows the start screen and waits for Enter.
	Interactive bool
	Version     string

	In  io.Reader
	Out io.Writer
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// plan is everything resolved before the chamber is touched.
type plan struct {
	cfg     *config.Config
	subject domain.SubjectConfig
	phase   domain.Phase
	seed    uint64
	specs   []domain.TrialSpec
	policy  trial.OutcomePolicy
	delay   trial.DelayPolicy
}

// preparePlan performs every startup check. Any error here is fatal and happens
// before hardware is opened.
func preparePlan(cfg *config.Config, logger *slog.Logger) (*plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	phase, err := cfg.PhaseValue()
	if err != nil {
		return nil, err
	}
	subject, err := settings.LoadSubject(cfg.Settings, cfg.Subject)
	if err != nil {
		return nil, err
	}
	policy, err := trial.ParseOutcomePolicy(cfg.Task.OutcomePolicy)
	if err != nil {
		return nil, err
	}
	delay, err := trial.ParseDelayPolicy(cfg.Task.RejectionDelay)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	specs, err := generate(phase, seed, logger)
	if err != nil {
		return nil, err
	}

	return &plan{
		cfg:     cfg,
		subject: subject,
		phase:   phase,
		seed:    seed,
		specs:   specs,
		policy:  policy,
		delay:   delay,
	}, nil
}

func generate(phase domain.Phase, seed uint64, logger *slog.Logger) ([]domain.TrialSpec, error) {
	comp, blocks := sequence.ForPhase(phase)
	gen := sequence.New(comp, blocks)
	gen.Logger = logger
	return gen.Generate(sequence.NewRand(seed))
}

// RunSession runs one session end to end. An operator abort is not an error.
func RunSession(opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	cfg := opts.Config

	logger, err := createLogger(cfg.LogLevel, opts.Debug)
	if err != nil {
		return err
	}
	p, err := preparePlan(cfg, logger)
	if err != nil {
		return err
	}

	// The listener is opened before anything else so a busy or bad address
	// fails the run instead of leaving the chamber without an input surface.
	var ln net.Listener
	if needsServer(cfg) {
		ln, err = net.Listen("tcp", cfg.Display.Addr)
		if err != nil {
			return fmt.Errorf("display server on %s: %w", cfg.Display.Addr, err)
		}
		defer ln.Close()
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	sessionID := uuid.NewString()
	startedAt := time.Now()
	state := domain.NewSessionState(sessionID, p.subject.SubjectID, p.phase, p.seed, startedAt)
	if p.policy == trial.PolicyBalancedForced {
		state.Decks = trial.NewDecks(p.specs, cfg.Task.Probabilities)
	}

	// Ambient services: journal, event log, metrics.
	journal, closeJournal, err := createJournal(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeJournal(); err != nil {
			logger.Warn("journal close failed", "err", err)
		}
	}()

	hooks := []domain.LifecycleHooks{}
	if opts.Debug {
		hooks = append(hooks, createDebugHooks(logger))
	}
	if cfg.Events.Enabled {
		sink, err := events.NewFileSink(subjectDir(cfg, p.subject.SubjectID), sessionID)
		if err != nil {
			return err
		}
		defer sink.Close()
		hooks = append(hooks, events.Hooks(sink, sessionID, startedAt, logger))
	}
	var metricsHandler http.Handler
	if cfg.Display.Metrics {
		m := metrics.New()
		metricsHandler = m.Handler()
		hooks = append(hooks, m.Hooks())
	}
	merged := domain.MergeHooks(hooks...)

	rig, err := createRig(cfg, opts.Out, metricsHandler, opts.Version, logger)
	if err != nil {
		return err
	}
	defer rig.Close()

	exec, err := trial.New(rig, trial.Config{
		Subject:        p.subject,
		Feedback:       cfg.Timing.Feedback,
		RejectionDelay: p.delay,
		FR:             cfg.Task.FR,
		Probabilities:  cfg.Task.Probabilities,
	}, trial.WithLogger(logger), trial.WithLifecycleHooks(merged))
	if err != nil {
		return err
	}

	ctrl, err := session.New(rig, exec, p.specs, state,
		session.WithJournal(journal),
		session.WithRecordWriter(file.NewRecordWriter(cfg.DataDir)),
		session.WithLogger(logger),
		session.WithLifecycleHooks(merged),
		session.WithExperiment(cfg.Experiment),
		session.WithTiming(session.Timing{
			Acclimation: cfg.Timing.Acclimation,
			ITI:         cfg.Timing.ITI,
			Limit:       cfg.Timing.SessionLimit,
		}),
	)
	if err != nil {
		return err
	}

	render := tui.NewRenderer()
	in := bufio.NewReader(opts.In)
	if opts.Interactive {
		tui.PrintBanner(opts.Out, opts.Version)
		show(opts.Out, render, tui.StartScreen(tui.SessionInfo{
			SessionID:  sessionID,
			Subject:    p.subject,
			Phase:      p.phase,
			Experiment: cfg.Experiment,
			Trials:     len(p.specs),
			Seed:       p.seed,
			Mode:       cfg.Mode,
		}))
		if err := waitForEnter(sigCtx, in); err != nil {
			printSystemMessage(opts.Out, "Cancelled before the session started.")
			return nil
		}
	}

	var wg sync.WaitGroup
	serveCtx, stopServing := context.WithCancel(sigCtx)
	startSurfaces(serveCtx, &wg, rig, ln, in, metricsHandler, sigCtx.Cancel, opts.Out, logger)

	logger.Info("session starting", "session_id", sessionID, "subject", p.subject.SubjectID, "seed", p.seed)
	res, runErr := ctrl.Run(sigCtx)
	stopServing()
	wg.Wait()

	summary := tui.SummaryInfo{
		Reason:  string(res.Reason),
		Records: res.Records,
		Path:    res.Path,
		Elapsed: time.Since(startedAt),
		Err:     runErr,
	}
	if res.Path == "" && len(res.Records) > 0 {
		summary.Recovery = "operant recover " + sessionID
	}
	show(opts.Out, render, tui.Summary(summary))

	if sig := sigCtx.Signal(); sig != nil {
		printSystemMessage(opts.Out, "Interrupted by %s.", sig)
	}
	return runErr
}

// needsServer reports whether the run serves HTTP: the http display, or metrics
// next to the console display.
func needsServer(cfg *config.Config) bool {
	return cfg.Display.Kind == "http" || cfg.Display.Metrics
}

// startSurfaces starts the operator input and, on ln, any HTTP server the display needs.
func startSurfaces(ctx context.Context, wg *sync.WaitGroup, rig *chamber.Rig, ln net.Listener, in io.Reader, metricsHandler http.Handler, abort func(), out io.Writer, logger *slog.Logger) {
	var handler http.Handler
	_, onlyInput := rig.Display.(*httpadapter.Display)
	switch d := rig.Display.(type) {
	case *console.Display:
		printSystemMessage(out, "Console display: %s", console.Help)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Listen(ctx, in, abort); err != nil {
				logger.Warn("console input stopped", "err", err)
			}
		}()
		handler = metricsHandler
	case *httpadapter.Display:
		handler = d.Handler()
	}
	if handler == nil || ln == nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpadapter.Serve(ctx, ln, handler, logger); err != nil {
			logger.Error("display server failed", "err", err)
			if onlyInput {
				abort()
			}
		}
	}()
}

// waitForEnter blocks until a line is read or ctx is cancelled.
func waitForEnter(ctx context.Context, in *bufio.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := in.ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

func show(w io.Writer, render func(string) (string, error), markdown string) {
	out, err := render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprintln(w, out)
}
