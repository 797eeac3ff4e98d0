package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"relax3d/internal/desktop"
	"relax3d/internal/driver"
	"relax3d/internal/registry"
)

// RunnerConfig wires a Runner to the desktop and process layer.
type RunnerConfig struct {
	Desktop  desktop.Desktop
	Starter  driver.Starter
	Clock    driver.Clock
	ToolsDir string
	// CharDelay is the pause after each injected character.
	CharDelay time.Duration
	Reporter  Reporter
	Logger    zerolog.Logger
	// VerifyTools checks that every plan executable exists before launching.
	VerifyTools bool
}

// Runner executes plans. Every plan goes through the same loop:
// checkpoint, enter stage, execute variant, apply completion policy, record.
type Runner struct {
	clock    driver.Clock
	locator  *driver.Locator
	keyboard *driver.Keyboard
	launcher *driver.Launcher
	detector *driver.Detector
	reporter Reporter
	verify   bool
	log      zerolog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	clock := cfg.Clock
	if clock == nil {
		clock = driver.RealClock()
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = noopReporter{}
	}
	locator := driver.NewLocator(cfg.Desktop, cfg.Logger)
	return &Runner{
		clock:    clock,
		locator:  locator,
		keyboard: driver.NewKeyboard(cfg.Desktop, clock, cfg.CharDelay, cfg.Logger),
		launcher: driver.NewLauncher(cfg.ToolsDir, cfg.Starter, locator, clock, cfg.Logger),
		detector: driver.NewDetector(clock, cfg.Logger),
		reporter: rep,
		verify:   cfg.VerifyTools,
		log:      cfg.Logger,
	}
}

// Run executes plan on the calling goroutine and returns its single terminal
// result. ctx is the run's cancellation token.
func (r *Runner) Run(ctx context.Context, run *RunState, plan Plan) Result {
	log := r.log.With().Str("run_id", run.ID).Str("pipeline", string(plan.Kind)).Logger()
	res := Result{RunID: run.ID, Kind: plan.Kind, StartedAt: run.StartedAt}
	activeRuns.Inc()
	defer activeRuns.Dec()

	r.emit(run, EventRunStarted, "", "", map[string]any{"pipeline": string(plan.Kind), "stages": plan.StageNames()})

	if r.verify {
		if err := registry.Verify(plan.Executables); err != nil {
			return r.fail(run, &res, "preflight", err, log)
		}
	}

	for _, st := range plan.Stages {
		if ctx.Err() != nil {
			return r.cancelled(run, &res, log)
		}
		name := st.Name()
		if err := run.transition(func(m *Machine) error { return m.Enter(name) }); err != nil {
			return r.fail(run, &res, name, err, log)
		}
		r.emit(run, EventStageStarted, name, "", nil)
		slog := log.With().Str("stage", name).Logger()
		slog.Info().Msg("stage started")

		start := r.clock.Now()
		err := r.execute(ctx, run, st, slog)
		if err == nil {
			err = r.complete(ctx, run, st, slog)
		}
		observeStage(plan.Kind, name, string(driver.Classify(err)), r.clock.Now().Sub(start))
		if err != nil {
			if driver.IsCancelled(err) {
				return r.cancelled(run, &res, log)
			}
			return r.fail(run, &res, name, err, slog)
		}
		res.Completed = append(res.Completed, name)
		r.emit(run, EventStageDone, name, "", nil)
	}
	// a cancel that raced the last stage still wins over success
	if ctx.Err() != nil {
		return r.cancelled(run, &res, log)
	}
	if err := run.transition((*Machine).Done); err != nil {
		return r.fail(run, &res, "", err, log)
	}
	res.Status = StatusDone
	res.OutputFile = plan.OutputFile
	res.FinishedAt = r.clock.Now()
	runsTotal.WithLabelValues(string(plan.Kind), string(res.Status)).Inc()
	msg := ""
	if plan.OutputFile != "" {
		msg = "output " + plan.OutputFile
	}
	r.emit(run, EventRunDone, "", msg, nil)
	log.Info().Strs("stages", res.Completed).Msg("run completed")
	run.finish(res)
	return res
}

// execute launches or drives the program of one stage.
func (r *Runner) execute(ctx context.Context, run *RunState, st Stage, log zerolog.Logger) error {
	switch s := st.(type) {
	case GeometryStage:
		if _, err := r.launch(ctx, run, s.Tool, s.Grace); err != nil {
			return err
		}
		log.Info().Strs("inputs", s.Inputs).Msg("opening geometry")
		r.keyboard.Send(s.Inputs, s.InputSettle)
		return nil

	case FieldSetupStage:
		if _, err := r.launch(ctx, run, s.Tool, s.Grace); err != nil {
			return err
		}
		for _, group := range s.Setup {
			r.keyboard.Send(group, s.SetupSettle)
		}
		if err := r.detector.Settle(ctx, s.Pause); err != nil {
			return err
		}
		for _, rng := range s.Ranges {
			log.Info().Strs("range", rng).Msg("entering range")
			r.keyboard.Send(rng, s.RangeSettle)
		}
		return nil

	case ToolStage:
		_, err := r.launch(ctx, run, s.Tool, s.Grace)
		return err

	case DivideStage:
		if _, err := r.launch(ctx, run, s.Tool, s.Grace); err != nil {
			return err
		}
		return r.divide(ctx, s, log)

	case SolverLaunchStage:
		h, err := r.launcher.LaunchSolver(ctx, s.Path, s.WindowTitle, s.Startup)
		if err != nil {
			return err
		}
		if err := run.activate(h); err != nil {
			h.Terminate()
			return err
		}
		log.Info().Int("pid", h.Pid()).Msg("solver started, sending start key")
		r.keyboard.Press(s.StartKey)
		return nil

	case SolverPhaseStage:
		if run.activeHandle() == nil {
			return driver.ErrProcess(s.Phase, errors.New("solver not running"))
		}
		log.Info().Strs("commands", s.Commands).Msg("sending phase commands")
		r.keyboard.Send(s.Commands, s.CommandSettle)
		return nil

	case SolverOutputStage:
		if run.activeHandle() == nil {
			return driver.ErrProcess("output", errors.New("solver not running"))
		}
		log.Info().Str("command", s.Command).Msg("sending output command")
		r.keyboard.Send([]string{s.Command}, s.CommandSettle)
		return nil
	}
	return fmt.Errorf("unknown stage type %T", st)
}

func (r *Runner) launch(ctx context.Context, run *RunState, tool string, grace time.Duration) (*driver.StageHandle, error) {
	h, err := r.launcher.Launch(ctx, tool, grace)
	if err != nil {
		return nil, err
	}
	if err := run.activate(h); err != nil {
		h.Terminate()
		return nil, err
	}
	return h, nil
}

// divide opens the File menu, finds the file dialog and enters the output name.
func (r *Runner) divide(ctx context.Context, s DivideStage, log zerolog.Logger) error {
	if err := r.detector.Settle(ctx, s.OpenDelay); err != nil {
		return err
	}
	r.keyboard.Combo(desktop.VKMenu, 'F')
	r.clock.Sleep(s.MenuDelay)
	r.keyboard.Press('O')
	r.clock.Sleep(s.MenuDelay)

	dlg, err := r.locator.FindDialog(s.DialogTitles)
	if err != nil {
		return err
	}
	log.Info().Str("output", s.Output).Msg("saving divided output")
	r.keyboard.Send([]string{s.Output}, s.InputSettle)
	r.clock.Sleep(s.ButtonDelay)
	if s.Button == "" {
		r.keyboard.Press(desktop.VKReturn)
	} else if err := r.locator.ClickControl(dlg, s.Button); err != nil {
		log.Warn().Err(err).Str("button", s.Button).Msg("button not clicked, pressing Enter")
		r.keyboard.Press(desktop.VKReturn)
	}
	r.clock.Sleep(s.ButtonDelay)
	return nil
}

// complete applies the stage's completion policy.
func (r *Runner) complete(ctx context.Context, run *RunState, st Stage, log zerolog.Logger) error {
	h := run.activeHandle()
	switch c := st.Completion().(type) {
	case SettlePolicy:
		if err := r.detector.Settle(ctx, c.Delay); err != nil {
			return err
		}
		if c.Close && h != nil {
			if err := h.Close(); err != nil {
				log.Warn().Err(err).Msg("close window failed")
			}
		}
		// the solver handle stays active until its output stage
		if _, keep := st.(SolverLaunchStage); !keep {
			run.release(h)
		}
		return nil

	case CPUWait:
		if h == nil || h.Process == nil {
			return driver.ErrProcess(c.Phase, errors.New("no process to sample"))
		}
		res, err := r.detector.WaitCPU(ctx, c.Phase, h.Process, c.Policy, func(v float64) {
			run.setCPU(v)
			solverCPU.Set(v)
			r.emit(run, EventCPUSample, st.Name(), "", map[string]any{"cpu": v})
		})
		if err == nil {
			log.Info().Int("samples", res.Samples).Dur("elapsed", res.Elapsed).Msg("phase settled")
		}
		return err

	case ExitPolicy:
		if h == nil || h.Process == nil {
			return driver.ErrProcess("output", errors.New("no process to wait for"))
		}
		if err := r.detector.WaitExit(ctx, h.Process, c.Timeout); err != nil {
			return err
		}
		log.Info().Msg("solver exited")
		run.release(h)
		return nil
	}
	return fmt.Errorf("unknown completion policy %T", st.Completion())
}

// cancelled moves the run through Cancelling to Cancelled, terminating the
// active handle best effort.
func (r *Runner) cancelled(run *RunState, res *Result, log zerolog.Logger) Result {
	run.transition((*Machine).Cancelling)
	snap := run.Snapshot()
	log.Warn().Str("stage", snap.Stage).Msg("cancelling run")
	r.terminateActive(run, log)
	run.transition((*Machine).Cancelled)

	res.Status = StatusCancelled
	res.Stage = snap.Stage
	res.FinishedAt = r.clock.Now()
	runsTotal.WithLabelValues(string(res.Kind), string(res.Status)).Inc()
	r.emit(run, EventRunCancelled, snap.Stage, "", nil)
	run.finish(*res)
	return *res
}

// fail terminates the active handle and records the failing stage and cause.
func (r *Runner) fail(run *RunState, res *Result, stage string, err error, log zerolog.Logger) Result {
	failure := ClassifyFailure(err)
	log.Error().Err(err).Str("stage", stage).Str("failure", string(failure)).Msg("run failed")
	r.terminateActive(run, log)
	if terr := run.transition(func(m *Machine) error { return m.Fail(stage, err.Error()) }); terr != nil {
		log.Warn().Err(terr).Msg("state transition rejected")
	}

	res.Status = StatusFailed
	res.Stage = stage
	res.Cause = err.Error()
	res.Failure = failure
	res.FinishedAt = r.clock.Now()
	runsTotal.WithLabelValues(string(res.Kind), string(res.Status)).Inc()
	r.emit(run, EventRunFailed, stage, res.Cause, map[string]any{"failure": string(failure)})
	run.finish(*res)
	return *res
}

func (r *Runner) terminateActive(run *RunState, log zerolog.Logger) {
	h := run.activeHandle()
	if h == nil {
		return
	}
	if err := h.Terminate(); err != nil {
		log.Warn().Err(err).Str("handle", h.Name).Msg("terminate failed")
	}
	run.release(h)
}

func (r *Runner) emit(run *RunState, kind EventKind, stage, msg string, fields map[string]any) {
	r.reporter.Report(Event{
		Time:    r.clock.Now(),
		RunID:   run.ID,
		Kind:    kind,
		Stage:   stage,
		Message: msg,
		Fields:  fields,
	})
}
