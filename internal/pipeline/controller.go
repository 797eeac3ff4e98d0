package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
	"relax3d/internal/runstore"
	"relax3d/pkg/types"
)

// busyError signals that a run is already in progress (HTTP 409).
type busyError struct{ runID string }

func (e busyError) Error() string { return "a run is already in progress: " + e.runID }

// ErrBusy constructs the error returned when runID is still in progress.
func ErrBusy(runID string) error { return busyError{runID: runID} }

// IsBusy reports whether err was returned because another run is active.
func IsBusy(err error) bool {
	var e busyError
	return errors.As(err, &e)
}

// ErrNoRun is returned by Wait when nothing was ever started.
var ErrNoRun = errors.New("no run started")

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Config  *config.Config
	Desktop desktop.Desktop
	Starter driver.Starter
	Clock   driver.Clock
	// Store receives a record of every finished run. Defaults to memory.
	Store runstore.Store
	// Reporter receives every event in addition to the log and subscribers.
	Reporter Reporter
	Logger   zerolog.Logger
	// BaseContext is the parent of every run context. Defaults to Background.
	BaseContext context.Context
	VerifyTools bool
}

// Controller serialises runs: at most one is in progress at a time. Starts
// return immediately; the run executes on its own goroutine.
type Controller struct {
	cfg    *config.Config
	runner *Runner
	store  runstore.Store
	events *Broadcaster
	clock  driver.Clock
	base   context.Context
	log    zerolog.Logger

	mu       sync.Mutex
	current  *RunState
	recorded chan struct{}
	wg       sync.WaitGroup
}

func NewController(cc ControllerConfig) *Controller {
	clock := cc.Clock
	if clock == nil {
		clock = driver.RealClock()
	}
	store := cc.Store
	if store == nil {
		store = runstore.NewMemoryStore(config.DefaultHistoryLimit)
	}
	base := cc.BaseContext
	if base == nil {
		base = context.Background()
	}
	events := NewBroadcaster()
	reporters := MultiReporter{LogReporter{Log: cc.Logger}, events}
	if cc.Reporter != nil {
		reporters = append(reporters, cc.Reporter)
	}
	var (
		charDelay time.Duration
		toolsDir  string
	)
	if cc.Config != nil {
		charDelay = config.Millis(cc.Config.Timing.CharDelayMS)
		toolsDir = cc.Config.ToolsDir
	}
	return &Controller{
		cfg: cc.Config,
		runner: NewRunner(RunnerConfig{
			Desktop:     cc.Desktop,
			Starter:     cc.Starter,
			Clock:       clock,
			ToolsDir:    toolsDir,
			CharDelay:   charDelay,
			Reporter:    reporters,
			Logger:      cc.Logger,
			VerifyTools: cc.VerifyTools,
		}),
		store:  store,
		events: events,
		clock:  clock,
		base:   base,
		log:    cc.Logger,
	}
}

// StartPreprocess plans and starts a preprocessing run.
func (c *Controller) StartPreprocess(req Request) (*RunState, Plan, error) {
	return c.start(func() (Plan, error) { return PlanPreprocess(req, c.cfg) })
}

// StartRelax plans and starts a relaxation run.
func (c *Controller) StartRelax(opt Option) (*RunState, Plan, error) {
	return c.start(func() (Plan, error) { return PlanRelax(opt, c.cfg) })
}

func (c *Controller) start(build func() (Plan, error)) (*RunState, Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		if _, done := c.current.Result(); !done {
			return nil, Plan{}, ErrBusy(c.current.ID)
		}
	}
	if c.cfg == nil {
		return nil, Plan{}, errors.New("controller has no configuration")
	}
	plan, err := build()
	if err != nil {
		return nil, Plan{}, err
	}
	run, ctx := NewRunState(c.base, plan, c.clock.Now())
	recorded := make(chan struct{})
	c.current = run
	c.recorded = recorded
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(recorded)
		res := c.runner.Run(ctx, run, plan)
		rec := res.Record(plan.Request, plan.Option)
		if err := c.store.Save(context.Background(), rec); err != nil {
			c.log.Error().Err(err).Str("run_id", run.ID).Msg("failed to save run record")
		}
	}()
	return run, plan, nil
}

// Cancel requests cancellation of the active run. It returns false when no
// run is in progress.
func (c *Controller) Cancel() bool {
	run := c.Current()
	if run == nil || !run.Cancel() {
		return false
	}
	c.runner.emit(run, EventCancelRequested, "", "", nil)
	return true
}

// Current returns the active or most recent run, or nil.
func (c *Controller) Current() *RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Wait blocks until the current run finishes and is recorded, or ctx is done.
func (c *Controller) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	run, recorded := c.current, c.recorded
	c.mu.Unlock()
	if run == nil {
		return Result{}, ErrNoRun
	}
	select {
	case <-recorded:
		res, _ := run.Result()
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Status builds the status response for the active or last run.
func (c *Controller) Status() types.StatusResponse {
	run := c.Current()
	if run == nil {
		return types.StatusResponse{Phase: string(PhaseIdle)}
	}
	s := run.Snapshot()
	return types.StatusResponse{
		Busy:      !s.Finished,
		RunID:     s.ID,
		Pipeline:  string(s.Kind),
		Phase:     string(s.Phase),
		Stage:     s.Stage,
		Cause:     s.Cause,
		Active:    s.Active,
		ActivePid: s.ActivePid,
		LastCPU:   s.LastCPU,
		StartedAt: s.StartedAt.UTC().Format(time.RFC3339),
	}
}

// History returns up to limit finished runs, newest first.
func (c *Controller) History(ctx context.Context, limit int) ([]runstore.Record, error) {
	return c.store.List(ctx, limit)
}

// Layers returns the configured layers sorted by name.
func (c *Controller) Layers() []types.Layer {
	if c.cfg == nil {
		return nil
	}
	out := make([]types.Layer, 0, len(c.cfg.Layers))
	for name, l := range c.cfg.Layers {
		out = append(out, types.Layer{Name: name, ZMin: l.ZMin, ZMax: l.ZMax, Potentials: l.Potentials})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Subscribe streams future events until the returned func is called.
func (c *Controller) Subscribe() (<-chan Event, func()) { return c.events.Subscribe() }

// Ready reports whether the controller can accept runs.
func (c *Controller) Ready() bool { return c.cfg != nil && c.runner != nil }

// Close cancels the active run, waits for it and closes subscribers and store.
func (c *Controller) Close() error {
	if run := c.Current(); run != nil {
		run.Cancel()
	}
	c.wg.Wait()
	c.events.Close()
	return c.store.Close()
}
