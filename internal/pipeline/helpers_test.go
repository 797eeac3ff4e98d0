package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
)

func testConfig(toolsDir string) *config.Config {
	cfg := &config.Config{
		ToolsDir: toolsDir,
		Layers: map[string]config.Layer{
			"L12": {ZMin: -1.5, ZMax: 1.5, Potentials: []int{0, 100, -100}},
			"S7":  {ZMin: 2, ZMax: 4.25, Potentials: []int{50}},
		},
		Options: map[string]config.OptionConfig{
			"L": {Setup: [][]string{{"1", "2"}, {"3"}}},
			"S": {Setup: [][]string{{"1"}, {"4"}}},
		},
		Solver: config.Solver{
			Executable: "RELAX3D.exe",
			Commands: map[string]config.SolverCommands{
				"L": {Init: []string{"I", "1"}, Iterate: "R", Output: "O"},
				"S": {Init: []string{"I, 2"}, Iterate: "R", Output: "O"},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// harness runs plans synchronously against a fake desktop, starter and clock.
type harness struct {
	cfg     *config.Config
	desk    *desktop.Fake
	clock   *driver.FakeClock
	starter *driver.FakeStarter
	events  *MemoryReporter
	runner  *Runner

	mu      sync.Mutex
	onEvent func(Event)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg:    testConfig(t.TempDir()),
		desk:   desktop.NewFake(),
		clock:  driver.NewFakeClock(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)),
		events: NewMemoryReporter(),
	}
	h.starter = driver.NewFakeStarter(h.desk, h.clock)
	h.runner = NewRunner(RunnerConfig{
		Desktop:  h.desk,
		Starter:  h.starter,
		Clock:    h.clock,
		ToolsDir: h.cfg.ToolsDir,
		Reporter: MultiReporter{h.events, ReporterFunc(h.dispatch)},
		Logger:   zerolog.Nop(),
	})
	return h
}

func (h *harness) dispatch(e Event) {
	h.mu.Lock()
	f := h.onEvent
	h.mu.Unlock()
	if f != nil {
		f(e)
	}
}

func (h *harness) setOnEvent(f func(Event)) {
	h.mu.Lock()
	h.onEvent = f
	h.mu.Unlock()
}

func (h *harness) newRun(plan Plan) (*RunState, context.Context) {
	return NewRunState(context.Background(), plan, h.clock.Now())
}

func (h *harness) run(t *testing.T, plan Plan) (Result, *RunState) {
	t.Helper()
	run, ctx := h.newRun(plan)
	res := h.runner.Run(ctx, run, plan)
	select {
	case <-run.Done():
	default:
		t.Fatalf("run not marked done after Run returned")
	}
	return res, run
}

func (h *harness) preprocessPlan(t *testing.T, file string, opt Option, mode Mode) Plan {
	t.Helper()
	plan, err := PlanPreprocess(Request{File: file, Option: opt, Mode: mode}, h.cfg)
	require.NoError(t, err)
	return plan
}

func (h *harness) relaxPlan(t *testing.T, opt Option) Plan {
	t.Helper()
	plan, err := PlanRelax(opt, h.cfg)
	require.NoError(t, err)
	return plan
}

// exitSolverOnEnter makes the solver exit by itself on the nth Enter key-down.
func (h *harness) exitSolverOnEnter(n int) {
	var mu sync.Mutex
	seen := 0
	h.desk.OnKey = func(ev desktop.KeyEvent) {
		if ev.Up || ev.VK != desktop.VKReturn {
			return
		}
		mu.Lock()
		seen++
		hit := seen == n
		mu.Unlock()
		if hit {
			if p := h.starter.Last("RELAX3D"); p != nil {
				p.Exit()
			}
		}
	}
}

// keyCodes is the key-down sequence Keyboard.Send produces for commands.
func keyCodes(commands ...string) []uint8 {
	var out []uint8
	for _, c := range commands {
		for _, r := range c {
			if vk, ok := driver.NumpadCode(r); ok {
				out = append(out, vk)
			}
		}
		out = append(out, desktop.VKReturn)
	}
	return out
}
