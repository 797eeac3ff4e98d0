package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLaunchGrace is how long a tool gets to show its window.
const DefaultLaunchGrace = time.Second

// Launcher starts the legacy tools and discovers their main window.
type Launcher struct {
	ToolDir string

	starter Starter
	locator *Locator
	clock   Clock
	log     zerolog.Logger
}

func NewLauncher(toolDir string, starter Starter, locator *Locator, clock Clock, log zerolog.Logger) *Launcher {
	if clock == nil {
		clock = RealClock()
	}
	return &Launcher{ToolDir: toolDir, starter: starter, locator: locator, clock: clock, log: log}
}

// ToolPath returns the executable path of a tool in the tool directory.
func (l *Launcher) ToolPath(tool string) string {
	return filepath.Join(l.ToolDir, tool+".exe")
}

// Launch starts <ToolDir>/<tool>.exe and discovers the window titled tool.
func (l *Launcher) Launch(ctx context.Context, tool string, grace time.Duration) (*StageHandle, error) {
	return l.LaunchPath(ctx, l.ToolPath(tool), tool, grace)
}

// LaunchPath starts path with its own directory as working directory, waits
// grace and discovers the window with the given title. When discovery fails
// or the wait is cancelled the process is terminated.
func (l *Launcher) LaunchPath(ctx context.Context, path, title string, grace time.Duration) (*StageHandle, error) {
	name := filepath.Base(path)
	l.log.Info().Str("tool", name).Str("path", path).Msg("launching")
	proc, err := l.starter.Start(Command{Path: path, Dir: filepath.Dir(path)})
	if err != nil {
		l.log.Error().Err(err).Str("tool", name).Msg("failed to start")
		return nil, ErrProcess(name, err)
	}
	h := &StageHandle{Name: title, Process: proc, desk: l.locator.desk}
	if err := l.clock.SleepContext(ctx, grace); err != nil {
		l.abandon(h)
		return nil, ErrCancelled
	}
	win, err := l.locator.FindWindow(title)
	if err != nil {
		l.abandon(h)
		return nil, err
	}
	h.Window = win
	return h, nil
}

// LaunchSolver starts the solver, waits startup and returns a handle carrying
// its process. A solver that exits during startup is treated as a launcher
// stub: the running process with the same executable name is adopted instead.
func (l *Launcher) LaunchSolver(ctx context.Context, path, windowTitle string, startup time.Duration) (*StageHandle, error) {
	name := filepath.Base(path)
	l.log.Info().Str("solver", name).Str("path", path).Msg("launching solver")
	proc, err := l.starter.Start(Command{Path: path, Dir: filepath.Dir(path)})
	if err != nil {
		l.log.Error().Err(err).Str("solver", name).Msg("failed to start solver")
		return nil, ErrProcess(name, err)
	}
	h := &StageHandle{Name: name, Process: proc, desk: l.locator.desk}
	if err := l.clock.SleepContext(ctx, startup); err != nil {
		l.abandon(h)
		return nil, ErrCancelled
	}
	if proc.Exited() {
		found, err := l.starter.Find(ctx, name)
		if err != nil {
			return nil, ErrProcess(name, fmt.Errorf("exited during startup: %w", err))
		}
		l.log.Info().Str("solver", name).Int("pid", found.Pid()).Msg("adopted running solver process")
		h.Process = found
	}
	if windowTitle != "" {
		win, err := l.locator.FindWindow(windowTitle)
		if err != nil {
			l.abandon(h)
			return nil, err
		}
		h.Window = win
	}
	return h, nil
}

func (l *Launcher) abandon(h *StageHandle) {
	if err := h.Terminate(); err != nil {
		l.log.Warn().Err(err).Str("tool", h.Name).Msg("terminate failed")
	}
}
