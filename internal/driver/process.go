package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultSampleWindow is the CPU measurement window of one sample.
const DefaultSampleWindow = time.Second

// killGrace is how long Terminate waits before escalating to a kill.
const killGrace = 2 * time.Second

// Process is a running legacy program.
type Process interface {
	Pid() int
	Name() string
	// CPUPercent measures CPU utilisation over one sample window.
	// It returns ErrProcessExited once the process is gone.
	CPUPercent(ctx context.Context) (float64, error)
	Exited() bool
	// Terminate stops the process, escalating to a kill. Already-exited
	// processes are not an error.
	Terminate() error
}

// Command describes a program to start.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// Starter starts programs and finds already-running ones by executable name.
type Starter interface {
	Start(cmd Command) (Process, error)
	Find(ctx context.Context, name string) (Process, error)
}

// ExecStarter starts programs with os/exec and samples them with gopsutil.
type ExecStarter struct {
	SampleWindow time.Duration
}

func (s ExecStarter) window() time.Duration {
	if s.SampleWindow <= 0 {
		return DefaultSampleWindow
	}
	return s.SampleWindow
}

func (s ExecStarter) Start(c Command) (Process, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, name: filepath.Base(c.Path), window: s.window(), done: make(chan struct{})}
	// early-exit watcher
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Find returns the first running process whose executable name equals name
// (case-insensitive).
func (s ExecStarter) Find(ctx context.Context, name string) (Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		n, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(n, name) {
			return &foundProcess{ps: p, name: n, window: s.window()}, nil
		}
	}
	return nil, fmt.Errorf("no running process named %s", name)
}

type execProcess struct {
	cmd    *exec.Cmd
	name   string
	window time.Duration
	done   chan struct{}

	mu sync.Mutex
	ps *process.Process
}

func (p *execProcess) Pid() int     { return p.cmd.Process.Pid }
func (p *execProcess) Name() string { return p.name }

func (p *execProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) handle(ctx context.Context) (*process.Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ps != nil {
		return p.ps, nil
	}
	ps, err := process.NewProcessWithContext(ctx, int32(p.cmd.Process.Pid))
	if err != nil {
		return nil, err
	}
	p.ps = ps
	return ps, nil
}

func (p *execProcess) CPUPercent(ctx context.Context) (float64, error) {
	if p.Exited() {
		return 0, ErrProcessExited
	}
	ps, err := p.handle(ctx)
	if err != nil {
		if p.Exited() {
			return 0, ErrProcessExited
		}
		return 0, err
	}
	v, err := ps.PercentWithContext(ctx, p.window)
	if err != nil {
		if p.Exited() {
			return 0, ErrProcessExited
		}
		return 0, err
	}
	return v, nil
}

func (p *execProcess) Terminate() error {
	if p.Exited() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), killGrace)
	defer cancel()
	if ps, err := p.handle(ctx); err == nil {
		_ = ps.TerminateWithContext(ctx)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(killGrace):
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// foundProcess is a process adopted by name rather than started by us.
type foundProcess struct {
	ps     *process.Process
	name   string
	window time.Duration
}

func (p *foundProcess) Pid() int     { return int(p.ps.Pid) }
func (p *foundProcess) Name() string { return p.name }

func (p *foundProcess) Exited() bool {
	running, err := p.ps.IsRunning()
	return err != nil || !running
}

func (p *foundProcess) CPUPercent(ctx context.Context) (float64, error) {
	if p.Exited() {
		return 0, ErrProcessExited
	}
	v, err := p.ps.PercentWithContext(ctx, p.window)
	if err != nil {
		if p.Exited() {
			return 0, ErrProcessExited
		}
		return 0, err
	}
	return v, nil
}

func (p *foundProcess) Terminate() error {
	if p.Exited() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*killGrace)
	defer cancel()
	if err := p.ps.TerminateWithContext(ctx); err != nil && !p.Exited() {
		return p.ps.KillWithContext(ctx)
	}
	return nil
}
