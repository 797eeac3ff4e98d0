package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
	"relax3d/internal/logging"
	"relax3d/internal/pipeline"
	"relax3d/internal/runstore"
)

// App holds what the commands share: the global flags, the loaded
// configuration, the logger and the process seams tests replace.
type App struct {
	Out io.Writer
	Err io.Writer
	// NewDesktop opens the desktop surface. Defaults to desktop.New.
	NewDesktop func() (desktop.Desktop, error)
	// Starter defaults to driver.ExecStarter sampling over the configured window.
	Starter driver.Starter
	Clock   driver.Clock
	// Now dates archived results. Defaults to time.Now.
	Now func() time.Time

	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg *config.Config
	log *logging.Logger
}

func (a *App) defaults() {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.NewDesktop == nil {
		a.NewDesktop = desktop.New
	}
	if a.Clock == nil {
		a.Clock = driver.RealClock()
	}
	if a.Now == nil {
		a.Now = time.Now
	}
}

// config loads and validates the configuration once.
func (a *App) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	if a.ConfigPath == "" {
		return nil, errors.New("no configuration: pass --config or set RELAX3D_CONFIG")
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = &cfg
	return a.cfg, nil
}

// setupLogger builds the process logger. Flags win over the config file;
// quiet sends console output nowhere while keeping the file sink.
func (a *App) setupLogger(quiet bool) error {
	opts := logging.Options{Level: a.LogLevel, Format: a.LogFormat, Out: a.Err}
	if a.cfg != nil {
		if opts.Level == "" {
			opts.Level = a.cfg.Log.Level
		}
		if opts.Format == "" {
			opts.Format = a.cfg.Log.Format
		}
		opts.File = a.cfg.Log.File
	}
	if quiet {
		opts.Out = io.Discard
	}
	l, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.log = l
	return nil
}

func (a *App) logger() zerolog.Logger {
	if a.log == nil {
		return zerolog.Nop()
	}
	return a.log.Logger
}

func (a *App) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

func (a *App) starter(cfg *config.Config) driver.Starter {
	if a.Starter != nil {
		return a.Starter
	}
	return driver.ExecStarter{SampleWindow: config.Millis(cfg.Solver.SampleWindowMS)}
}

func (a *App) store(ctx context.Context, cfg *config.Config) (runstore.Store, error) {
	s, err := runstore.Open(ctx, cfg.History.Path, cfg.History.PostgresDSN, cfg.History.Limit)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}

// controller wires a run controller over the real or injected desktop.
// ctx is the parent of every run it starts.
func (a *App) controller(ctx context.Context) (*pipeline.Controller, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	desk, err := a.NewDesktop()
	if err != nil {
		return nil, err
	}
	store, err := a.store(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewController(pipeline.ControllerConfig{
		Config:      cfg,
		Desktop:     desk,
		Starter:     a.starter(cfg),
		Clock:       a.Clock,
		Store:       store,
		Logger:      a.logger(),
		BaseContext: ctx,
		VerifyTools: true,
	}), nil
}
