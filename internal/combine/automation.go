// Package combine drives the legacy combine tool: it feeds a range of slice
// files through the tool's open dialog one by one and then strips the header
// of the combined data file.
package combine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"relax3d/internal/common/fsutil"
	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
	"relax3d/internal/pipeline"
)

// Fixed pauses inside one file's dialog interaction.
const (
	clearDelay = 200 * time.Millisecond
	typeSettle = 500 * time.Millisecond
)

// Job selects the slice files to combine.
type Job struct {
	Type string  `json:"type"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Dir  string  `json:"dir"`
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.Type) == "" {
		return errors.New("file type is required")
	}
	if j.Min > j.Max {
		return errors.Errorf("min %g is greater than max %g", j.Min, j.Max)
	}
	if j.Dir == "" {
		return errors.New("folder is required")
	}
	return nil
}

// Result is the outcome of one combine run.
type Result struct {
	RunID     string          `json:"run_id"`
	Status    pipeline.Status `json:"status"`
	Files     []string        `json:"files"`
	Processed []string        `json:"processed"`
	DatFile   string          `json:"dat_file,omitempty"`
	Removed   []string        `json:"removed,omitempty"`
	Cause     string          `json:"cause,omitempty"`
}

// Config wires an Automation.
type Config struct {
	Config   *config.Config
	Desktop  desktop.Desktop
	Starter  driver.Starter
	Clock    driver.Clock
	Reporter pipeline.Reporter
	Logger   zerolog.Logger
}

// Automation runs combine jobs. It is not safe for concurrent use.
type Automation struct {
	cfg      *config.Config
	clock    driver.Clock
	locator  *driver.Locator
	keyboard *driver.Keyboard
	launcher *driver.Launcher
	reporter pipeline.Reporter
	log      zerolog.Logger
}

func New(c Config) *Automation {
	clock := c.Clock
	if clock == nil {
		clock = driver.RealClock()
	}
	rep := c.Reporter
	if rep == nil {
		rep = pipeline.ReporterFunc(func(pipeline.Event) {})
	}
	locator := driver.NewLocator(c.Desktop, c.Logger)
	return &Automation{
		cfg:      c.Config,
		clock:    clock,
		locator:  locator,
		keyboard: driver.NewKeyboard(c.Desktop, clock, config.Millis(c.Config.Timing.CharDelayMS), c.Logger),
		launcher: driver.NewLauncher(c.Config.ToolsDir, c.Starter, locator, clock, c.Logger),
		reporter: rep,
		log:      c.Logger,
	}
}

// Executable locates the combine executable: tools_dir first, then the
// configured search dirs, then the program files directories.
func (a *Automation) Executable() (string, error) {
	cb := a.cfg.Combine
	dirs := append([]string{a.cfg.ToolsDir}, cb.SearchDirs...)
	dirs = append(dirs, os.Getenv("PROGRAMFILES"), os.Getenv("PROGRAMFILES(X86)"))
	if p, ok := fsutil.FirstExisting(cb.Executable, dirs...); ok {
		return p, nil
	}
	return "", driver.ErrProcess(cb.Executable, errors.New("executable not found"))
}

// Run combines every file of job in order. Cancelling ctx stops before the
// next file; the tool window is closed in every case once discovered.
func (a *Automation) Run(ctx context.Context, job Job) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := a.log.With().Str("run_id", res.RunID).Str("pipeline", "combine").Logger()
	if err := job.Validate(); err != nil {
		return a.fail(&res, "", err, log)
	}
	res.Files = FileList(job.Dir, job.Type, job.Min, job.Max)
	a.emit(res.RunID, pipeline.EventRunStarted, "", "", map[string]any{"pipeline": "combine", "stages": res.Files})
	if len(res.Files) == 0 {
		return a.fail(&res, "", errors.New("no matching files found in the selected range"), log)
	}
	log.Info().Int("files", len(res.Files)).Str("dir", job.Dir).Msg("combining")

	exe, err := a.Executable()
	if err != nil {
		return a.fail(&res, "launch", err, log)
	}
	cb := a.cfg.Combine
	h, err := a.launcher.LaunchPath(ctx, exe, cb.WindowTitle, config.Millis(a.cfg.Timing.LaunchGraceMS))
	if err != nil {
		if driver.IsCancelled(err) {
			return a.cancelled(&res, log)
		}
		return a.fail(&res, "launch", err, log)
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close combine window")
		}
	}()

	for i, name := range res.Files {
		if ctx.Err() != nil {
			return a.cancelled(&res, log)
		}
		a.emit(res.RunID, pipeline.EventStageStarted, name, "", map[string]any{"progress": i * 100 / len(res.Files)})
		if err := a.feed(ctx, name); err != nil {
			if driver.IsCancelled(err) {
				return a.cancelled(&res, log)
			}
			return a.fail(&res, name, err, log)
		}
		res.Processed = append(res.Processed, name)
		a.emit(res.RunID, pipeline.EventStageDone, name, "", nil)
	}

	path, removed, err := StripHeader(job.Dir, cb.DatFile, cb.StripLines)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("header not stripped")
		a.emit(res.RunID, pipeline.EventInfo, "header", "warning: "+err.Error(), nil)
	default:
		res.DatFile, res.Removed = path, removed
		for i, l := range removed {
			log.Info().Int("line", i+1).Str("text", l).Msg("removed header line")
		}
		a.emit(res.RunID, pipeline.EventInfo, "header", fmt.Sprintf("removed %d lines from %s", len(removed), path), map[string]any{"lines": removed})
	}

	res.Status = pipeline.StatusDone
	a.emit(res.RunID, pipeline.EventRunDone, "", fmt.Sprintf("%d files processed", len(res.Processed)), nil)
	return res, nil
}

// feed opens one file through the tool's File menu dialog.
func (a *Automation) feed(ctx context.Context, name string) error {
	t := a.cfg.Timing
	a.keyboard.Combo(desktop.VKMenu, 'F')
	if err := a.clock.SleepContext(ctx, config.Millis(t.CombineMenuDelayMS)); err != nil {
		return driver.ErrCancelled
	}
	if _, err := a.locator.FindDialog(a.cfg.Combine.DialogTitles); err != nil {
		return errors.Wrapf(err, "processing %s", name)
	}
	a.keyboard.Combo(desktop.VKControl, 'A')
	a.clock.Sleep(clearDelay)
	a.keyboard.Press(desktop.VKDelete)
	a.clock.Sleep(clearDelay)
	a.keyboard.Type(name)
	a.clock.Sleep(typeSettle)
	a.keyboard.Press(desktop.VKReturn)
	if err := a.clock.SleepContext(ctx, config.Millis(t.CombineFileSettleMS)); err != nil {
		return driver.ErrCancelled
	}
	return nil
}

func (a *Automation) fail(res *Result, stage string, err error, log zerolog.Logger) (Result, error) {
	log.Error().Err(err).Str("stage", stage).Msg("combine failed")
	res.Status = pipeline.StatusFailed
	res.Cause = err.Error()
	a.emit(res.RunID, pipeline.EventRunFailed, stage, res.Cause, map[string]any{"failure": string(pipeline.ClassifyFailure(err))})
	return *res, err
}

func (a *Automation) cancelled(res *Result, log zerolog.Logger) (Result, error) {
	log.Warn().Int("processed", len(res.Processed)).Msg("combine cancelled")
	res.Status = pipeline.StatusCancelled
	a.emit(res.RunID, pipeline.EventRunCancelled, "", "", nil)
	return *res, driver.ErrCancelled
}

func (a *Automation) emit(runID string, kind pipeline.EventKind, stage, msg string, fields map[string]any) {
	a.reporter.Report(pipeline.Event{
		Time:    a.clock.Now(),
		RunID:   runID,
		Kind:    kind,
		Stage:   stage,
		Message: msg,
		Fields:  fields,
	})
}
