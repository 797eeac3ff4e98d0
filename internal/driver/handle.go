package driver

import (
	"errors"

	"relax3d/internal/desktop"
)

// StageHandle is the launched program a stage is driving: its process and,
// once discovered, its main window.
type StageHandle struct {
	Name    string
	Window  desktop.Handle
	Process Process

	desk desktop.Desktop
}

// Close posts WM_CLOSE to the window, if one was discovered.
func (h *StageHandle) Close() error {
	if h == nil || h.Window == 0 || h.desk == nil {
		return nil
	}
	return h.desk.PostClose(h.Window)
}

// Terminate closes the window and stops the process. Both steps are attempted
// and their errors joined.
func (h *StageHandle) Terminate() error {
	if h == nil {
		return nil
	}
	var errs []error
	if h.Window != 0 && h.desk != nil {
		if err := h.desk.PostClose(h.Window); err != nil {
			errs = append(errs, err)
		}
	}
	if h.Process != nil && !h.Process.Exited() {
		if err := h.Process.Terminate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pid returns the process id, or 0 when no process is attached.
func (h *StageHandle) Pid() int {
	if h == nil || h.Process == nil {
		return 0
	}
	return h.Process.Pid()
}
