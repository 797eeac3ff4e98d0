package driver

import (
	"strings"

	"github.com/rs/zerolog"

	"relax3d/internal/desktop"
)

// Locator finds top-level windows, file dialogs and their controls.
type Locator struct {
	desk desktop.Desktop
	log  zerolog.Logger
}

func NewLocator(desk desktop.Desktop, log zerolog.Logger) *Locator {
	return &Locator{desk: desk, log: log}
}

// FindWindow returns the top-level window with exactly this title and raises
// it to the foreground.
func (l *Locator) FindWindow(title string) (desktop.Handle, error) {
	h, ok := l.desk.FindWindow("", title)
	if !ok {
		l.log.Error().Str("title", title).Msg("window not found")
		return 0, ErrDiscovery("window", title)
	}
	l.raise(h, title)
	return h, nil
}

// FindDialog tries each candidate title in order against the standard dialog
// class and returns the first match. Later candidates are not looked up.
func (l *Locator) FindDialog(titles []string) (desktop.Handle, error) {
	for _, title := range titles {
		if h, ok := l.desk.FindWindow(desktop.DialogClass, title); ok {
			l.log.Info().Str("title", title).Msg("found file dialog")
			l.raise(h, title)
			return h, nil
		}
	}
	l.log.Error().Strs("titles", titles).Msg("file dialog not found")
	return 0, ErrDiscovery("dialog", strings.Join(titles, " | "))
}

// ClickControl clicks the first child control of win whose text equals label.
func (l *Locator) ClickControl(win desktop.Handle, label string) error {
	for _, c := range l.desk.Children(win) {
		if l.desk.WindowText(c) != label {
			continue
		}
		if err := l.desk.Click(c); err != nil {
			return ErrDiscovery("control", label)
		}
		return nil
	}
	return ErrDiscovery("control", label)
}

// Close posts WM_CLOSE to win.
func (l *Locator) Close(win desktop.Handle) error {
	return l.desk.PostClose(win)
}

func (l *Locator) raise(h desktop.Handle, title string) {
	if err := l.desk.SetForeground(h); err != nil {
		l.log.Warn().Err(err).Str("title", title).Msg("could not raise window")
	}
}
