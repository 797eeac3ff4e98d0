// Package tui renders a live view of one run: the stage list with per-state
// styles, a spinner while the run is in progress and a scrolling status log.
// It follows The Elm Architecture of bubbletea: events from the run arrive as
// messages, Update folds them into the model and View renders it.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relax3d/internal/pipeline"
)

const maxLogLines = 200

type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateDone
	stateFailed
	stateCancelled
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	logStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
)

type stageRow struct {
	name  string
	state stageState
}

type eventMsg pipeline.Event

type streamClosedMsg struct{}

// Model is the bubbletea model of a single run view.
type Model struct {
	title   string
	stages  []stageRow
	log     []string
	spinner spinner.Model
	events  <-chan pipeline.Event
	cancel  func() bool

	cancelRequested bool
	finished        bool
	outcome         pipeline.EventKind
	height          int
}

// New builds a view for a run whose events arrive on events. cancel is
// called once when the user presses c.
func New(title string, stages []string, events <-chan pipeline.Event, cancel func() bool) Model {
	m := Model{
		title:   title,
		events:  events,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(runningStyle)),
		height:  24,
	}
	m.setStages(stages)
	return m
}

func (m *Model) setStages(names []string) {
	m.stages = m.stages[:0]
	for _, n := range names {
		m.stages = append(m.stages, stageRow{name: n})
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitEvent(m.events))
}

func waitEvent(ch <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil
	case eventMsg:
		m.apply(pipeline.Event(msg))
		if m.finished {
			return m, nil
		}
		return m, waitEvent(m.events)
	case streamClosedMsg:
		if !m.finished {
			m.finished = true
			m.appendLog("event stream closed")
		}
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "c", "ctrl+c":
		if m.finished {
			return m, tea.Quit
		}
		if !m.cancelRequested && m.cancel != nil {
			m.cancelRequested = true
			if m.cancel() {
				m.appendLog("cancellation requested")
			}
		}
	case "q", "esc":
		if m.finished {
			return m, tea.Quit
		}
		m.appendLog("run in progress, press c to cancel")
	}
	return m, nil
}

// apply folds one event into the stage list and the log.
func (m *Model) apply(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventRunStarted:
		if names, ok := e.Fields["stages"].([]string); ok && len(names) > 0 {
			m.setStages(names)
		}
	case pipeline.EventStageStarted:
		m.mark(e.Stage, stateRunning)
	case pipeline.EventStageDone:
		m.mark(e.Stage, stateDone)
	case pipeline.EventRunFailed:
		m.mark(e.Stage, stateFailed)
	case pipeline.EventRunCancelled:
		for i := range m.stages {
			if m.stages[i].state == stateRunning {
				m.stages[i].state = stateCancelled
			}
		}
	}
	if e.Terminal() {
		m.finished = true
		m.outcome = e.Kind
	}
	m.appendLog(e.String())
}

func (m *Model) mark(stage string, st stageState) {
	if stage == "" {
		return
	}
	for i := range m.stages {
		if m.stages[i].name == stage {
			m.stages[i].state = st
			return
		}
	}
	m.stages = append(m.stages, stageRow{name: stage, state: st})
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// Finished reports whether the run reached a terminal event.
func (m Model) Finished() bool { return m.finished }

// Outcome is the kind of the terminal event, empty while running.
func (m Model) Outcome() pipeline.EventKind { return m.outcome }

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, s := range m.stages {
		b.WriteString(m.renderStage(s))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	room := m.height - len(m.stages) - 6
	if room < 3 {
		room = 3
	}
	lines := m.log
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		b.WriteString(logStyle.Render(l))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.finished {
		b.WriteString(hintStyle.Render("q: quit"))
	} else {
		b.WriteString(hintStyle.Render("c: cancel run"))
	}
	return b.String()
}

func (m Model) renderStage(s stageRow) string {
	switch s.state {
	case stateRunning:
		if m.finished {
			return runningStyle.Render("  > " + s.name)
		}
		return fmt.Sprintf("%s %s", m.spinner.View(), runningStyle.Render(s.name))
	case stateDone:
		return doneStyle.Render("  ✓ " + s.name)
	case stateFailed:
		return failedStyle.Render("  ✗ " + s.name)
	case stateCancelled:
		return cancelledStyle.Render("  - " + s.name)
	}
	return pendingStyle.Render("    " + s.name)
}

// Run shows m until the user quits or ctx is done and returns the final model.
func Run(ctx context.Context, m Model) (Model, error) {
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	return m, err
}
