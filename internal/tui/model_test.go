package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"relax3d/internal/pipeline"
)

func key(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func feed(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	var tm tea.Model = m
	for _, msg := range msgs {
		tm, _ = tm.Update(msg)
	}
	out, ok := tm.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", tm)
	}
	return out
}

func TestModelTracksStages(t *testing.T) {
	m := New("relax L", []string{"launch", "init", "iterate", "output"}, nil, nil)
	m = feed(t, m,
		eventMsg{Kind: pipeline.EventStageStarted, Stage: "launch"},
		eventMsg{Kind: pipeline.EventStageDone, Stage: "launch"},
		eventMsg{Kind: pipeline.EventStageStarted, Stage: "init"},
		eventMsg{Kind: pipeline.EventCPUSample, Stage: "init", Fields: map[string]any{"cpu": 42.0}},
	)
	if m.Finished() {
		t.Fatal("finished too early")
	}
	if m.stages[0].state != stateDone || m.stages[1].state != stateRunning || m.stages[2].state != statePending {
		t.Fatalf("stages: %+v", m.stages)
	}
	v := m.View()
	if !strings.Contains(v, "init: CPU 42.0%") || !strings.Contains(v, "c: cancel run") {
		t.Fatalf("view:\n%s", v)
	}

	m = feed(t, m, eventMsg{Kind: pipeline.EventRunFailed, Stage: "init", Message: "init phase did not settle"})
	if !m.Finished() || m.Outcome() != pipeline.EventRunFailed || m.stages[1].state != stateFailed {
		t.Fatalf("after failure: finished=%v outcome=%s stages=%+v", m.Finished(), m.Outcome(), m.stages)
	}
	if !strings.Contains(m.View(), "q: quit") {
		t.Fatal("quit hint missing once finished")
	}
}

func TestModelRunStartedReplacesStages(t *testing.T) {
	m := New("combine", nil, nil, nil)
	m = feed(t, m, eventMsg{Kind: pipeline.EventRunStarted, Fields: map[string]any{"pipeline": "combine", "stages": []string{"L1.txt", "L2.txt"}}})
	if len(m.stages) != 2 || m.stages[1].name != "L2.txt" {
		t.Fatalf("stages: %+v", m.stages)
	}
	m = feed(t, m, eventMsg{Kind: pipeline.EventStageStarted, Stage: "header"})
	if len(m.stages) != 3 {
		t.Fatal("unknown stage not appended")
	}
}

func TestModelCancelOnce(t *testing.T) {
	calls := 0
	m := New("pre", []string{"1_GEOMETRY"}, nil, func() bool { calls++; return true })
	m = feed(t, m, eventMsg{Kind: pipeline.EventStageStarted, Stage: "1_GEOMETRY"}, key("c"), key("c"), key("q"))
	if calls != 1 {
		t.Fatalf("cancel called %d times", calls)
	}
	if !strings.Contains(m.View(), "cancellation requested") {
		t.Fatal("cancel not logged")
	}

	tm, cmd := m.Update(eventMsg{Kind: pipeline.EventRunCancelled, Stage: "1_GEOMETRY"})
	m = tm.(Model)
	if cmd != nil {
		t.Fatal("no further event wait expected after a terminal event")
	}
	if m.stages[0].state != stateCancelled {
		t.Fatalf("stage state %v", m.stages[0].state)
	}
	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Fatal("q should quit once finished")
	}
}

func TestModelStreamClosed(t *testing.T) {
	ch := make(chan pipeline.Event)
	close(ch)
	m := New("relax S", nil, ch, nil)
	msg := waitEvent(ch)()
	m = feed(t, m, msg)
	if !m.Finished() {
		t.Fatal("closed stream should finish the view")
	}
}

func TestLogIsBounded(t *testing.T) {
	m := New("x", nil, nil, nil)
	for i := 0; i < maxLogLines+10; i++ {
		m.appendLog("line")
	}
	if len(m.log) != maxLogLines {
		t.Fatalf("log len %d", len(m.log))
	}
}
