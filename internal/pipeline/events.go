package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind names a status event.
type EventKind string

const (
	EventRunStarted      EventKind = "run_started"
	EventStageStarted    EventKind = "stage_started"
	EventStageDone       EventKind = "stage_done"
	EventCPUSample       EventKind = "cpu_sample"
	EventInfo            EventKind = "info"
	EventCancelRequested EventKind = "cancel_requested"
	EventRunDone         EventKind = "run_done"
	EventRunFailed       EventKind = "run_failed"
	EventRunCancelled    EventKind = "run_cancelled"
)

// Event is a status update of a run.
// Minimal and stable: kind, run, stage and optional fields.
type Event struct {
	Time    time.Time      `json:"time"`
	RunID   string         `json:"run_id"`
	Kind    EventKind      `json:"kind"`
	Stage   string         `json:"stage,omitempty"`
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Terminal reports whether e ends a run.
func (e Event) Terminal() bool {
	return e.Kind == EventRunDone || e.Kind == EventRunFailed || e.Kind == EventRunCancelled
}

// String renders the event as one human-readable status line.
func (e Event) String() string {
	var b strings.Builder
	switch e.Kind {
	case EventRunStarted:
		fmt.Fprintf(&b, "started %v run", e.Fields["pipeline"])
	case EventStageStarted:
		fmt.Fprintf(&b, "running %s", e.Stage)
	case EventStageDone:
		fmt.Fprintf(&b, "%s finished", e.Stage)
	case EventCPUSample:
		fmt.Fprintf(&b, "%s: CPU %.1f%%", e.Stage, e.Fields["cpu"])
	case EventCancelRequested:
		b.WriteString("cancellation requested")
	case EventRunDone:
		b.WriteString("run completed successfully")
	case EventRunFailed:
		fmt.Fprintf(&b, "run failed in %s", e.Stage)
	case EventRunCancelled:
		b.WriteString("run cancelled")
	default:
		if e.Stage != "" {
			b.WriteString(e.Stage + ": ")
		}
	}
	if e.Message != "" {
		if b.Len() > 0 && e.Kind != EventInfo {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	return b.String()
}

// Reporter receives status events. Implementations should be lightweight and
// non-blocking; Report must not panic.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// noopReporter is the default; it drops events.
type noopReporter struct{}

func (noopReporter) Report(Event) {}

// MultiReporter fans an event out to each reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// LogReporter writes every event to a zerolog logger.
type LogReporter struct {
	Log zerolog.Logger
}

func (r LogReporter) Report(e Event) {
	ev := r.Log.Info()
	switch e.Kind {
	case EventRunFailed:
		ev = r.Log.Error()
	case EventCPUSample:
		ev = r.Log.Debug()
	case EventRunCancelled, EventCancelRequested:
		ev = r.Log.Warn()
	}
	ev = ev.Str("run_id", e.RunID).Str("event", string(e.Kind))
	if e.Stage != "" {
		ev = ev.Str("stage", e.Stage)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, e.Fields[k])
	}
	ev.Msg(e.String())
}

// MemoryReporter stores events in memory for tests.
type MemoryReporter struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryReporter() *MemoryReporter { return &MemoryReporter{} }

func (r *MemoryReporter) Report(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *MemoryReporter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in order.
func (r *MemoryReporter) Kinds() []EventKind {
	evs := r.Events()
	out := make([]EventKind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *MemoryReporter) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
