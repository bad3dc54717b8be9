package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType classifies run events for filtering and routing.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventStepStart    EventType = "step_start"
	EventActionDone   EventType = "action_done"
	EventConditionMet EventType = "condition_met"
	EventCheckpoint   EventType = "checkpoint"
	EventStepPassed   EventType = "step_passed"
	EventStepFailed   EventType = "step_failed"
	EventRunComplete  EventType = "run_complete"
	EventRunFailed    EventType = "run_failed"
)

// Event is a single observation from a run. Step is 1-based and zero for
// run-level events.
type Event struct {
	Type      EventType
	RunID     string
	Scenario  string
	Step      int
	Label     string
	Action    string
	Condition string
	Artifact  string
	Elapsed   time.Duration
	Error     error
}

// Observer receives events during a run. Observers shared between
// concurrent runs must be safe for concurrent use.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(e Event) {
	for _, obs := range m {
		if obs != nil {
			obs.OnEvent(e)
		}
	}
}

// LogObserver writes run events as structured slog lines.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnEvent(e Event) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.String("scenario", e.Scenario),
	}
	if e.Step > 0 {
		attrs = append(attrs, slog.Int("step", e.Step), slog.String("label", e.Label))
	}
	if e.Action != "" {
		attrs = append(attrs, slog.String("action", e.Action))
	}
	if e.Condition != "" {
		attrs = append(attrs, slog.String("condition", e.Condition))
	}
	if e.Artifact != "" {
		attrs = append(attrs, slog.String("artifact", e.Artifact))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}
	level := slog.LevelInfo
	switch e.Type {
	case EventActionDone, EventConditionMet, EventStepStart:
		level = slog.LevelDebug
	case EventStepFailed, EventRunFailed:
		level = slog.LevelError
	}
	if e.Error != nil {
		attrs = append(attrs, slog.String("error", e.Error.Error()))
	}
	logger.LogAttrs(context.Background(), level, "run", attrs...)
}

// TraceCollector accumulates events in memory. Safe for concurrent use.
type TraceCollector struct {
	mu     sync.Mutex
	events []Event
}

func (t *TraceCollector) OnEvent(e Event) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of all collected events.
func (t *TraceCollector) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Types returns the event types in arrival order.
func (t *TraceCollector) Types() []EventType {
	events := t.Events()
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
