package observe

import (
	"sync"
	"time"
)

// Event is a single recorded sink call.
type Event struct {
	Kind          string // one of the Event* constants
	CorrelationID string
	Stage         string
	Message       string
	Duration      time.Duration
	Fields        Fields
}

// Recorder keeps every event in memory. It backs debug output and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) StageStart(id, stage string, fields Fields) {
	r.add(Event{Kind: EventStageStart, CorrelationID: id, Stage: stage, Fields: copyFields(fields)})
}

func (r *Recorder) StageComplete(id, stage string, d time.Duration, metrics Fields) {
	r.add(Event{Kind: EventStageComplete, CorrelationID: id, Stage: stage, Duration: d, Fields: copyFields(metrics)})
}

func (r *Recorder) StageError(id, stage, message string) {
	r.add(Event{Kind: EventStageError, CorrelationID: id, Stage: stage, Message: message})
}

func (r *Recorder) Warn(id, message string) {
	r.add(Event{Kind: EventWarning, CorrelationID: id, Message: message})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the stage names of events of the given kind, in order.
func (r *Recorder) Stages(kind string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Stage)
		}
	}
	return out
}

// Metrics returns the fields of the completion event for stage, or nil.
func (r *Recorder) Metrics(stage string) Fields {
	for _, e := range r.Events() {
		if e.Kind == EventStageComplete && e.Stage == stage {
			return e.Fields
		}
	}
	return nil
}

func copyFields(f Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
