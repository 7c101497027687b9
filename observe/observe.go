// Package observe reports conversion progress to a pluggable sink.
//
// Reporting is fire-and-forget: a sink that panics or blocks badly never
// changes the outcome of a conversion. Every event is keyed by the
// correlation id of the run it belongs to, carried in a [Scope].
package observe

import "time"

// Event names attached to every stage record.
const (
	EventStageStart    = "stage_start"
	EventStageComplete = "stage_complete"
	EventStageError    = "stage_error"
	EventWarning       = "warning"
)

// Fields carries event metrics and attributes.
type Fields map[string]any

// Sink receives stage events.
type Sink interface {
	StageStart(correlationID, stage string, fields Fields)
	StageComplete(correlationID, stage string, duration time.Duration, metrics Fields)
	StageError(correlationID, stage, message string)
	Warn(correlationID, message string)
}

// Scope binds a correlation id to a sink. It is passed explicitly through
// every stage of a run.
type Scope struct {
	CorrelationID string
	Sink          Sink
}

// NewScope returns a scope for one run. A nil sink discards events.
func NewScope(correlationID string, sink Sink) Scope {
	if sink == nil {
		sink = Nop()
	}
	return Scope{CorrelationID: correlationID, Sink: sink}
}

func (s Scope) sink() Sink {
	if s.Sink == nil {
		return nopSink{}
	}
	return s.Sink
}

// Start reports that a stage began.
func (s Scope) Start(stage string, fields Fields) {
	defer swallow()
	s.sink().StageStart(s.CorrelationID, stage, fields)
}

// Complete reports that a stage finished successfully.
func (s Scope) Complete(stage string, duration time.Duration, metrics Fields) {
	defer swallow()
	s.sink().StageComplete(s.CorrelationID, stage, duration, metrics)
}

// Error reports that a stage failed.
func (s Scope) Error(stage, message string) {
	defer swallow()
	s.sink().StageError(s.CorrelationID, stage, message)
}

// Warn reports a non-fatal problem.
func (s Scope) Warn(message string) {
	defer swallow()
	s.sink().Warn(s.CorrelationID, message)
}

func swallow() {
	_ = recover()
}

type nopSink struct{}

func (nopSink) StageStart(string, string, Fields)                   {}
func (nopSink) StageComplete(string, string, time.Duration, Fields) {}
func (nopSink) StageError(string, string, string)                   {}
func (nopSink) Warn(string, string)                                 {}

// Nop returns a sink that discards every event.
func Nop() Sink {
	return nopSink{}
}

// Multi fans events out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) StageStart(id, stage string, fields Fields) {
	for _, s := range m {
		NewScope(id, s).Start(stage, fields)
	}
}

func (m multiSink) StageComplete(id, stage string, d time.Duration, metrics Fields) {
	for _, s := range m {
		NewScope(id, s).Complete(stage, d, metrics)
	}
}

func (m multiSink) StageError(id, stage, message string) {
	for _, s := range m {
		NewScope(id, s).Error(stage, message)
	}
}

func (m multiSink) Warn(id, message string) {
	for _, s := range m {
		NewScope(id, s).Warn(message)
	}
}
