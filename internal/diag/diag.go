// Package diag carries structured diagnostic events out of the transform stages.
// Transform code never writes to a console; it hands events to a Sink.
package diag

import (
	"sync"

	"MarketLens/internal/logger"
	"MarketLens/internal/model"
)

// Stages reported by the pipeline.
const (
	StageFetch     = "fetch"
	StageAdapt     = "adapt"
	StageNormalize = "normalize"
	StageClean     = "clean"
	StagePersist   = "persist"
	StageRender    = "render"
)

// Event describes something that happened to one dataset at one stage.
type Event struct {
	Dataset model.DatasetName
	Stage   string
	Dropped int
	Err     error
	Fields  map[string]interface{}
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// LogSink writes events as structured log entries.
type LogSink struct {
	log *logger.Entry
}

func NewLogSink(l *logger.Log) *LogSink {
	return &LogSink{log: l.WithComponent("pipeline")}
}

func (s *LogSink) Emit(e Event) {
	fields := logger.Fields{
		"dataset": string(e.Dataset),
		"stage":   e.Stage,
	}
	if e.Dropped > 0 {
		fields["dropped"] = e.Dropped
	}
	for k, v := range e.Fields {
		fields[k] = v
	}
	entry := s.log.WithFields(fields)
	if e.Err != nil {
		entry.WithError(e.Err).Warn("record rejected")
		return
	}
	entry.Info("stage complete")
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Errors returns the errors emitted for one dataset and stage.
func (s *MemorySink) Errors(ds model.DatasetName, stage string) []error {
	var out []error
	for _, e := range s.Events() {
		if e.Dataset == ds && e.Stage == stage && e.Err != nil {
			out = append(out, e.Err)
		}
	}
	return out
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
