// Package progress implements the Progress Updater: an append-only,
// single-writer log of ResearchLogEntry records plus a non-blocking push
// stream of progress events, adapted from the teacher's channel-based
// internal/events.Bus.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"go-research/internal/domain"
)

// EventType is one of the progress-stream event kinds from spec §4.1/§6.
type EventType string

const (
	EventProgressInit   EventType = "progress-init"
	EventActivity       EventType = "activity"
	EventActivityDelta  EventType = "activity-delta"
	EventDepthDelta     EventType = "depth-delta"
	EventWarning        EventType = "warning"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// Snapshot is the state carried on every non-init progress event.
type Snapshot struct {
	CurrentDepth   int       `json:"currentDepth"`
	MaxDepth       int       `json:"maxDepth"`
	CompletedSteps int       `json:"completedSteps"`
	TotalSteps     int       `json:"totalSteps"`
	Timestamp      time.Time `json:"timestamp"`
}

// InitContent is the payload of the one progress-init event per run.
type InitContent struct {
	MaxDepth   int `json:"maxDepth"`
	TotalSteps int `json:"totalSteps"`
}

// Event is the envelope every Sink receives: a fresh UUID (for idempotent
// consumer dedup), a type, and a type-specific content payload.
type Event struct {
	Type    EventType   `json:"type"`
	ID      string      `json:"id"`
	Content interface{} `json:"content"`
}

// ActivityContent carries the snapshot plus a human-readable message for
// activity/warning/error/complete/depth-delta events.
type ActivityContent struct {
	Snapshot
	Message string `json:"message,omitempty"`
}

// Sink is the write-only destination progress events are pushed to. nil is a
// legal Sink value and makes every Updater method a log-only no-op.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// State is the subset of orchestrator.ResearchState the Updater reads and
// writes. The orchestrator's ResearchState embeds or satisfies this.
type State interface {
	Snapshot() Snapshot
	SetTotalSteps(int)
	QueueLength() int
}

// Updater accumulates log entries and emits progress events to a Sink.
type Updater struct {
	mu   sync.Mutex
	sink Sink
	log  []domain.ResearchLogEntry
}

// New creates an Updater. sink may be nil.
func New(sink Sink) *Updater {
	return &Updater{sink: sink}
}

// AddLogEntry appends a structured entry to the in-memory log. Entries are
// never dropped.
func (u *Updater) AddLogEntry(typ domain.LogEntryType, status domain.LogEntryStatus, message string, depth int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.log = append(u.log, domain.ResearchLogEntry{
		Type:      typ,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Depth:     depth,
	})
}

// Logs returns a snapshot copy of the accumulated log.
func (u *Updater) Logs() []domain.ResearchLogEntry {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.ResearchLogEntry, len(u.log))
	copy(out, u.log)
	return out
}

// UpdateProgressInit emits the single progress-init event for a run and
// writes totalSteps into state, per spec §4.1.
func (u *Updater) UpdateProgressInit(state State, sectionCount, baseStepsPerIteration, planningStep, finalReportSteps int) {
	total := planningStep + sectionCount*baseStepsPerIteration + finalReportSteps
	state.SetTotalSteps(total)

	snap := state.Snapshot()
	u.emit(Event{
		Type: EventProgressInit,
		ID:   uuid.NewString(),
		Content: InitContent{
			MaxDepth:   snap.MaxDepth,
			TotalSteps: total,
		},
	})
}

// UpdateProgress emits an event carrying the current snapshot. On
// EventComplete the caller must have already snapped totalSteps equal to
// completedSteps (the orchestrator does this before calling); on every other
// event type totalSteps is re-estimated here as
// completedSteps + queueLength + 1 (final report), per spec §4.1.
func (u *Updater) UpdateProgress(state State, eventType EventType, message string) {
	if eventType != EventComplete {
		estimate := state.Snapshot().CompletedSteps + state.QueueLength() + 1
		state.SetTotalSteps(estimate)
	}

	snap := state.Snapshot()
	snap.Timestamp = time.Now()
	u.emit(Event{
		Type: eventType,
		ID:   uuid.NewString(),
		Content: ActivityContent{
			Snapshot: snap,
			Message:  message,
		},
	})
}

func (u *Updater) emit(e Event) {
	if u.sink == nil {
		return
	}
	u.sink.Emit(e)
}

// MemorySink is an in-memory Sink capturing every emitted event, for tests.
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
}

// Snapshot returns a copy of the captured events.
func (m *MemorySink) Snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.Events))
	copy(out, m.Events)
	return out
}
