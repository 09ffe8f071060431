// Package record is the append-only lineage log. Events are keyed by
// opaque integer refs, so concurrent workers can append without
// coordination beyond the store's own lock; no string formatting happens on
// the hot path.
package record

import (
	"sync"
	"time"

	"symvolve/internal/model"
)

type EventKind string

const (
	EventBirth     EventKind = "birth"
	EventMutation  EventKind = "mutation"
	EventCrossover EventKind = "crossover"
	EventTuning    EventKind = "tuning"
	EventDeath     EventKind = "death"
)

type Event struct {
	Kind   EventKind
	At     time.Time
	Parent uint64
	Note   string
}

// Recorder is a write-only sink for lineage events.
type Recorder interface {
	Append(ref uint64, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Append(uint64, Event) {}

// Memory keeps events in insertion order per ref.
type Memory struct {
	mu     sync.Mutex
	events map[uint64][]Event
	order  []uint64
}

func NewMemory() *Memory {
	return &Memory{events: make(map[uint64][]Event)}
}

func (m *Memory) Append(ref uint64, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.events[ref]; !seen {
		m.order = append(m.order, ref)
	}
	m.events[ref] = append(m.events[ref], event)
}

// Events returns the events appended under one ref, oldest first.
func (m *Memory) Events(ref uint64) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events[ref]...)
}

// Merge appends every event held by src, preserving src's first-seen
// order. src is left untouched.
func (m *Memory) Merge(src *Memory) {
	if src == nil {
		return
	}
	src.mu.Lock()
	order := append([]uint64(nil), src.order...)
	events := make(map[uint64][]Event, len(src.events))
	for ref, evs := range src.events {
		events[ref] = append([]Event(nil), evs...)
	}
	src.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range order {
		if _, seen := m.events[ref]; !seen {
			m.order = append(m.order, ref)
		}
		m.events[ref] = append(m.events[ref], events[ref]...)
	}
}

// Records flattens the log into storage records, refs in first-seen order.
func (m *Memory) Records() []model.LineageEventRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LineageEventRecord, 0, len(m.order))
	for _, ref := range m.order {
		for _, event := range m.events[ref] {
			out = append(out, model.LineageEventRecord{
				Ref:        ref,
				Parent:     event.Parent,
				Kind:       string(event.Kind),
				AtUnixNano: event.At.UnixNano(),
				Note:       event.Note,
			})
		}
	}
	return out
}
