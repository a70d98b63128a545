// Package monitor provides the bounded activity event buffer shared by all
// concurrently running investigations.
package monitor

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the ring buffer to the most recent events.
const DefaultCapacity = 500

// Event is one stage start/end emission.
type Event struct {
	Agent           string         `json:"agent"`
	Step            string         `json:"step"`
	Timestamp       time.Time      `json:"timestamp"`
	InvestigationID string         `json:"investigation_id"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// ActivityMonitor is a mutex-guarded ring buffer of recent events.
// Multiple investigations write to one monitor; readers poll and filter.
type ActivityMonitor struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	next     int
	full     bool
}

// NewActivityMonitor creates a monitor with the given capacity
// (DefaultCapacity when n <= 0).
func NewActivityMonitor(capacity int) *ActivityMonitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ActivityMonitor{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

// Emit appends an event, evicting the oldest when full.
func (m *ActivityMonitor) Emit(investigationID, agent, step string, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = Event{
		Agent:           agent,
		Step:            step,
		Timestamp:       time.Now(),
		InvestigationID: investigationID,
		Payload:         payload,
	}
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.full = true
	}
}

// Recent returns up to n of the most recent events, oldest first.
func (m *ActivityMonitor) Recent(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recentLocked(n, "")
}

// RecentFor returns up to n recent events for one investigation, oldest
// first.
func (m *ActivityMonitor) RecentFor(investigationID string, n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recentLocked(n, investigationID)
}

func (m *ActivityMonitor) recentLocked(n int, investigationID string) []Event {
	size := m.next
	start := 0
	if m.full {
		size = m.capacity
		start = m.next
	}
	if n <= 0 || n > size {
		n = size
	}

	ordered := make([]Event, 0, size)
	for i := 0; i < size; i++ {
		ev := m.events[(start+i)%m.capacity]
		if investigationID != "" && ev.InvestigationID != investigationID {
			continue
		}
		ordered = append(ordered, ev)
	}
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// Len returns the number of buffered events.
func (m *ActivityMonitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return m.capacity
	}
	return m.next
}

// Clear drops all buffered events.
func (m *ActivityMonitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
	m.full = false
	for i := range m.events {
		m.events[i] = Event{}
	}
}
