package monitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitAndRecent(t *testing.T) {
	m := NewActivityMonitor(10)

	m.Emit("inv-1", "ingestion", "start", nil)
	m.Emit("inv-1", "ingestion", "end", map[string]any{"documents": 2})
	m.Emit("inv-1", "classify", "start", nil)

	assert.Equal(t, 3, m.Len())

	events := m.Recent(0)
	require.Len(t, events, 3)
	assert.Equal(t, "start", events[0].Step)
	assert.Equal(t, "classify", events[2].Agent)

	// bounded request returns the newest ones, oldest first
	last2 := m.Recent(2)
	require.Len(t, last2, 2)
	assert.Equal(t, "end", last2[0].Step)
	assert.Equal(t, "classify", last2[1].Agent)
}

func TestRingEviction(t *testing.T) {
	m := NewActivityMonitor(3)

	for i := 0; i < 5; i++ {
		m.Emit("inv-1", "ingestion", fmt.Sprintf("step-%d", i), nil)
	}

	assert.Equal(t, 3, m.Len())

	events := m.Recent(0)
	require.Len(t, events, 3)
	assert.Equal(t, "step-2", events[0].Step)
	assert.Equal(t, "step-4", events[2].Step)
}

func TestRecentFor(t *testing.T) {
	m := NewActivityMonitor(10)

	m.Emit("inv-1", "ingestion", "start", nil)
	m.Emit("inv-2", "ingestion", "start", nil)
	m.Emit("inv-1", "classify", "start", nil)

	events := m.RecentFor("inv-1", 0)
	require.Len(t, events, 2)
	assert.Equal(t, "ingestion", events[0].Agent)
	assert.Equal(t, "classify", events[1].Agent)

	assert.Empty(t, m.RecentFor("inv-3", 0))
}

func TestDefaultCapacity(t *testing.T) {
	m := NewActivityMonitor(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		m.Emit("inv-1", "a", "s", nil)
	}
	assert.Equal(t, DefaultCapacity, m.Len())
}

func TestClear(t *testing.T) {
	m := NewActivityMonitor(2)
	m.Emit("inv-1", "a", "s", nil)
	m.Emit("inv-1", "a", "s", nil)
	m.Emit("inv-1", "a", "s", nil)

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Recent(0))
}
