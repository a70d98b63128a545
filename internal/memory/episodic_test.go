package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodicRecordAndReplay(t *testing.T) {
	em, err := NewEpisodicMemory(t.TempDir())
	require.NoError(t, err)

	// no file yet
	got, err := em.ForInvestigation("inv-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, em.Record(Episode{
		InvestigationID: "inv-1",
		Agent:           "ingestion",
		Action:          "completed",
		Detail:          map[string]any{"documents": 3},
	}))
	require.NoError(t, em.Record(Episode{
		InvestigationID: "inv-2",
		Agent:           "ingestion",
		Action:          "completed",
	}))
	require.NoError(t, em.Record(Episode{
		InvestigationID: "inv-1",
		Agent:           "classify",
		Action:          "completed",
	}))

	got, err = em.ForInvestigation("inv-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ingestion", got[0].Agent)
	assert.Equal(t, "classify", got[1].Agent)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, float64(3), got[0].Detail["documents"])
}

func TestEpisodicKeepsExplicitTimestamp(t *testing.T) {
	em, err := NewEpisodicMemory(t.TempDir())
	require.NoError(t, err)

	ep := Episode{InvestigationID: "inv-1", Agent: "gate", Action: "decided"}
	require.NoError(t, em.Record(ep))

	got, err := em.ForInvestigation("inv-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero())
}
