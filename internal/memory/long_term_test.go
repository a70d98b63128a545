package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLTMPatterns(t *testing.T) {
	ltm, err := NewLongTermMemory(t.TempDir())
	require.NoError(t, err)

	// empty store
	got, err := ltm.Patterns()
	require.NoError(t, err)
	assert.Empty(t, got)

	batch := []StoredPattern{
		{InvestigationID: "inv-1", Category: "degree", Description: "hub", Confidence: 0.9},
		{InvestigationID: "inv-1", Category: "temporal", Description: "sequence", Confidence: 0.75},
	}
	require.NoError(t, ltm.StorePatterns(batch))
	require.NoError(t, ltm.StorePatterns([]StoredPattern{
		{InvestigationID: "inv-2", Category: "frequency", Description: "term", Confidence: 0.6},
	}))

	got, err = ltm.Patterns()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "degree", got[0].Category)
	assert.Equal(t, "inv-2", got[2].InvestigationID)
}

func TestLTMPatternsRetention(t *testing.T) {
	ltm, err := NewLongTermMemory(t.TempDir())
	require.NoError(t, err)

	batch := make([]StoredPattern, maxStoredPatterns+10)
	for i := range batch {
		batch[i] = StoredPattern{Description: fmt.Sprintf("p%d", i)}
	}
	require.NoError(t, ltm.StorePatterns(batch))

	got, err := ltm.Patterns()
	require.NoError(t, err)
	require.Len(t, got, maxStoredPatterns)
	// oldest entries are dropped
	assert.Equal(t, "p10", got[0].Description)
}

func TestLTMEntityProfiles(t *testing.T) {
	ltm, err := NewLongTermMemory(t.TempDir())
	require.NoError(t, err)

	got, err := ltm.EntityProfiles("classify:acme")
	require.NoError(t, err)
	assert.Empty(t, got)

	now := time.Now().UTC()
	require.NoError(t, ltm.StoreEntityProfile("classify:acme", EntityProfile{
		InvestigationID: "inv-1", Observation: "offshore mentions", StoredAt: now,
	}))
	require.NoError(t, ltm.StoreEntityProfile("classify:acme", EntityProfile{
		InvestigationID: "inv-2", Observation: "repeat appearance", StoredAt: now,
	}))
	require.NoError(t, ltm.StoreEntityProfile("classify:globex", EntityProfile{
		InvestigationID: "inv-1", Observation: "single mention", StoredAt: now,
	}))

	got, err = ltm.EntityProfiles("classify:acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "offshore mentions", got[0].Observation)

	other, err := ltm.EntityProfiles("classify:globex")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestLTMEntityProfileRetention(t *testing.T) {
	ltm, err := NewLongTermMemory(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < maxProfilesPerKey+5; i++ {
		require.NoError(t, ltm.StoreEntityProfile("k", EntityProfile{
			Observation: fmt.Sprintf("o%d", i),
		}))
	}

	got, err := ltm.EntityProfiles("k")
	require.NoError(t, err)
	require.Len(t, got, maxProfilesPerKey)
	assert.Equal(t, "o5", got[0].Observation)
}

func TestLTMHistory(t *testing.T) {
	ltm, err := NewLongTermMemory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ltm.AppendHistory(HistoryEntry{
		InvestigationID: "inv-1",
		Summary:         "3 documents, 5 entities, 2 hypotheses",
		DocumentCount:   3,
		EntityCount:     5,
		Verdict:         "VALID",
	}))

	got, err := ltm.History()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VALID", got[0].Verdict)
	assert.Equal(t, 3, got[0].DocumentCount)
}
