package rag

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := NewLocalEmbedder()

	a, err := e.Embed(ctx, []string{"pagamento para a conta offshore"})
	require.NoError(t, err)
	b, err := e.Embed(ctx, []string{"pagamento para a conta offshore"})
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[0], e.Dimensions())
}

func TestLocalEmbedderNormalized(t *testing.T) {
	e := NewLocalEmbedder()
	vecs, err := e.Embed(context.Background(), []string{"some ordinary text with several words"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestLocalEmbedderIdenticalTextsAreClose(t *testing.T) {
	e := NewLocalEmbedder()
	vecs, err := e.Embed(context.Background(), []string{
		"transferência registrada na conta",
		"transferência registrada na conta",
		"assunto completamente diferente aqui",
	})
	require.NoError(t, err)

	assert.InDelta(t, 0, CosineDistance(vecs[0], vecs[1]), 1e-6)
	assert.Greater(t, CosineDistance(vecs[0], vecs[2]), 0.5)
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := NewLocalEmbedder()
	vecs, err := e.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs, 1)

	for _, v := range vecs[0] {
		assert.False(t, math.IsNaN(float64(v)))
		assert.Zero(t, v)
	}
}
