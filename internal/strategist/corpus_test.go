package strategist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedTextDeterministic(t *testing.T) {
	a := embedText("leveraged looping with aave")
	b := embedText("leveraged looping with aave")
	assert.Equal(t, a, b)

	c := embedText("impermanent loss on volatile pairs")
	assert.NotEqual(t, a, c)
}

func TestEmbedTextNormalized(t *testing.T) {
	vec := embedText("stablecoin yield farming strategies")

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbedTextEmpty(t *testing.T) {
	vec := embedText("")
	require.Len(t, vec, embeddingDim)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestCorpusSearchFindsRelevantNote(t *testing.T) {
	corpus, err := NewCorpus()
	require.NoError(t, err)

	notes, err := corpus.Search(context.Background(), "leveraged looping lending leverage health factor", 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, strings.ToLower(notes[0]), "looping")
}

func TestCorpusSearchCapsAtCollectionSize(t *testing.T) {
	corpus, err := NewCorpus()
	require.NoError(t, err)

	notes, err := corpus.Search(context.Background(), "yield", 50)
	require.NoError(t, err)
	assert.Len(t, notes, len(builtinCorpus))
}
