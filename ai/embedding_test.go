package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	embedder := NewLocalEmbedder(64)

	first, err := embedder.Embed(context.Background(), "the robot finished the task")
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), "the robot finished the task")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestLocalEmbedder_Normalized(t *testing.T) {
	embedder := NewLocalEmbedder(128)

	vec, err := embedder.Embed(context.Background(), "a few words to hash")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalEmbedder_SharedVocabularyScoresHigher(t *testing.T) {
	embedder := NewLocalEmbedder(256)
	ctx := context.Background()

	base, err := embedder.Embed(ctx, "the robot assembled the chassis")
	require.NoError(t, err)
	near, err := embedder.Embed(ctx, "the robot assembled the frame")
	require.NoError(t, err)
	far, err := embedder.Embed(ctx, "clouds drift over quiet mountains")
	require.NoError(t, err)

	assert.Greater(t, CosineSimilarity(base, near), CosineSimilarity(base, far))
	assert.InDelta(t, 1.0, CosineSimilarity(base, base), 1e-6)
}

func TestLocalEmbedder_TokenizationIgnoresPunctuationAndCase(t *testing.T) {
	embedder := NewLocalEmbedder(64)
	ctx := context.Background()

	a, err := embedder.Embed(ctx, "Hello, World!")
	require.NoError(t, err)
	b, err := embedder.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestLocalEmbedder_Defaults(t *testing.T) {
	embedder := NewLocalEmbedder(0)
	assert.Equal(t, 256, embedder.Dimensions())
	assert.Equal(t, "local-hash", embedder.Model())
}

func TestLocalEmbedder_EmbedBatch(t *testing.T) {
	embedder := NewLocalEmbedder(64)

	vecs, err := embedder.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	_, err = embedder.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
