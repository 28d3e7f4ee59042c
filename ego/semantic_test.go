package ego

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edenrobotics/egograph/ai"
)

// listSource serves a fixed memory slice.
type listSource struct {
	memories []MemoryRef
}

func (s *listSource) ImportantMemories(floor float64, limit int) []MemoryRef {
	out := []MemoryRef{}
	for _, m := range s.memories {
		if m.Importance > floor {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

// failingEmbedder always errors.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder down")
}

func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Model() string   { return "failing" }

func TestSemanticScorer_EmptyStore(t *testing.T) {
	scorer := NewSemanticScorer(ai.NewLocalEmbedder(64), &listSource{}, DefaultConfig())

	result := scorer.Evaluate(context.Background(), &EventFrame{Description: "a red ball"})
	assert.InDelta(t, 0.5, result.Score, 1e-9)
	assert.True(t, result.Novel)
	assert.Empty(t, result.Relevant)
	assert.NotNil(t, result.Embedding, "embedding should be reusable downstream")
}

func TestSemanticScorer_ResemblanceBoostsScore(t *testing.T) {
	embedder := ai.NewLocalEmbedder(64)
	content := "the robot finished assembling the chassis"
	vec, err := embedder.Embed(context.Background(), content)
	require.NoError(t, err)

	source := &listSource{memories: []MemoryRef{
		{ID: "m1", Content: content, NodeType: NodeTypeAchievement, Importance: 0.8, Embedding: vec},
	}}
	scorer := NewSemanticScorer(embedder, source, DefaultConfig())

	// Identical text embeds identically, so similarity is 1 and the score is
	// baseline + importance * 0.5.
	result := scorer.Evaluate(context.Background(), &EventFrame{Description: content})
	assert.InDelta(t, 0.9, result.Score, 1e-6)
	assert.False(t, result.Novel)
	require.Len(t, result.Relevant, 1)
	assert.Equal(t, "m1", result.Relevant[0].ID)
}

func TestSemanticScorer_ScoreCapped(t *testing.T) {
	embedder := ai.NewLocalEmbedder(64)
	content := "a critical discovery"
	vec, err := embedder.Embed(context.Background(), content)
	require.NoError(t, err)

	source := &listSource{memories: []MemoryRef{
		{ID: "m1", Content: content, Importance: 1.0, Embedding: vec},
	}}
	scorer := NewSemanticScorer(embedder, source, DefaultConfig())

	result := scorer.Evaluate(context.Background(), &EventFrame{Description: content})
	assert.InDelta(t, 0.95, result.Score, 1e-6)
}

func TestSemanticScorer_EmbedderFailure(t *testing.T) {
	source := &listSource{memories: []MemoryRef{{ID: "m1", Content: "anything", Importance: 0.9}}}
	scorer := NewSemanticScorer(failingEmbedder{}, source, DefaultConfig())

	result := scorer.Evaluate(context.Background(), &EventFrame{Description: "a red ball"})
	assert.InDelta(t, 0.5, result.Score, 1e-9)
	assert.True(t, result.Novel)
	assert.Nil(t, result.Embedding)
}

func TestSemanticScorer_EmbeddingCache(t *testing.T) {
	scorer := NewSemanticScorer(ai.NewLocalEmbedder(64), &listSource{}, DefaultConfig())

	first, err := scorer.Embed(context.Background(), "A Red Ball")
	require.NoError(t, err)
	second, err := scorer.Embed(context.Background(), "  a red ball ")
	require.NoError(t, err)
	assert.Equal(t, first, second, "cache key is case and whitespace insensitive")
}
