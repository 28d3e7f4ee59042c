package ego

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ai/cache"
)

// MemoryRef is a lightweight view of a stored memory used for similarity
// scoring and LLM prompt context.
type MemoryRef struct {
	ID         string
	Content    string
	NodeType   string
	Importance float64
	Embedding  []float32 // nil when not yet embedded
}

// ScoredMemory pairs a memory with its similarity to the current event.
type ScoredMemory struct {
	MemoryRef
	Similarity float64
}

// MemorySource supplies candidate memories for similarity comparison.
type MemorySource interface {
	// ImportantMemories returns memories with importance above the floor,
	// most recent first, at most limit entries.
	ImportantMemories(floor float64, limit int) []MemoryRef
}

// SemanticResult is the output of one semantic evaluation pass.
type SemanticResult struct {
	Score     float64
	Novel     bool           // no strong similarity to any prior memory
	Relevant  []ScoredMemory // best matches, most similar first
	Embedding []float32      // event embedding, reused by commit; nil on embed failure
}

// SemanticScorer compares the event against embeddings of existing
// high-importance memories. It tolerates an empty store and embedder failure
// by returning the configured baseline.
type SemanticScorer struct {
	embedder ai.EmbeddingService
	source   MemorySource
	cache    *cache.LRUCache[string, []float32]
	cfg      *Config
}

// NewSemanticScorer creates a semantic scorer over the given memory source.
func NewSemanticScorer(embedder ai.EmbeddingService, source MemorySource, cfg *Config) *SemanticScorer {
	return &SemanticScorer{
		embedder: embedder,
		source:   source,
		cache:    cache.NewLRUCache[string, []float32](cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL),
		cfg:      cfg,
	}
}

// Evaluate embeds the event description and scores it against important
// memories. The score follows "this resembles something that mattered
// before": the best similarity, weighted by the matched memory's importance,
// boosts the baseline toward 1.
func (s *SemanticScorer) Evaluate(ctx context.Context, event *EventFrame) *SemanticResult {
	result := &SemanticResult{
		Score: s.cfg.SemanticBaseline,
		Novel: true,
	}

	query := event.Description
	if event.SceneContext != "" {
		query += " " + event.SceneContext
	}

	eventVec, err := s.embed(ctx, query)
	if err != nil {
		slog.Warn("semantic: event embedding failed, using baseline", "error", err)
		return result
	}
	result.Embedding = eventVec

	memories := s.source.ImportantMemories(s.cfg.ImportanceFloor, s.cfg.SemanticTopK)
	if len(memories) == 0 {
		return result
	}

	var bestWeighted float64
	for _, mem := range memories {
		vec := mem.Embedding
		if vec == nil {
			vec, err = s.embed(ctx, mem.Content)
			if err != nil {
				continue
			}
		}
		similarity := float64(ai.CosineSimilarity(eventVec, vec))
		if similarity <= 0 {
			continue
		}
		result.Relevant = append(result.Relevant, ScoredMemory{MemoryRef: mem, Similarity: similarity})

		if similarity >= s.cfg.NoveltySimilarity {
			result.Novel = false
		}
		if weighted := similarity * mem.Importance; weighted > bestWeighted {
			bestWeighted = weighted
		}
	}

	sort.Slice(result.Relevant, func(i, j int) bool {
		return result.Relevant[i].Similarity > result.Relevant[j].Similarity
	})

	if bestWeighted > 0 {
		result.Score = Clamp01(min(0.95, s.cfg.SemanticBaseline+bestWeighted*0.5))
	}
	return result
}

// Embed exposes the cached embedder for commit-time node embedding.
func (s *SemanticScorer) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text)
}

func (s *SemanticScorer) embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, vec)
	return vec, nil
}
