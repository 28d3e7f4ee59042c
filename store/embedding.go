package store

import (
	"github.com/pkg/errors"
)

// NodeEmbedding represents the vector embedding of a memory node's content.
type NodeEmbedding struct {
	ID        int64
	NodeID    string
	Model     string
	Embedding []float32
	CreatedTs int64
}

// FindNodeEmbedding is the find condition for node embeddings.
type FindNodeEmbedding struct {
	NodeID *string
	Model  *string
}

// EpisodicMemoryEmbedding represents the vector embedding of an episodic memory.
type EpisodicMemoryEmbedding struct {
	ID               int64
	EpisodicMemoryID int64
	Model            string
	Embedding        []float32
	CreatedTs        int64
	UpdatedTs        int64
}

// EpisodicMemoryWithScore represents a vector search result with similarity score.
type EpisodicMemoryWithScore struct {
	EpisodicMemory *EpisodicMemory
	Score          float32 // cosine similarity, higher is more similar
}

// EpisodicVectorSearchOptions represents the options for episodic memory vector search.
type EpisodicVectorSearchOptions struct {
	Vector       []float32
	Model        string
	Limit        int
	UserID       *string // optional: restrict to one user's entries
	CreatedAfter int64   // optional: only search entries created after this timestamp
}

// Validate validates the EpisodicVectorSearchOptions.
func (o *EpisodicVectorSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.Errorf("vector cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}
