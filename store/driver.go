package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for accessing the underlying database.
type Driver interface {
	GetDB() *sql.DB
	Migrate(ctx context.Context) error
	IsInitialized(ctx context.Context) (bool, error)
	Close() error

	// Memory nodes and edges
	CreateMemoryNode(ctx context.Context, create *MemoryNode) (*MemoryNode, error)
	ListMemoryNodes(ctx context.Context, find *FindMemoryNode) ([]*MemoryNode, error)
	CountMemoryNodes(ctx context.Context) (int, error)
	UpsertEdge(ctx context.Context, upsert *Edge) (*Edge, error)
	ListEdges(ctx context.Context, find *FindEdge) ([]*Edge, error)

	// Node embeddings
	UpsertNodeEmbedding(ctx context.Context, upsert *NodeEmbedding) (*NodeEmbedding, error)
	ListNodeEmbeddings(ctx context.Context, find *FindNodeEmbedding) ([]*NodeEmbedding, error)
	FindMemoryNodesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*MemoryNode, error)

	// Episodic memories
	CreateEpisodicMemory(ctx context.Context, create *EpisodicMemory) (*EpisodicMemory, error)
	ListEpisodicMemories(ctx context.Context, find *FindEpisodicMemory) ([]*EpisodicMemory, error)
	DeleteEpisodicMemory(ctx context.Context, delete *DeleteEpisodicMemory) error
	UpsertEpisodicMemoryEmbedding(ctx context.Context, upsert *EpisodicMemoryEmbedding) (*EpisodicMemoryEmbedding, error)
	EpisodicVectorSearch(ctx context.Context, opts *EpisodicVectorSearchOptions) ([]*EpisodicMemoryWithScore, error)

	// Personality vector
	UpsertPersonalityTrait(ctx context.Context, upsert *PersonalityTrait) (*PersonalityTrait, error)
	ListPersonalityTraits(ctx context.Context) ([]*PersonalityTrait, error)
}
