// Package store provides database access to all persisted objects.
package store

import (
	"context"

	"github.com/edenrobotics/egograph/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateMemoryNode(ctx context.Context, create *MemoryNode) (*MemoryNode, error) {
	return s.driver.CreateMemoryNode(ctx, create)
}

func (s *Store) ListMemoryNodes(ctx context.Context, find *FindMemoryNode) ([]*MemoryNode, error) {
	return s.driver.ListMemoryNodes(ctx, find)
}

func (s *Store) CountMemoryNodes(ctx context.Context) (int, error) {
	return s.driver.CountMemoryNodes(ctx)
}

func (s *Store) UpsertEdge(ctx context.Context, upsert *Edge) (*Edge, error) {
	return s.driver.UpsertEdge(ctx, upsert)
}

func (s *Store) ListEdges(ctx context.Context, find *FindEdge) ([]*Edge, error) {
	return s.driver.ListEdges(ctx, find)
}

func (s *Store) UpsertNodeEmbedding(ctx context.Context, upsert *NodeEmbedding) (*NodeEmbedding, error) {
	return s.driver.UpsertNodeEmbedding(ctx, upsert)
}

func (s *Store) ListNodeEmbeddings(ctx context.Context, find *FindNodeEmbedding) ([]*NodeEmbedding, error) {
	return s.driver.ListNodeEmbeddings(ctx, find)
}

// FindMemoryNodesWithoutEmbedding finds memory nodes that don't have embeddings
// for the specified model. Used by the embedding backfill worker.
func (s *Store) FindMemoryNodesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*MemoryNode, error) {
	return s.driver.FindMemoryNodesWithoutEmbedding(ctx, model, limit)
}

func (s *Store) CreateEpisodicMemory(ctx context.Context, create *EpisodicMemory) (*EpisodicMemory, error) {
	return s.driver.CreateEpisodicMemory(ctx, create)
}

func (s *Store) ListEpisodicMemories(ctx context.Context, find *FindEpisodicMemory) ([]*EpisodicMemory, error) {
	return s.driver.ListEpisodicMemories(ctx, find)
}

func (s *Store) DeleteEpisodicMemory(ctx context.Context, delete *DeleteEpisodicMemory) error {
	return s.driver.DeleteEpisodicMemory(ctx, delete)
}

func (s *Store) UpsertEpisodicMemoryEmbedding(ctx context.Context, upsert *EpisodicMemoryEmbedding) (*EpisodicMemoryEmbedding, error) {
	return s.driver.UpsertEpisodicMemoryEmbedding(ctx, upsert)
}

// EpisodicVectorSearch performs vector similarity search on episodic memories.
func (s *Store) EpisodicVectorSearch(ctx context.Context, opts *EpisodicVectorSearchOptions) ([]*EpisodicMemoryWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.EpisodicVectorSearch(ctx, opts)
}

func (s *Store) UpsertPersonalityTrait(ctx context.Context, upsert *PersonalityTrait) (*PersonalityTrait, error) {
	return s.driver.UpsertPersonalityTrait(ctx, upsert)
}

func (s *Store) ListPersonalityTraits(ctx context.Context) ([]*PersonalityTrait, error) {
	return s.driver.ListPersonalityTraits(ctx)
}
