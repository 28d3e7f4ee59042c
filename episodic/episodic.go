// Package episodic implements the Episodic Memory Store: a lower-priority,
// decaying store for events that did not meet the acceptance threshold.
// Entries are retrievable via semantic search but never traversed as graph
// edges.
package episodic

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/store"
)

// Config carries the decay constants.
type Config struct {
	// HalfLife drives the exponential decay: score(t) = importance * 2^(-age/HalfLife).
	HalfLife time.Duration

	// SurvivalFloor prunes entries whose decayed score falls below it.
	SurvivalFloor float64

	// Cap bounds the store; insertion beyond it evicts the lowest-scored entry.
	Cap int

	// SweepInterval is the cadence of the decay sweep. Not a hard real-time
	// guarantee.
	SweepInterval time.Duration
}

// DefaultConfig returns the documented defaults: 24h half-life, 0.05 floor,
// 1000 entry cap, 60s sweep.
func DefaultConfig() Config {
	return Config{
		HalfLife:      24 * time.Hour,
		SurvivalFloor: 0.05,
		Cap:           1000,
		SweepInterval: 60 * time.Second,
	}
}

// Entry is one episodic memory with its decay clock.
type Entry struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	NodeType   string    `json:"node_type"`
	Importance float64   `json:"importance"`
	User       string    `json:"user,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredEntry pairs an entry with its search similarity.
type ScoredEntry struct {
	*Entry
	Similarity float64 `json:"similarity"`
}

// Store holds episodic entries in memory with write-through persistence.
// Mutations are serialized; reads never observe partially inserted state.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*Entry

	st       *store.Store
	embedder ai.EmbeddingService
	cfg      Config
}

// New creates an episodic store. Call Load before use.
func New(st *store.Store, embedder ai.EmbeddingService, cfg Config) *Store {
	return &Store{
		entries:  make(map[int64]*Entry),
		st:       st,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Load rebuilds the in-memory entries from persistence. Embeddings stay in
// the database; search goes through the driver.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.st.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{})
	if err != nil {
		return errors.Wrap(err, "load episodic memories")
	}
	for _, m := range memories {
		user := ""
		if m.UserID != nil {
			user = *m.UserID
		}
		s.entries[m.ID] = &Entry{
			ID:         m.ID,
			Content:    m.Content,
			NodeType:   m.NodeType,
			Importance: m.Importance,
			User:       user,
			CreatedAt:  time.Unix(m.CreatedTs, 0),
		}
	}

	slog.Info("episodic: loaded", "entries", len(s.entries))
	return nil
}

// Record inserts a rejected event. When the store is at capacity the
// lowest-decayed-score entry is evicted first, so near-duplicate floods never
// grow the store unboundedly. Implements ego.EpisodicStore.
func (s *Store) Record(ctx context.Context, entry ego.EpisodicEntry) error {
	// The pipeline usually hands over the event embedding; embed here when it
	// could not. The embedder may block on a remote provider, so this runs
	// before the lock is taken. Best effort: an unembedded entry is still
	// searchable through the substring fallback.
	if entry.Embedding == nil {
		if vec, err := s.embedder.Embed(ctx, entry.Content); err == nil {
			entry.Embedding = vec
		} else {
			slog.Warn("episodic: embedding failed, entry stored without vector", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.entries) >= s.cfg.Cap {
		if err := s.evictLowestLocked(ctx); err != nil {
			return err
		}
	}

	var userID *string
	if entry.User != "" {
		userID = &entry.User
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	persisted, err := s.st.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		Content:    entry.Content,
		NodeType:   entry.NodeType,
		Importance: entry.Importance,
		UserID:     userID,
		CreatedTs:  createdAt.Unix(),
	})
	if err != nil {
		return errors.Wrap(err, "persist episodic memory")
	}

	stored := &Entry{
		ID:         persisted.ID,
		Content:    entry.Content,
		NodeType:   entry.NodeType,
		Importance: entry.Importance,
		User:       entry.User,
		CreatedAt:  createdAt,
	}

	if entry.Embedding != nil {
		now := time.Now().Unix()
		if _, err := s.st.UpsertEpisodicMemoryEmbedding(ctx, &store.EpisodicMemoryEmbedding{
			EpisodicMemoryID: persisted.ID,
			Model:            s.embedder.Model(),
			Embedding:        entry.Embedding,
			CreatedTs:        now,
			UpdatedTs:        now,
		}); err != nil {
			return errors.Wrap(err, "persist episodic embedding")
		}
	}

	s.entries[persisted.ID] = stored
	return nil
}

// Count returns the number of live entries. Implements ego.EpisodicStore.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// DecayedScore computes the survival score of an entry at the given time.
func (s *Store) DecayedScore(entry *Entry, now time.Time) float64 {
	age := now.Sub(entry.CreatedAt)
	if age <= 0 {
		return entry.Importance
	}
	return entry.Importance * math.Exp2(-age.Hours()/s.cfg.HalfLife.Hours())
}

// Search embeds the query and delegates ranking to the persistence driver:
// pgvector on postgres, application-layer cosine on sqlite. When the embedder
// fails the persistence layer's substring match serves as fallback.
func (s *Store) Search(ctx context.Context, query string, user string, limit int) ([]*ScoredEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return s.substringSearch(ctx, query, user, limit)
	}

	opts := &store.EpisodicVectorSearchOptions{
		Vector: queryVec,
		Model:  s.embedder.Model(),
		Limit:  limit,
	}
	if user != "" {
		opts.UserID = &user
	}
	matches, err := s.st.EpisodicVectorSearch(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "episodic vector search")
	}

	results := make([]*ScoredEntry, 0, len(matches))
	for _, m := range matches {
		u := ""
		if m.EpisodicMemory.UserID != nil {
			u = *m.EpisodicMemory.UserID
		}
		results = append(results, &ScoredEntry{
			Entry: &Entry{
				ID:         m.EpisodicMemory.ID,
				Content:    m.EpisodicMemory.Content,
				NodeType:   m.EpisodicMemory.NodeType,
				Importance: m.EpisodicMemory.Importance,
				User:       u,
				CreatedAt:  time.Unix(m.EpisodicMemory.CreatedTs, 0),
			},
			Similarity: float64(m.Score),
		})
	}
	return results, nil
}

func (s *Store) substringSearch(ctx context.Context, query, user string, limit int) ([]*ScoredEntry, error) {
	find := &store.FindEpisodicMemory{Query: &query, Limit: limit}
	if user != "" {
		find.UserID = &user
	}
	memories, err := s.st.ListEpisodicMemories(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "episodic substring search")
	}

	results := make([]*ScoredEntry, 0, len(memories))
	for _, m := range memories {
		u := ""
		if m.UserID != nil {
			u = *m.UserID
		}
		results = append(results, &ScoredEntry{Entry: &Entry{
			ID:         m.ID,
			Content:    m.Content,
			NodeType:   m.NodeType,
			Importance: m.Importance,
			User:       u,
			CreatedAt:  time.Unix(m.CreatedTs, 0),
		}})
	}
	return results, nil
}

// Sweep prunes entries whose decayed score fell below the survival floor.
// Returns the number pruned.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	pruned := 0
	for id, entry := range s.entries {
		if s.DecayedScore(entry, now) < s.cfg.SurvivalFloor {
			if err := s.deleteLocked(ctx, id); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	if pruned > 0 {
		slog.Debug("episodic: sweep pruned entries", "count", pruned)
	}
	return pruned, nil
}

// RunSweeper runs the decay sweep on the configured cadence until the context
// is canceled.
func (s *Store) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Warn("episodic: sweep failed", "error", err)
			}
		}
	}
}

func (s *Store) evictLowestLocked(ctx context.Context) error {
	now := time.Now()
	var victimID int64
	lowest := math.Inf(1)
	for id, entry := range s.entries {
		if score := s.DecayedScore(entry, now); score < lowest {
			lowest = score
			victimID = id
		}
	}
	if lowest == math.Inf(1) {
		return nil
	}
	return s.deleteLocked(ctx, victimID)
}

func (s *Store) deleteLocked(ctx context.Context, id int64) error {
	if err := s.st.DeleteEpisodicMemory(ctx, &store.DeleteEpisodicMemory{ID: &id}); err != nil {
		return errors.Wrap(err, "delete episodic memory")
	}
	delete(s.entries, id)
	return nil
}
