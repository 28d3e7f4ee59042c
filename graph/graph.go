// Package graph implements the Ego Graph Store: the distinguished SELF node,
// permanent memory nodes, weighted typed edges, and the personality vector
// living on SELF. All mutation is serialized behind a single writer lock;
// reads take shared locks and never observe a partially committed mutation.
package graph

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/store"
)

// SelfNodeID is the identifier of the distinguished SELF vertex.
const SelfNodeID = "SELF"

// UserNodePrefix prefixes per-user subgraph anchor nodes.
const UserNodePrefix = "USER_"

// Node types owned by the graph itself (not the event pipeline).
const (
	NodeTypeSelf = "self"
	NodeTypeUser = "user"
)

// Edge types.
const (
	EdgeTypeGlobalMemory = "global_memory"
	EdgeTypeUserLink     = "user_link"
	EdgeTypeUserMemory   = "user_memory"
	EdgeTypeAssociative  = "associative"
)

// Node is an in-memory graph vertex.
type Node struct {
	ID         string
	Content    string
	NodeType   string
	Importance float64
	User       string // empty means global
	CreatedAt  time.Time
}

// Edge is a directed typed relation. Weight is the base strength; the
// effective weight reported by Snapshot decays with age and is re-weighted by
// the current personality.
type Edge struct {
	Source    string
	Target    string
	EdgeType  string
	Weight    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type edgeKey struct {
	source, target, edgeType string
}

// Config carries the graph's tuning constants.
type Config struct {
	// EdgeHalfLife is the exponential decay half-life applied lazily to edge
	// weights at read time.
	EdgeHalfLife time.Duration

	// ReinforceIncrement is added to an edge's base weight when a commit
	// reinforces an existing relation.
	ReinforceIncrement float64

	// AssociativeSimilarity is the minimum cosine similarity for a commit to
	// link the new node to an existing one.
	AssociativeSimilarity float64

	// AssociativeEdgeLimit caps associative links per commit.
	AssociativeEdgeLimit int
}

// DefaultConfig returns the documented defaults: a 168h (7 day) edge
// half-life, 0.1 reinforcement increment, 0.75 associative floor.
func DefaultConfig() Config {
	return Config{
		EdgeHalfLife:          168 * time.Hour,
		ReinforceIncrement:    0.1,
		AssociativeSimilarity: 0.75,
		AssociativeEdgeLimit:  3,
	}
}

// Graph is the Ego Graph Store. The in-memory maps are authoritative for
// reads; every mutation is written through to the backing store first.
type Graph struct {
	mu          sync.RWMutex
	nodes       map[string]*Node
	edges       map[edgeKey]*Edge
	embeddings  map[string][]float32
	personality ego.PersonalityVector

	store *store.Store
	model string // embedding model tag for persisted vectors
	cfg   Config
}

// New creates an empty graph over the backing store. Call Load before use.
func New(st *store.Store, embeddingModel string, cfg Config) *Graph {
	return &Graph{
		nodes:       make(map[string]*Node),
		edges:       make(map[edgeKey]*Edge),
		embeddings:  make(map[string][]float32),
		personality: ego.DefaultPersonality(),
		store:       st,
		model:       embeddingModel,
		cfg:         cfg,
	}
}

// Load rebuilds the in-memory graph from the backing store and guarantees the
// SELF node and all five personality traits exist.
func (g *Graph) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes, err := g.store.ListMemoryNodes(ctx, &store.FindMemoryNode{})
	if err != nil {
		return errors.Wrap(err, "load memory nodes")
	}
	for _, n := range nodes {
		user := ""
		if n.UserID != nil {
			user = *n.UserID
		}
		g.nodes[n.ID] = &Node{
			ID:         n.ID,
			Content:    n.Content,
			NodeType:   n.NodeType,
			Importance: n.Importance,
			User:       user,
			CreatedAt:  time.Unix(n.CreatedTs, 0),
		}
	}

	edges, err := g.store.ListEdges(ctx, &store.FindEdge{})
	if err != nil {
		return errors.Wrap(err, "load edges")
	}
	for _, e := range edges {
		g.edges[edgeKey{e.Source, e.Target, e.EdgeType}] = &Edge{
			Source:    e.Source,
			Target:    e.Target,
			EdgeType:  e.EdgeType,
			Weight:    e.Weight,
			CreatedAt: time.Unix(e.CreatedTs, 0),
			UpdatedAt: time.Unix(e.UpdatedTs, 0),
		}
	}

	embeddings, err := g.store.ListNodeEmbeddings(ctx, &store.FindNodeEmbedding{Model: &g.model})
	if err != nil {
		return errors.Wrap(err, "load node embeddings")
	}
	for _, emb := range embeddings {
		g.embeddings[emb.NodeID] = emb.Embedding
	}

	traits, err := g.store.ListPersonalityTraits(ctx)
	if err != nil {
		return errors.Wrap(err, "load personality")
	}
	for _, t := range traits {
		if err := g.personality.Set(t.Trait, t.Value); err != nil {
			slog.Warn("graph: ignoring unknown persisted trait", "trait", t.Trait)
		}
	}

	if _, ok := g.nodes[SelfNodeID]; !ok {
		if err := g.createNodeLocked(ctx, &Node{
			ID:         SelfNodeID,
			NodeType:   NodeTypeSelf,
			Importance: 1.0,
			CreatedAt:  time.Now(),
		}); err != nil {
			return errors.Wrap(err, "create SELF node")
		}
	}

	slog.Info("graph: loaded",
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"embeddings", len(g.embeddings),
	)
	return nil
}

// Commit atomically creates a memory node for an accepted event, anchors it
// to SELF (directly, and through the owning user's subgraph when present),
// links it associatively to similar existing nodes, and returns its
// identifier.
func (g *Graph) Commit(ctx context.Context, req ego.CommitRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	node := &Node{
		ID:         shortuuid.New(),
		Content:    req.Content,
		NodeType:   req.NodeType,
		Importance: req.Importance,
		User:       req.Event.User(),
		CreatedAt:  req.Event.Timestamp,
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}

	if err := g.createNodeLocked(ctx, node); err != nil {
		return "", err
	}

	if req.Embedding != nil {
		if _, err := g.store.UpsertNodeEmbedding(ctx, &store.NodeEmbedding{
			NodeID:    node.ID,
			Model:     g.model,
			Embedding: req.Embedding,
			CreatedTs: now.Unix(),
		}); err != nil {
			return "", errors.Wrap(err, "persist node embedding")
		}
	}

	// Every committed node gets a direct SELF anchor; weight carries the
	// importance at commit time.
	if err := g.upsertEdgeLocked(ctx, SelfNodeID, node.ID, EdgeTypeGlobalMemory, req.Importance, now); err != nil {
		return "", err
	}

	if node.User != "" {
		userNodeID := UserNodePrefix + node.User
		if _, ok := g.nodes[userNodeID]; !ok {
			if err := g.createNodeLocked(ctx, &Node{
				ID:         userNodeID,
				NodeType:   NodeTypeUser,
				Importance: 0.5,
				User:       node.User,
				CreatedAt:  now,
			}); err != nil {
				return "", err
			}
			if err := g.upsertEdgeLocked(ctx, SelfNodeID, userNodeID, EdgeTypeUserLink, 0.5, now); err != nil {
				return "", err
			}
		}
		if err := g.upsertEdgeLocked(ctx, userNodeID, node.ID, EdgeTypeUserMemory, req.Importance, now); err != nil {
			return "", err
		}
	}

	if req.Embedding != nil {
		if err := g.linkAssociativeLocked(ctx, node.ID, req.Embedding, now); err != nil {
			return "", err
		}
		g.embeddings[node.ID] = req.Embedding
	}

	slog.Info("graph: memory committed",
		"node_id", node.ID,
		"node_type", node.NodeType,
		"importance", node.Importance,
		"user", node.User,
	)
	return node.ID, nil
}

// linkAssociativeLocked creates node-to-node edges toward the most similar
// existing memories, representing associative recall.
func (g *Graph) linkAssociativeLocked(ctx context.Context, nodeID string, embedding []float32, now time.Time) error {
	type match struct {
		id         string
		similarity float64
	}
	matches := []match{}
	for otherID, otherVec := range g.embeddings {
		if otherID == nodeID {
			continue
		}
		similarity := float64(ai.CosineSimilarity(embedding, otherVec))
		if similarity >= g.cfg.AssociativeSimilarity {
			matches = append(matches, match{id: otherID, similarity: similarity})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].similarity > matches[j].similarity })

	for i, m := range matches {
		if i >= g.cfg.AssociativeEdgeLimit {
			break
		}
		if err := g.upsertEdgeLocked(ctx, nodeID, m.id, EdgeTypeAssociative, m.similarity, now); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) createNodeLocked(ctx context.Context, node *Node) error {
	var userID *string
	if node.User != "" {
		userID = &node.User
	}
	if _, err := g.store.CreateMemoryNode(ctx, &store.MemoryNode{
		ID:         node.ID,
		Content:    node.Content,
		NodeType:   node.NodeType,
		Importance: node.Importance,
		UserID:     userID,
		CreatedTs:  node.CreatedAt.Unix(),
	}); err != nil {
		return errors.Wrap(err, "persist memory node")
	}
	g.nodes[node.ID] = node
	return nil
}

// upsertEdgeLocked creates the edge or reinforces an existing one by the
// configured increment, clamped to [0,1].
func (g *Graph) upsertEdgeLocked(ctx context.Context, source, target, edgeType string, weight float64, now time.Time) error {
	key := edgeKey{source, target, edgeType}
	if existing, ok := g.edges[key]; ok {
		weight = ego.Clamp01(existing.Weight + g.cfg.ReinforceIncrement)
	} else {
		weight = ego.Clamp01(weight)
	}

	edge := &Edge{
		Source:    source,
		Target:    target,
		EdgeType:  edgeType,
		Weight:    weight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	persisted, err := g.store.UpsertEdge(ctx, &store.Edge{
		Source:    source,
		Target:    target,
		EdgeType:  edgeType,
		Weight:    weight,
		CreatedTs: now.Unix(),
		UpdatedTs: now.Unix(),
	})
	if err != nil {
		return errors.Wrap(err, "persist edge")
	}
	edge.CreatedAt = time.Unix(persisted.CreatedTs, 0)
	g.edges[key] = edge
	return nil
}

// Personality returns the current trait snapshot.
func (g *Graph) Personality() ego.PersonalityVector {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.personality
}

// SetTrait validates and clamps the new value, updates the vector in place,
// and persists it. Setting a trait to its current value is a no-op observable
// state change.
func (g *Graph) SetTrait(ctx context.Context, trait string, value float64) (ego.PersonalityVector, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	updated := g.personality
	if err := updated.Set(trait, value); err != nil {
		return g.personality, err
	}

	if _, err := g.store.UpsertPersonalityTrait(ctx, &store.PersonalityTrait{
		Trait:     trait,
		Value:     ego.Clamp01(value),
		UpdatedTs: time.Now().Unix(),
	}); err != nil {
		return g.personality, errors.Wrap(err, "persist personality trait")
	}

	g.personality = updated
	slog.Info("graph: personality updated", "trait", trait, "value", ego.Clamp01(value))
	return g.personality, nil
}

// MemoryCount returns the number of memory nodes, excluding the SELF and
// user anchor vertices.
func (g *Graph) MemoryCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.memoryCountLocked()
}

func (g *Graph) memoryCountLocked() int {
	count := 0
	for _, n := range g.nodes {
		if n.NodeType != NodeTypeSelf && n.NodeType != NodeTypeUser {
			count++
		}
	}
	return count
}

// ImportantMemories returns memory nodes with importance above the floor,
// most recent first, at most limit entries. Implements ego.MemorySource.
func (g *Graph) ImportantMemories(floor float64, limit int) []ego.MemoryRef {
	g.mu.RLock()
	defer g.mu.RUnlock()

	refs := []ego.MemoryRef{}
	for _, n := range g.nodes {
		if n.NodeType == NodeTypeSelf || n.NodeType == NodeTypeUser {
			continue
		}
		if n.Importance > floor {
			refs = append(refs, ego.MemoryRef{
				ID:         n.ID,
				Content:    n.Content,
				NodeType:   n.NodeType,
				Importance: n.Importance,
				Embedding:  g.embeddings[n.ID],
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return g.nodes[refs[i].ID].CreatedAt.After(g.nodes[refs[j].ID].CreatedAt)
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs
}

// UserMemories returns the memory nodes owned by the given user, most recent
// first.
func (g *Graph) UserMemories(user string) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	list := []*Node{}
	for _, n := range g.nodes {
		if n.User == user && n.NodeType != NodeTypeUser {
			copied := *n
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// SetEmbedding records a backfilled embedding for an existing node.
func (g *Graph) SetEmbedding(nodeID string, embedding []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[nodeID]; ok {
		g.embeddings[nodeID] = embedding
	}
}

// decayedWeight applies the exponential half-life to an edge's base weight
// and re-weights SELF-adjacent edges by the current personality: Neuroticism
// amplifies threat-class targets, Agreeableness amplifies joy targets.
func (g *Graph) decayedWeight(e *Edge, now time.Time) float64 {
	weight := e.Weight
	if g.cfg.EdgeHalfLife > 0 {
		age := now.Sub(e.UpdatedAt)
		if age > 0 {
			weight *= math.Exp2(-age.Hours() / g.cfg.EdgeHalfLife.Hours())
		}
	}

	if e.Source == SelfNodeID {
		if target, ok := g.nodes[e.Target]; ok {
			switch {
			case ego.IsNegativeType(target.NodeType):
				weight *= 1.0 + g.personality.Neuroticism
			case target.NodeType == ego.NodeTypeJoy:
				weight *= 1.0 + g.personality.Agreeableness
			}
		}
	}
	return ego.Clamp01(weight)
}
