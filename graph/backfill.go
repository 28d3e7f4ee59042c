package graph

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/store"
)

// Backfiller embeds persisted memory nodes that lack a vector for the
// configured model, so reloaded or injected nodes become searchable without
// blocking their commit path.
type Backfiller struct {
	graph    *Graph
	store    *store.Store
	embedder ai.EmbeddingService
	interval time.Duration
	batch    int
}

// NewBackfiller creates a backfill worker. interval defaults to one minute.
func NewBackfiller(g *Graph, st *store.Store, embedder ai.EmbeddingService, interval time.Duration) *Backfiller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Backfiller{
		graph:    g,
		store:    st,
		embedder: embedder,
		interval: interval,
		batch:    20,
	}
}

// Run sweeps until the context is canceled.
func (b *Backfiller) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.sweep(ctx); err != nil {
				slog.Warn("backfill: sweep failed", "error", err)
			}
		}
	}
}

func (b *Backfiller) sweep(ctx context.Context) error {
	model := b.embedder.Model()
	nodes, err := b.store.FindMemoryNodesWithoutEmbedding(ctx, model, b.batch)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, node := range nodes {
		node := node
		if node.ID == SelfNodeID || node.NodeType == NodeTypeUser {
			continue
		}
		eg.Go(func() error {
			vec, err := b.embedder.Embed(egCtx, node.Content)
			if err != nil {
				return err
			}
			if _, err := b.store.UpsertNodeEmbedding(egCtx, &store.NodeEmbedding{
				NodeID:    node.ID,
				Model:     model,
				Embedding: vec,
				CreatedTs: time.Now().Unix(),
			}); err != nil {
				return err
			}
			b.graph.SetEmbedding(node.ID, vec)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	slog.Debug("backfill: embedded nodes", "count", len(nodes), "model", model)
	return nil
}
