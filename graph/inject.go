package graph

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/store"
)

// InjectTrauma seeds a high-importance global threat memory and shifts the
// personality toward anxiety: Neuroticism 0.9, Agreeableness 0.1.
// Administrative operation, bypasses the triage pipeline.
func (g *Graph) InjectTrauma(ctx context.Context, description string) (string, ego.PersonalityVector, error) {
	return g.inject(ctx, description, ego.NodeTypeThreat, 0.95, func(p *ego.PersonalityVector) {
		p.Neuroticism = 0.9
		p.Agreeableness = 0.1
	})
}

// InjectKindness seeds a high-importance global joy memory and shifts the
// personality toward warmth: Agreeableness +0.2, Neuroticism -0.1, clamped.
func (g *Graph) InjectKindness(ctx context.Context, description string) (string, ego.PersonalityVector, error) {
	return g.inject(ctx, description, ego.NodeTypeJoy, 0.9, func(p *ego.PersonalityVector) {
		p.Agreeableness = ego.Clamp01(p.Agreeableness + 0.2)
		p.Neuroticism = ego.Clamp01(p.Neuroticism - 0.1)
	})
}

func (g *Graph) inject(ctx context.Context, description, nodeType string, importance float64, shift func(*ego.PersonalityVector)) (string, ego.PersonalityVector, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	node := &Node{
		ID:         shortuuid.New(),
		Content:    description,
		NodeType:   nodeType,
		Importance: importance,
		CreatedAt:  now,
	}
	if err := g.createNodeLocked(ctx, node); err != nil {
		return "", g.personality, err
	}
	if err := g.upsertEdgeLocked(ctx, SelfNodeID, node.ID, EdgeTypeGlobalMemory, importance, now); err != nil {
		return "", g.personality, err
	}

	updated := g.personality
	shift(&updated)
	for _, trait := range ego.TraitNames {
		value, _ := updated.Get(trait)
		current, _ := g.personality.Get(trait)
		if value == current {
			continue
		}
		if _, err := g.store.UpsertPersonalityTrait(ctx, &store.PersonalityTrait{
			Trait:     trait,
			Value:     value,
			UpdatedTs: now.Unix(),
		}); err != nil {
			return "", g.personality, errors.Wrap(err, "persist personality trait")
		}
	}
	g.personality = updated

	return node.ID, g.personality, nil
}
