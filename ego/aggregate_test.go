package ego

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_Aggregate(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	neutral := DefaultPersonality()
	event := &EventFrame{Description: "a plain observation"}

	t.Run("all three signals", func(t *testing.T) {
		llm := 0.9
		base, modulator, final := agg.Aggregate(Signals{Heuristic: 0.6, Semantic: 0.5, LLM: &llm}, event, NodeTypeMemory, neutral)
		assert.InDelta(t, 0.6*0.3+0.5*0.3+0.9*0.4, base, 1e-9)
		assert.InDelta(t, 1.0, modulator, 1e-9)
		assert.InDelta(t, base, final, 1e-9)
	})

	t.Run("missing llm renormalizes weights", func(t *testing.T) {
		base, _, _ := agg.Aggregate(Signals{Heuristic: 0.75, Semantic: 0.5}, event, NodeTypeMemory, neutral)
		// 0.3/0.3 renormalize to an even split.
		assert.InDelta(t, (0.75+0.5)/2, base, 1e-9)
	})

	t.Run("final clamped to one", func(t *testing.T) {
		excited := neutral
		excited.Conscientiousness = 1.0
		llm := 1.0
		_, _, final := agg.Aggregate(Signals{Heuristic: 1.0, Semantic: 1.0, LLM: &llm}, event, NodeTypeAchievement, excited)
		assert.Equal(t, 1.0, final)
	})
}

func TestAggregator_NeutralPersonalityIsIdentity(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	neutral := DefaultPersonality()
	social := &EventFrame{Description: "greeting", UserID: "ian"}

	for _, nodeType := range []string{
		NodeTypeMemory, NodeTypeThreat, NodeTypeTrauma, NodeTypeJoy,
		NodeTypeAchievement, NodeTypeInteraction, NodeTypeRoutine, NodeTypeCasual,
	} {
		_, modulator, _ := agg.Aggregate(Signals{Heuristic: 0.5, Semantic: 0.5, Novel: true}, social, nodeType, neutral)
		assert.InDeltaf(t, 1.0, modulator, 1e-9, "node type %s", nodeType)
	}
}

func TestAggregator_Modulation(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	event := &EventFrame{Description: "observation"}
	signals := Signals{Heuristic: 0.5, Semantic: 0.5}

	t.Run("neuroticism amplifies threats monotonically", func(t *testing.T) {
		previous := -1.0
		for _, n := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
			p := DefaultPersonality()
			p.Neuroticism = n
			_, _, final := agg.Aggregate(signals, event, NodeTypeThreat, p)
			require.Greater(t, final, previous, "Neuroticism %.2f", n)
			previous = final
		}
	})

	t.Run("neuroticism mutes positive events", func(t *testing.T) {
		p := DefaultPersonality()
		p.Neuroticism = 1.0
		_, modulator, _ := agg.Aggregate(signals, event, NodeTypeJoy, p)
		assert.Less(t, modulator, 1.0)
	})

	t.Run("conscientiousness boosts achievements", func(t *testing.T) {
		p := DefaultPersonality()
		p.Conscientiousness = 1.0
		_, modulator, _ := agg.Aggregate(signals, event, NodeTypeAchievement, p)
		assert.InDelta(t, 1.0+0.4*0.5, modulator, 1e-9)
	})

	t.Run("openness rewards novelty except routine", func(t *testing.T) {
		p := DefaultPersonality()
		p.Openness = 1.0
		novel := Signals{Heuristic: 0.5, Semantic: 0.5, Novel: true}

		_, modulator, _ := agg.Aggregate(novel, event, NodeTypeMemory, p)
		assert.Greater(t, modulator, 1.0)

		_, modulator, _ = agg.Aggregate(novel, event, NodeTypeRoutine, p)
		assert.InDelta(t, 1.0, modulator, 1e-9)
	})

	t.Run("extroversion boosts social events", func(t *testing.T) {
		p := DefaultPersonality()
		p.Extroversion = 1.0
		social := &EventFrame{Description: "greeting", UserName: "Ian"}
		_, modulator, _ := agg.Aggregate(signals, social, NodeTypeInteraction, p)
		assert.InDelta(t, 1.0+0.3*0.5, modulator, 1e-9)
	})

	t.Run("agreeableness raises positive social events", func(t *testing.T) {
		social := &EventFrame{Description: "shared a laugh over dinner", UserID: "ian"}

		warm := DefaultPersonality()
		warm.Agreeableness = 0.95
		_, _, baseline := agg.Aggregate(signals, social, NodeTypeJoy, DefaultPersonality())
		_, _, raised := agg.Aggregate(signals, social, NodeTypeJoy, warm)

		assert.Greater(t, raised, baseline)
		assert.InDelta(t, baseline*(1.0+0.4*0.45), raised, 1e-9)
	})

	t.Run("agreeableness dampens threat weight", func(t *testing.T) {
		p := DefaultPersonality()
		p.Agreeableness = 1.0
		_, modulator, _ := agg.Aggregate(signals, event, NodeTypeThreat, p)
		assert.InDelta(t, 1.0-0.2*0.5, modulator, 1e-9)
	})
}

func TestResolveNodeType(t *testing.T) {
	heuristic := NewHeuristicScorer(DefaultConfig())
	event := &EventFrame{Description: "a typical day"}

	t.Run("llm classification wins when recognized", func(t *testing.T) {
		assessment := &Assessment{NodeType: NodeTypeJoy}
		assert.Equal(t, NodeTypeJoy, ResolveNodeType(assessment, heuristic, event))
	})

	t.Run("unknown llm classification falls back to keywords", func(t *testing.T) {
		assessment := &Assessment{NodeType: "vibes"}
		assert.Equal(t, NodeTypeRoutine, ResolveNodeType(assessment, heuristic, event))
	})

	t.Run("nil assessment falls back to keywords", func(t *testing.T) {
		assert.Equal(t, NodeTypeRoutine, ResolveNodeType(nil, heuristic, event))
	})
}
