package ego

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edenrobotics/egograph/ai"
)

// stubLLM returns a canned reply, an error, or blocks until the context ends.
type stubLLM struct {
	reply string
	err   error
	block bool
}

func (s *stubLLM) Chat(ctx context.Context, _ []ai.Message) (string, *ai.LLMCallStats, error) {
	if s.block {
		<-ctx.Done()
		return "", nil, ctx.Err()
	}
	return s.reply, nil, s.err
}

func (s *stubLLM) Warmup(context.Context) {}

func testEvent() *EventFrame {
	e := &EventFrame{Description: "Ian finished building the robot"}
	e.Normalize()
	return e
}

func TestAnalyzer_Analyze(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("structured reply", func(t *testing.T) {
		llm := &stubLLM{reply: `Here is my judgement:
{"importance": 0.85, "reasoning": "a major milestone", "node_type": "achievement", "confidence": 0.9, "emotional_impact": "pride", "key_insights": ["robot works"]}`}
		analyzer := NewAnalyzer(llm, cfg)

		assessment, err := analyzer.Analyze(context.Background(), testEvent(), nil, DefaultPersonality())
		require.NoError(t, err)
		assert.InDelta(t, 0.85, assessment.Score, 1e-9)
		assert.Equal(t, NodeTypeAchievement, assessment.NodeType)
		assert.Equal(t, "a major milestone", assessment.Reasoning)
		assert.InDelta(t, 0.9, assessment.Confidence, 1e-9)
		assert.Equal(t, []string{"robot works"}, assessment.KeyInsights)
		assert.False(t, assessment.ParseFailed)
	})

	t.Run("collaborator error surfaces", func(t *testing.T) {
		analyzer := NewAnalyzer(&stubLLM{err: errors.New("connection refused")}, cfg)

		_, err := analyzer.Analyze(context.Background(), testEvent(), nil, DefaultPersonality())
		require.Error(t, err)
	})

	t.Run("timeout abandons the call", func(t *testing.T) {
		shortCfg := DefaultConfig()
		shortCfg.LLMTimeout = 50 * time.Millisecond
		analyzer := NewAnalyzer(&stubLLM{block: true}, shortCfg)

		start := time.Now()
		_, err := analyzer.Analyze(context.Background(), testEvent(), nil, DefaultPersonality())
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("out of range importance clamped", func(t *testing.T) {
		llm := &stubLLM{reply: `{"importance": 7.3, "node_type": "memory", "confidence": 0.5}`}
		analyzer := NewAnalyzer(llm, cfg)

		assessment, err := analyzer.Analyze(context.Background(), testEvent(), nil, DefaultPersonality())
		require.NoError(t, err)
		assert.Equal(t, 1.0, assessment.Score)
	})
}

func TestParseAssessment(t *testing.T) {
	event := testEvent()

	t.Run("json inside markdown fences", func(t *testing.T) {
		content := "```json\n{\"importance\": 0.7, \"node_type\": \"joy\", \"confidence\": 0.8}\n```"
		a := parseAssessment(content, event)
		assert.InDelta(t, 0.7, a.Score, 1e-9)
		assert.Equal(t, NodeTypeJoy, a.NodeType)
		assert.False(t, a.ParseFailed)
	})

	t.Run("unknown node type dropped", func(t *testing.T) {
		a := parseAssessment(`{"importance": 0.5, "node_type": "ethereal"}`, event)
		assert.Empty(t, a.NodeType)
	})

	t.Run("missing confidence defaults", func(t *testing.T) {
		a := parseAssessment(`{"importance": 0.5, "node_type": "memory"}`, event)
		assert.InDelta(t, 0.8, a.Confidence, 1e-9)
	})

	t.Run("plain text salvage", func(t *testing.T) {
		a := parseAssessment("This event is very important, it marks a real achievement.", event)
		assert.True(t, a.ParseFailed)
		assert.InDelta(t, 0.8, a.Score, 1e-9)
		assert.Equal(t, NodeTypeAchievement, a.NodeType)
		assert.InDelta(t, 0.6, a.Confidence, 1e-9)
	})

	t.Run("dismissive text salvage", func(t *testing.T) {
		a := parseAssessment("Trivial. Not important at all.", event)
		assert.True(t, a.ParseFailed)
		assert.InDelta(t, 0.3, a.Score, 1e-9)
	})

	t.Run("garbage degrades to midrange", func(t *testing.T) {
		a := parseAssessment("{{{{unparseable", event)
		assert.True(t, a.ParseFailed)
		assert.InDelta(t, 0.5, a.Score, 1e-9)
	})
}
