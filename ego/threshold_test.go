package ego

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdPolicy_Threshold(t *testing.T) {
	policy := NewThresholdPolicy(DefaultConfig())
	neutral := DefaultPersonality()
	anxious := DefaultPersonality()
	anxious.Neuroticism = 0.8

	tests := []struct {
		name        string
		nodeType    string
		personality PersonalityVector
		memoryCount int
		expected    float64
	}{
		{"threat base", NodeTypeThreat, neutral, 0, 0.3},
		{"trauma base", NodeTypeTrauma, neutral, 0, 0.3},
		{"joy base", NodeTypeJoy, neutral, 0, 0.6},
		{"achievement base", NodeTypeAchievement, neutral, 0, 0.6},
		{"interaction base", NodeTypeInteraction, neutral, 0, 0.5},
		{"memory base", NodeTypeMemory, neutral, 0, 0.5},
		{"routine base", NodeTypeRoutine, neutral, 0, 0.7},
		{"casual base", NodeTypeCasual, neutral, 0, 0.8},
		{"unknown type uses default", "extradimensional", neutral, 0, 0.5},

		// Density penalty applies strictly above the cutoff.
		{"at density cutoff", NodeTypeMemory, neutral, 100, 0.5},
		{"above density cutoff", NodeTypeMemory, neutral, 101, 0.6},

		// High Neuroticism lowers the bar for threat-class events only.
		{"anxious threat", NodeTypeThreat, anxious, 0, 0.1},
		{"anxious trauma", NodeTypeTrauma, anxious, 0, 0.1},
		{"anxious joy unchanged", NodeTypeJoy, anxious, 0, 0.6},
		{"anxious threat with density", NodeTypeThreat, anxious, 200, 0.2},

		// Clamping.
		{"ceiling respected", NodeTypeCasual, neutral, 500, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, policy.Threshold(tt.nodeType, tt.personality, tt.memoryCount), 1e-9)
		})
	}
}

func TestThresholdPolicy_Deterministic(t *testing.T) {
	policy := NewThresholdPolicy(DefaultConfig())
	p := DefaultPersonality()
	p.Neuroticism = 0.71

	first := policy.Threshold(NodeTypeThreat, p, 150)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, policy.Threshold(NodeTypeThreat, p, 150))
	}
}

func TestThresholdPolicy_Accept(t *testing.T) {
	policy := NewThresholdPolicy(DefaultConfig())

	assert.True(t, policy.Accept(0.7, 0.6))
	assert.True(t, policy.Accept(0.6, 0.6), "ties accept")
	assert.False(t, policy.Accept(0.59, 0.6))
}
