package ego

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicScorer_Score(t *testing.T) {
	scorer := NewHeuristicScorer(DefaultConfig())

	tests := []struct {
		name     string
		event    *EventFrame
		expected float64
	}{
		{
			name: "achievement with mixed keywords",
			event: &EventFrame{
				Description:     "Ian just finished building the robot",
				DetectedActions: []string{"completed"},
			},
			// "finished" and "finished building" each +0.1, "just" -0.05,
			// completion action +0.1
			expected: 0.75,
		},
		{
			name: "mundane scene",
			event: &EventFrame{
				Description: "A cool and nice casual walk in the park",
			},
			// "cool", "nice", "casual" each -0.05
			expected: 0.35,
		},
		{
			name:     "neutral description",
			event:    &EventFrame{Description: "A red ball on the table"},
			expected: 0.5,
		},
		{
			name: "clamped at one",
			event: &EventFrame{
				Description:     "important significant milestone breakthrough success final done created built",
				DetectedActions: []string{"completed", "finished", "achieved"},
			},
			expected: 1.0,
		},
		{
			name:     "case insensitive",
			event:    &EventFrame{Description: "IMPORTANT Milestone"},
			expected: 0.7,
		},
		{
			name: "unknown actions ignored",
			event: &EventFrame{
				Description:     "A red ball on the table",
				DetectedActions: []string{"walking", "waving"},
			},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Score(tt.event), 1e-9)
		})
	}
}

func TestHeuristicScorer_InferNodeType(t *testing.T) {
	scorer := NewHeuristicScorer(DefaultConfig())

	tests := []struct {
		name     string
		event    *EventFrame
		expected string
	}{
		{
			name:     "threat keywords win",
			event:    &EventFrame{Description: "An aggressive dog is a danger to everyone"},
			expected: NodeTypeThreat,
		},
		{
			name:     "joy keywords",
			event:    &EventFrame{Description: "Everyone was happy to celebrate"},
			expected: NodeTypeJoy,
		},
		{
			name:     "achievement keywords",
			event:    &EventFrame{Description: "The tower was finally completed"},
			expected: NodeTypeAchievement,
		},
		{
			name:     "routine keywords",
			event:    &EventFrame{Description: "A typical morning commute"},
			expected: NodeTypeRoutine,
		},
		{
			name: "completion action without keywords",
			event: &EventFrame{
				Description:     "The robot arm stopped moving",
				DetectedActions: []string{"finished"},
			},
			expected: NodeTypeAchievement,
		},
		{
			name:     "identified user falls back to interaction",
			event:    &EventFrame{Description: "Someone waved at the camera", UserID: "ian"},
			expected: NodeTypeInteraction,
		},
		{
			name:     "plain observation",
			event:    &EventFrame{Description: "A red ball on the table"},
			expected: NodeTypeMemory,
		},
		{
			name:     "threat outranks joy when both present",
			event:    &EventFrame{Description: "A happy crowd fled the danger"},
			expected: NodeTypeThreat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.InferNodeType(tt.event))
		})
	}
}
