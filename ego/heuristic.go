package ego

import "strings"

// HeuristicScorer is the keyword layer: a pure, deterministic scorer over the
// event description and detected actions.
type HeuristicScorer struct {
	cfg *Config
}

// NewHeuristicScorer creates a heuristic scorer with the configured keyword sets.
func NewHeuristicScorer(cfg *Config) *HeuristicScorer {
	return &HeuristicScorer{cfg: cfg}
}

// Score starts from a neutral 0.5 baseline, adds a fixed increment per
// high-importance keyword match, subtracts a decrement per low-importance
// match, adds an increment per recognized completion action, and clamps.
func (s *HeuristicScorer) Score(event *EventFrame) float64 {
	description := strings.ToLower(event.Description)
	score := 0.5

	for _, kw := range s.cfg.HighKeywords {
		if strings.Contains(description, kw) {
			score += s.cfg.HighKeywordIncrement
		}
	}
	for _, kw := range s.cfg.LowKeywords {
		if strings.Contains(description, kw) {
			score -= s.cfg.LowKeywordDecrement
		}
	}
	for _, action := range event.DetectedActions {
		if s.isCompletionAction(action) {
			score += s.cfg.ActionIncrement
		}
	}

	return Clamp01(score)
}

// InferNodeType classifies the event by keyword category. Used when the LLM
// layer is unavailable or returned an unusable classification.
func (s *HeuristicScorer) InferNodeType(event *EventFrame) string {
	description := strings.ToLower(event.Description)

	switch {
	case containsAny(description, "threat", "danger", "aggressive", "attack"):
		return NodeTypeThreat
	case containsAny(description, "happy", "joy", "positive", "celebrate"):
		return NodeTypeJoy
	case containsAny(description, "finished", "completed", "achieved", "accomplished"):
		return NodeTypeAchievement
	case containsAny(description, "routine", "casual", "normal", "typical"):
		return NodeTypeRoutine
	}

	for _, action := range event.DetectedActions {
		if s.isCompletionAction(action) {
			return NodeTypeAchievement
		}
	}
	if event.IsSocial() {
		return NodeTypeInteraction
	}
	return NodeTypeMemory
}

func (s *HeuristicScorer) isCompletionAction(action string) bool {
	action = strings.ToLower(action)
	for _, known := range s.cfg.CompletionActions {
		if action == known {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
