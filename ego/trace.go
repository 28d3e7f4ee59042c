package ego

// Trace actions.
const (
	ActionAddedToGraph     = "added_to_graph"
	ActionStoredAsEpisodic = "stored_as_episodic"
)

// ReasoningTrace is the ephemeral per-event output: every sub-score, the
// decision, and the LLM analysis when one was obtained. It is returned to the
// caller and broadcast to stream listeners, never persisted.
type ReasoningTrace struct {
	EventID         string   `json:"event_id"`
	HeuristicScore  float64  `json:"heuristic_score"`
	SemanticScore   float64  `json:"semantic_score"`
	LLMScore        *float64 `json:"llm_score"`
	LLMReasoning    *string  `json:"llm_reasoning"`
	LLMConfidence   *float64 `json:"llm_confidence,omitempty"`
	EmotionalImpact string   `json:"emotional_impact,omitempty"`
	KeyInsights     []string `json:"key_insights,omitempty"`
	LLMDegraded     bool     `json:"llm_degraded,omitempty"` // collaborator timed out or replied malformed
	Novel           bool     `json:"novel"`
	BaseImportance  float64  `json:"base_importance"`
	Modulation      float64  `json:"personality_modulation"`
	FinalImportance float64  `json:"final_importance"`
	NodeType        string   `json:"node_type"`
	Threshold       float64  `json:"threshold"`
	Accepted        bool     `json:"accepted"`
	Action          string   `json:"action"`
	MemoryID        *string  `json:"memory_id,omitempty"`
	RelevantCount   int      `json:"relevant_memories_count"`
}
