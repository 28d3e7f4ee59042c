package ego

import "time"

// Node type tags. The set is closed for threshold lookup; stores accept
// user-defined extensions and fall back to the default threshold for them.
const (
	NodeTypeMemory      = "memory"
	NodeTypeTrauma      = "trauma"
	NodeTypeThreat      = "threat"
	NodeTypeJoy         = "joy"
	NodeTypeInteraction = "interaction"
	NodeTypeAchievement = "achievement"
	NodeTypeRoutine     = "routine"
	NodeTypeCasual      = "casual"
)

// knownNodeTypes validates LLM-provided classifications.
var knownNodeTypes = map[string]bool{
	NodeTypeMemory:      true,
	NodeTypeTrauma:      true,
	NodeTypeThreat:      true,
	NodeTypeJoy:         true,
	NodeTypeInteraction: true,
	NodeTypeAchievement: true,
	NodeTypeRoutine:     true,
	NodeTypeCasual:      true,
}

// IsNegativeType reports whether a node type marks a threat-class event.
func IsNegativeType(nodeType string) bool {
	return nodeType == NodeTypeThreat || nodeType == NodeTypeTrauma
}

// IsPositiveType reports whether a node type marks a positive event.
func IsPositiveType(nodeType string) bool {
	return nodeType == NodeTypeJoy || nodeType == NodeTypeAchievement
}

// SignalWeights are the aggregation weights for the three importance signals.
// When the LLM signal is unavailable the remaining weights are renormalized.
type SignalWeights struct {
	Heuristic float64
	Semantic  float64
	LLM       float64
}

// ModulationWeights scale how each trait shifts the importance modulator.
// Every term is centered on the neutral trait value 0.5, so a default
// personality leaves scores untouched.
type ModulationWeights struct {
	OpennessNovel                float64
	ConscientiousnessAchievement float64
	ExtroversionSocial           float64
	AgreeablenessPositive        float64
	AgreeablenessNegative        float64
	NeuroticismThreat            float64
	NeuroticismPositive          float64
}

// Config carries the tuning constants of the cognitive core.
type Config struct {
	// Heuristic scorer
	HighKeywords         []string
	LowKeywords          []string
	CompletionActions    []string
	HighKeywordIncrement float64
	LowKeywordDecrement  float64
	ActionIncrement      float64

	// Semantic scorer
	SemanticBaseline      float64 // score when nothing matches or the store is empty
	ImportanceFloor       float64 // only memories above this feed similarity
	NoveltySimilarity     float64 // best raw similarity below this marks the event novel
	SemanticTopK          int
	EmbeddingCacheSize    int
	EmbeddingCacheTTL     time.Duration
	AssociativeSimilarity float64 // commit links to nodes at least this similar
	AssociativeEdgeLimit  int

	// Aggregation
	Weights    SignalWeights
	Modulation ModulationWeights

	// Threshold policy
	Thresholds              map[string]float64
	DefaultThreshold        float64
	MemoryDensityThreshold  int
	DensityPenalty          float64
	NeuroticismThreatCutoff float64
	NeuroticismThreatRelief float64
	ThresholdFloor          float64
	ThresholdCeiling        float64

	// LLM analyzer
	LLMTimeout       time.Duration
	LLMMaxConcurrent int64
	LLMRatePerSecond float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		HighKeywords: []string{
			"finished", "completed", "achievement", "important", "significant",
			"milestone", "breakthrough", "accomplished", "success", "final",
			"done", "created", "built", "finished building",
		},
		LowKeywords: []string{
			"cool", "nice", "casual", "routine", "normal", "typical", "just",
			"maybe", "might", "probably", "sort of", "kind of",
		},
		CompletionActions:    []string{"completed", "finished", "achieved", "accomplished"},
		HighKeywordIncrement: 0.1,
		LowKeywordDecrement:  0.05,
		ActionIncrement:      0.1,

		SemanticBaseline:      0.5,
		ImportanceFloor:       0.7,
		NoveltySimilarity:     0.5,
		SemanticTopK:          5,
		EmbeddingCacheSize:    2048,
		EmbeddingCacheTTL:     time.Hour,
		AssociativeSimilarity: 0.75,
		AssociativeEdgeLimit:  3,

		Weights: SignalWeights{Heuristic: 0.3, Semantic: 0.3, LLM: 0.4},
		Modulation: ModulationWeights{
			OpennessNovel:                0.3,
			ConscientiousnessAchievement: 0.4,
			ExtroversionSocial:           0.3,
			AgreeablenessPositive:        0.4,
			AgreeablenessNegative:        -0.2,
			NeuroticismThreat:            0.5,
			NeuroticismPositive:          -0.1,
		},

		Thresholds: map[string]float64{
			NodeTypeTrauma:      0.3,
			NodeTypeThreat:      0.3,
			NodeTypeJoy:         0.6,
			NodeTypeAchievement: 0.6,
			NodeTypeInteraction: 0.5,
			NodeTypeMemory:      0.5,
			NodeTypeRoutine:     0.7,
			NodeTypeCasual:      0.8,
		},
		DefaultThreshold:        0.5,
		MemoryDensityThreshold:  100,
		DensityPenalty:          0.1,
		NeuroticismThreatCutoff: 0.7,
		NeuroticismThreatRelief: 0.2,
		ThresholdFloor:          0.1,
		ThresholdCeiling:        0.9,

		LLMTimeout:       30 * time.Second,
		LLMMaxConcurrent: 4,
		LLMRatePerSecond: 2,
	}
}
