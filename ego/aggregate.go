package ego

// Signals carries the per-event importance signals into aggregation. LLM is
// nil when that layer was unavailable or disabled.
type Signals struct {
	Heuristic float64
	Semantic  float64
	LLM       *float64
	Novel     bool
}

// Aggregator combines the signals into one base importance and applies
// personality modulation.
type Aggregator struct {
	cfg *Config
}

// NewAggregator creates an aggregator with the configured weights.
func NewAggregator(cfg *Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate returns the weighted base importance, the personality modulator,
// and the final clamped importance. When the LLM signal is missing the
// heuristic and semantic weights are renormalized to sum to one.
func (a *Aggregator) Aggregate(signals Signals, event *EventFrame, nodeType string, personality PersonalityVector) (base, modulator, final float64) {
	w := a.cfg.Weights
	if signals.LLM != nil {
		base = signals.Heuristic*w.Heuristic + signals.Semantic*w.Semantic + *signals.LLM*w.LLM
	} else {
		total := w.Heuristic + w.Semantic
		base = (signals.Heuristic*w.Heuristic + signals.Semantic*w.Semantic) / total
	}
	base = Clamp01(base)

	modulator = a.modulator(signals, event, nodeType, personality)
	final = Clamp01(base * modulator)
	return base, modulator, final
}

// modulator computes the multiplicative personality adjustment. Each term is
// centered on the neutral trait value 0.5, so a default personality yields
// exactly 1.0 and the direction of each trait's influence matches its weight
// sign.
func (a *Aggregator) modulator(signals Signals, event *EventFrame, nodeType string, personality PersonalityVector) float64 {
	m := a.cfg.Modulation
	modulator := 1.0

	// Openness boosts events that resemble nothing remembered.
	if signals.Novel && nodeType != NodeTypeRoutine && nodeType != NodeTypeCasual {
		modulator += m.OpennessNovel * (personality.Openness - 0.5)
	}

	// Conscientiousness boosts completion and achievement.
	if nodeType == NodeTypeAchievement {
		modulator += m.ConscientiousnessAchievement * (personality.Conscientiousness - 0.5)
	}

	// Extroversion boosts events involving an identified user.
	if event.IsSocial() {
		modulator += m.ExtroversionSocial * (personality.Extroversion - 0.5)
	}

	// Agreeableness boosts positive events and dampens threat-class ones.
	if IsPositiveType(nodeType) {
		modulator += m.AgreeablenessPositive * (personality.Agreeableness - 0.5)
	} else if IsNegativeType(nodeType) {
		modulator += m.AgreeablenessNegative * (personality.Agreeableness - 0.5)
	}

	// Neuroticism amplifies threats and mutes positive events.
	if IsNegativeType(nodeType) {
		modulator += m.NeuroticismThreat * (personality.Neuroticism - 0.5)
	} else if IsPositiveType(nodeType) {
		modulator += m.NeuroticismPositive * (personality.Neuroticism - 0.5)
	}

	return modulator
}

// ResolveNodeType picks the node type for threshold lookup: the LLM
// classification when present and recognized, otherwise keyword inference.
func ResolveNodeType(assessment *Assessment, heuristic *HeuristicScorer, event *EventFrame) string {
	if assessment != nil && assessment.NodeType != "" && knownNodeTypes[assessment.NodeType] {
		return assessment.NodeType
	}
	return heuristic.InferNodeType(event)
}
