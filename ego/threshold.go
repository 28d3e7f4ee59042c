package ego

// ThresholdPolicy maps (node type, personality, graph memory count) to an
// acceptance threshold. It is a pure function of its inputs: identical inputs
// always yield the identical threshold.
type ThresholdPolicy struct {
	cfg *Config
}

// NewThresholdPolicy creates a threshold policy with the configured base table.
func NewThresholdPolicy(cfg *Config) *ThresholdPolicy {
	return &ThresholdPolicy{cfg: cfg}
}

// Threshold computes the dynamic acceptance threshold. Base thresholds come
// from the per-type table; memory density above the configured count raises
// the threshold (selectivity grows as the graph fills); high Neuroticism
// lowers the threat/trauma threshold (more sensitive to danger). The result
// is clamped to the configured floor and ceiling.
func (p *ThresholdPolicy) Threshold(nodeType string, personality PersonalityVector, memoryCount int) float64 {
	threshold, ok := p.cfg.Thresholds[nodeType]
	if !ok {
		threshold = p.cfg.DefaultThreshold
	}

	if memoryCount > p.cfg.MemoryDensityThreshold {
		threshold += p.cfg.DensityPenalty
	}

	if IsNegativeType(nodeType) && personality.Neuroticism > p.cfg.NeuroticismThreatCutoff {
		threshold -= p.cfg.NeuroticismThreatRelief
	}

	if threshold < p.cfg.ThresholdFloor {
		threshold = p.cfg.ThresholdFloor
	}
	if threshold > p.cfg.ThresholdCeiling {
		threshold = p.cfg.ThresholdCeiling
	}
	return threshold
}

// Accept applies the decision rule: accept iff importance ≥ threshold; ties accept.
func (p *ThresholdPolicy) Accept(importance, threshold float64) bool {
	return importance >= threshold
}
