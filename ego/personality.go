package ego

import "github.com/pkg/errors"

// Big Five trait names.
const (
	TraitOpenness          = "Openness"
	TraitConscientiousness = "Conscientiousness"
	TraitExtroversion      = "Extroversion"
	TraitAgreeableness     = "Agreeableness"
	TraitNeuroticism       = "Neuroticism"
)

// TraitNames lists the five traits in canonical order.
var TraitNames = []string{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtroversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

// PersonalityVector holds the Big Five traits, each in [0,1]. It is owned by
// the SELF node and mutated only through the graph's serialized trait-set
// path; all five keys are always present.
type PersonalityVector struct {
	Openness          float64 `json:"Openness"`
	Conscientiousness float64 `json:"Conscientiousness"`
	Extroversion      float64 `json:"Extroversion"`
	Agreeableness     float64 `json:"Agreeableness"`
	Neuroticism       float64 `json:"Neuroticism"`
}

// DefaultPersonality returns a neutral vector with every trait at 0.5.
func DefaultPersonality() PersonalityVector {
	return PersonalityVector{
		Openness:          0.5,
		Conscientiousness: 0.5,
		Extroversion:      0.5,
		Agreeableness:     0.5,
		Neuroticism:       0.5,
	}
}

// Get returns the named trait value.
func (p PersonalityVector) Get(trait string) (float64, bool) {
	switch trait {
	case TraitOpenness:
		return p.Openness, true
	case TraitConscientiousness:
		return p.Conscientiousness, true
	case TraitExtroversion:
		return p.Extroversion, true
	case TraitAgreeableness:
		return p.Agreeableness, true
	case TraitNeuroticism:
		return p.Neuroticism, true
	}
	return 0, false
}

// Set updates the named trait, clamping the value to [0,1]. Unknown trait
// names are rejected; out-of-range values are clamped, never rejected.
func (p *PersonalityVector) Set(trait string, value float64) error {
	value = Clamp01(value)
	switch trait {
	case TraitOpenness:
		p.Openness = value
	case TraitConscientiousness:
		p.Conscientiousness = value
	case TraitExtroversion:
		p.Extroversion = value
	case TraitAgreeableness:
		p.Agreeableness = value
	case TraitNeuroticism:
		p.Neuroticism = value
	default:
		return errors.Errorf("unknown personality trait: %s", trait)
	}
	return nil
}

// Clamp01 bounds a score to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
