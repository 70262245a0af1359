package model

import (
	"errors"
	"fmt"
	"math"
)

// Weight keys understood by the aggregator
const (
	WeightTailTokenShare = "tailTokenShare"
	WeightRankVariance   = "rankVariance"
	WeightCurvature      = "curvature"
	WeightWatermark      = "watermark"
)

// ErrInvalidWeights is returned for negative, non-finite, or all-zero weights
var ErrInvalidWeights = errors.New("invalid weight configuration")

// Weights maps a signal name to its relative weight
type Weights map[string]float64

// DefaultWeights returns the stock weight configuration
func DefaultWeights() Weights {
	return Weights{
		WeightTailTokenShare: 0.30,
		WeightRankVariance:   0.20,
		WeightCurvature:      0.35,
		WeightWatermark:      0.15,
	}
}

// Clone returns an independent copy
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Validate checks that every weight is finite and non-negative and at least one is positive
func (w Weights) Validate() error {
	positive := false
	for k, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, k, v)
		}
		if v > 0 {
			positive = true
		}
	}
	if !positive {
		return fmt.Errorf("%w: no positive weight", ErrInvalidWeights)
	}
	return nil
}

// Classification is the derived verdict for a score
type Classification string

const (
	ClassLikelyAI    Classification = "likely_ai"
	ClassUncertain   Classification = "uncertain"
	ClassLikelyHuman Classification = "likely_human"
)

// Score is the aggregated confidence for one segment
type Score struct {
	Value           float64            `json:"value"` // 0 (human) .. 1 (machine), after length adjustment
	Raw             float64            `json:"raw"`   // Weighted mean before length adjustment
	Classification  Classification     `json:"classification"`
	Confidence      float64            `json:"confidence"`       // Equals LengthFactor
	ConfidenceLevel string             `json:"confidence_level"` // low, medium, high
	LengthFactor    float64            `json:"length_factor"`
	Components      map[string]float64 `json:"components,omitempty"` // Per-feature likelihoods
	Degraded        bool               `json:"degraded,omitempty"`   // Score computation failed, neutral value stored
}

// NeutralScore is stored when score computation fails
func NeutralScore() Score {
	return Score{
		Value:           0.5,
		Raw:             0.5,
		Classification:  ClassUncertain,
		Confidence:      0,
		ConfidenceLevel: "low",
		Degraded:        true,
	}
}
