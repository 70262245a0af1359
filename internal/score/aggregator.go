// Package score combines a segment's signal bundle into a single
// machine-likelihood score. Every component is reported alongside the
// result so a score can be explained.
package score

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/attributa/internal/model"
)

var (
	// ErrInvalidWeights is returned for negative, non-finite, or all-zero weights
	ErrInvalidWeights = model.ErrInvalidWeights

	// ErrInvalidSignal is returned for NaN or infinite signal values
	ErrInvalidSignal = errors.New("invalid signal value")

	// ErrInvalidLength is returned for a negative segment length
	ErrInvalidLength = errors.New("invalid segment length")
)

// Length and classification thresholds
const (
	FullConfidenceLength = 1000 // Characters at which the length factor reaches 1
	MinLengthFactor      = 0.25
	MediumLength         = 250

	LikelyAIThreshold    = 0.7
	LikelyHumanThreshold = 0.3
)

// Scorer computes a score for one segment
type Scorer interface {
	Compute(ctx context.Context, bundle model.SignalBundle, length int, ct model.ContentType, weights model.Weights) (model.Score, error)
}

// Aggregator is the default Scorer: a weighted mean of per-feature
// likelihoods shrunk toward 0.5 for short segments
type Aggregator struct{}

// NewAggregator creates an aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Compute scores one segment
func (a *Aggregator) Compute(ctx context.Context, bundle model.SignalBundle, length int, ct model.ContentType, weights model.Weights) (model.Score, error) {
	if err := ctx.Err(); err != nil {
		return model.Score{}, err
	}

	// 1. Validate inputs
	if length < 0 {
		return model.Score{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if err := weights.Validate(); err != nil {
		return model.Score{}, err
	}
	if !bundle.Finite() {
		return model.Score{}, ErrInvalidSignal
	}

	// 2. Per-feature likelihoods, token features dampened by content type
	components := featureLikelihoods(bundle, ct)

	// 3. Weighted mean over present features with positive weight
	raw, err := weightedMean(components, weights)
	if err != nil {
		return model.Score{}, err
	}

	// 4. Shrink toward 0.5 by segment length
	factor := LengthFactor(length)
	value := clamp(0.5+(raw-0.5)*factor, 0, 1)

	return model.Score{
		Value:           value,
		Raw:             raw,
		Classification:  Classify(value),
		Confidence:      factor,
		ConfidenceLevel: ConfidenceLevel(length),
		LengthFactor:    factor,
		Components:      components,
	}, nil
}

// featureLikelihoods maps each present signal to a machine-likelihood in [0,1]
func featureLikelihoods(b model.SignalBundle, ct model.ContentType) map[string]float64 {
	damp := typeDampening(ct)

	out := map[string]float64{
		// Machine text leans on common tokens; a tail share of 0.6 reads fully human
		model.WeightTailTokenShare: 0.5 + (clamp(1-b.TokenPredictability.TailTokenShare/0.6, 0, 1)-0.5)*damp,
		// Machine text has flatter rank profiles
		model.WeightRankVariance: 0.5 + (clamp(1-b.TokenPredictability.RankVariance, 0, 1)-0.5)*damp,
		// Curvature of 2 standard deviations reads fully machine
		model.WeightCurvature: clamp(b.Curvature.Curvature/2, 0, 1),
	}
	if b.Watermark != nil {
		// p >= 0.5 is no evidence; p near 0 is strong evidence
		out[model.WeightWatermark] = clamp(1-b.Watermark.PValue/0.5, 0, 1)
	}
	return out
}

// typeDampening pulls token statistics toward neutral for content where
// word frequencies say little about authorship
func typeDampening(ct model.ContentType) float64 {
	switch ct {
	case model.ContentCode:
		return 0.6
	case model.ContentLatex:
		return 0.8
	case model.ContentMixed:
		return 0.9
	default:
		return 1.0
	}
}

func weightedMean(components map[string]float64, weights model.Weights) (float64, error) {
	var sum, total float64
	for name, v := range components {
		w := weights[name]
		if w <= 0 {
			continue
		}
		sum += w * v
		total += w
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: no positive weight for present signals", ErrInvalidWeights)
	}
	return sum / total, nil
}

// LengthFactor is clamp(length/1000, 0.25, 1)
func LengthFactor(length int) float64 {
	return clamp(float64(length)/FullConfidenceLength, MinLengthFactor, 1)
}

// ConfidenceLevel buckets a segment length into low, medium or high
func ConfidenceLevel(length int) string {
	switch {
	case length < MediumLength:
		return "low"
	case length < FullConfidenceLength:
		return "medium"
	default:
		return "high"
	}
}

// Classify derives the verdict for a score value
func Classify(value float64) model.Classification {
	switch {
	case value >= LikelyAIThreshold:
		return model.ClassLikelyAI
	case value <= LikelyHumanThreshold:
		return model.ClassLikelyHuman
	default:
		return model.ClassUncertain
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
