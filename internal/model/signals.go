package model

import "math"

// TokenPredictability measures how predictable a segment's tokens are
type TokenPredictability struct {
	TailTokenShare float64 `json:"tail_token_share"` // Share of tokens outside the common-rank head
	RankVariance   float64 `json:"rank_variance"`    // Normalized variance of token log-ranks
}

// CurvatureSignal is the perturbation-based anomaly measure
type CurvatureSignal struct {
	Curvature        float64 `json:"curvature"`         // Positive values read as machine-like
	NumPerturbations int     `json:"num_perturbations"` // Perturbations sampled (0 for fallback)
}

// TextSignals is the output of a text analyzer for one segment
type TextSignals struct {
	TokenPredictability
	CurvatureSignal
}

// WatermarkSignal is the output of a watermark analyzer for one segment
type WatermarkSignal struct {
	PValue        float64 `json:"p_value"`
	ZScore        float64 `json:"z_score,omitempty"`
	GreenFraction float64 `json:"green_fraction,omitempty"`
}

// SignalBundle holds every raw measurement produced for one segment
type SignalBundle struct {
	TokenPredictability TokenPredictability `json:"token_predictability"`
	Curvature           CurvatureSignal     `json:"curvature"`
	Watermark           *WatermarkSignal    `json:"watermark,omitempty"`
	Fallback            bool                `json:"fallback,omitempty"` // Text analyzer failed, fixed values substituted
}

// Fallback signal values substituted when the text analyzer fails
const (
	FallbackTailTokenShare = 0.3
	FallbackRankVariance   = 0.5
	FallbackCurvature      = 0.1
)

// FallbackBundle returns the fixed substitute bundle used when text analysis fails.
// The small positive curvature reads as less suspicious.
func FallbackBundle() SignalBundle {
	return SignalBundle{
		TokenPredictability: TokenPredictability{
			TailTokenShare: FallbackTailTokenShare,
			RankVariance:   FallbackRankVariance,
		},
		Curvature: CurvatureSignal{
			Curvature:        FallbackCurvature,
			NumPerturbations: 0,
		},
		Fallback: true,
	}
}

// BundleFromText wraps text analyzer output in a bundle without a watermark
func BundleFromText(ts TextSignals) SignalBundle {
	return SignalBundle{
		TokenPredictability: ts.TokenPredictability,
		Curvature:           ts.CurvatureSignal,
	}
}

// Finite reports whether every numeric value in the bundle is a real number
func (b SignalBundle) Finite() bool {
	vals := []float64{
		b.TokenPredictability.TailTokenShare,
		b.TokenPredictability.RankVariance,
		b.Curvature.Curvature,
	}
	if b.Watermark != nil {
		vals = append(vals, b.Watermark.PValue)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
