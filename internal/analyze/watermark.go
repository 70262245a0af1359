package analyze

import (
	"context"
	"fmt"
	"math"

	"github.com/ppiankov/attributa/internal/model"
)

// GreenList detects a green-list watermark: each token is "green" when a
// hash of (key, previous token, token) falls below gamma. Unwatermarked
// text hits green at rate gamma; a one-sided z-test gives the p-value.
type GreenList struct {
	source SegmentSource
	gamma  float64
	key    string
}

// NewGreenList creates a watermark analyzer; gamma outside (0,1) uses 0.25
func NewGreenList(source SegmentSource, gamma float64, key string) *GreenList {
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.25
	}
	return &GreenList{source: source, gamma: gamma, key: key}
}

// AnalyzeWatermark tests one segment
func (g *GreenList) AnalyzeWatermark(ctx context.Context, segmentID string) (model.WatermarkSignal, error) {
	_, content, err := g.source.Segment(ctx, segmentID)
	if err != nil {
		return model.WatermarkSignal{}, fmt.Errorf("resolve segment: %w", err)
	}

	tokens := tokenize(content)
	if len(tokens) < 2 {
		return model.WatermarkSignal{}, fmt.Errorf("%w: %d tokens in %s", ErrInsufficientText, len(tokens), segmentID)
	}

	green := 0
	for i := 1; i < len(tokens); i++ {
		if g.isGreen(tokens[i-1], tokens[i]) {
			green++
		}
	}

	n := float64(len(tokens) - 1)
	z := (float64(green) - g.gamma*n) / math.Sqrt(n*g.gamma*(1-g.gamma))
	return model.WatermarkSignal{
		PValue:        0.5 * math.Erfc(z/math.Sqrt2),
		ZScore:        z,
		GreenFraction: float64(green) / n,
	}, nil
}

func (g *GreenList) isGreen(prev, tok string) bool {
	return float64(hash64(g.key, prev, tok))/float64(math.MaxUint64) < g.gamma
}
