package analyze

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ppiankov/attributa/internal/model"
)

// HeuristicOptions tunes the local text analyzer
type HeuristicOptions struct {
	TailRank      int // Tokens ranked beyond this count toward the tail share
	Perturbations int // Perturbed copies sampled for curvature
}

// Heuristic is a local text analyzer. Token predictability comes from a
// fixed frequency ranking; curvature compares the unigram likelihood of the
// text against word-substituted perturbations of itself.
type Heuristic struct {
	source SegmentSource
	opts   HeuristicOptions
}

// NewHeuristic creates a local text analyzer
func NewHeuristic(source SegmentSource, opts HeuristicOptions) *Heuristic {
	if opts.TailRank <= 0 {
		opts.TailRank = 100
	}
	if opts.Perturbations <= 0 {
		opts.Perturbations = 16
	}
	return &Heuristic{source: source, opts: opts}
}

// AnalyzeText measures one segment
func (h *Heuristic) AnalyzeText(ctx context.Context, segmentID string) (model.TextSignals, error) {
	_, content, err := h.source.Segment(ctx, segmentID)
	if err != nil {
		return model.TextSignals{}, fmt.Errorf("resolve segment: %w", err)
	}

	tokens := tokenize(content)
	if len(tokens) < 2 {
		return model.TextSignals{}, fmt.Errorf("%w: %d tokens in %s", ErrInsufficientText, len(tokens), segmentID)
	}

	tail, variance := h.predictability(tokens)
	curvature := h.curvature(ctx, segmentID, tokens)
	if err := ctx.Err(); err != nil {
		return model.TextSignals{}, err
	}

	return model.TextSignals{
		TokenPredictability: model.TokenPredictability{
			TailTokenShare: tail,
			RankVariance:   variance,
		},
		CurvatureSignal: model.CurvatureSignal{
			Curvature:        curvature,
			NumPerturbations: h.opts.Perturbations,
		},
	}, nil
}

// predictability returns the tail-token share and the normalized
// variance of log2 ranks
func (h *Heuristic) predictability(tokens []string) (float64, float64) {
	tail := 0
	logs := make([]float64, len(tokens))
	for i, tok := range tokens {
		r := rankOf(tok)
		if r > h.opts.TailRank {
			tail++
		}
		logs[i] = math.Log2(float64(r))
	}

	_, std := meanStd(logs)
	return float64(tail) / float64(len(tokens)), (std * std) / 10
}

// curvature is (ll(original) - mean ll(perturbed)) / std ll(perturbed)
func (h *Heuristic) curvature(ctx context.Context, segmentID string, tokens []string) float64 {
	seed := hash64("curvature", segmentID)
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	original := logLikelihood(tokens)
	scores := make([]float64, 0, h.opts.Perturbations)
	buf := make([]string, len(tokens))

	for i := 0; i < h.opts.Perturbations; i++ {
		if ctx.Err() != nil {
			return 0
		}
		copy(buf, tokens)
		perturb(buf, rng)
		scores = append(scores, logLikelihood(buf))
	}

	mean, std := meanStd(scores)
	if std == 0 {
		return 0
	}
	return (original - mean) / std
}

// perturb replaces roughly 15% of tokens (at least one) with words drawn
// uniformly from the frequency list
func perturb(tokens []string, rng *rand.Rand) {
	n := len(tokens) * 15 / 100
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		tokens[rng.IntN(len(tokens))] = commonWords[rng.IntN(len(commonWords))]
	}
}

// logLikelihood is the mean log-probability under a Zipf unigram model
func logLikelihood(tokens []string) float64 {
	var sum float64
	for _, tok := range tokens {
		sum += -math.Log(float64(rankOf(tok))) - zipfNorm
	}
	return sum / float64(len(tokens))
}

// zipfNorm is log of the harmonic normalizer over the ranks in use
var zipfNorm = func() float64 {
	var h float64
	for r := 1; r <= len(commonWords); r++ {
		h += 1 / float64(r)
	}
	h += 1 / float64(len(commonWords)*4)
	return math.Log(h)
}()

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
