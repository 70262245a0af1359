// Package analyze produces per-segment signals. Analyzers take a segment
// id and resolve content through a SegmentSource.
package analyze

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/store"
)

// ErrSegmentNotFound is returned when the segment id does not resolve
var ErrSegmentNotFound = store.ErrSegmentNotFound

// ErrInsufficientText is returned when a segment has too few tokens to measure
var ErrInsufficientText = errors.New("insufficient text")

// TextAnalyzer produces token-predictability and curvature signals
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, segmentID string) (model.TextSignals, error)
}

// WatermarkAnalyzer produces a watermark p-value
type WatermarkAnalyzer interface {
	AnalyzeWatermark(ctx context.Context, segmentID string) (model.WatermarkSignal, error)
}

// SegmentSource resolves a segment id to its content
type SegmentSource interface {
	Segment(ctx context.Context, segmentID string) (model.Segment, string, error)
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_']+`)

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	out := make([]string, len(raw))
	for i, tok := range raw {
		out[i] = strings.ToLower(strings.Trim(tok, "'"))
	}
	return out
}

func hash64(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
