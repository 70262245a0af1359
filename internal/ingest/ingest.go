// Package ingest turns raw content into an ordered list of typed segments.
package ingest

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/store"
)

// ErrEmptyContent is returned when there is nothing to analyze
var ErrEmptyContent = errors.New("empty content")

// Input formats
const (
	FormatAuto     = "auto"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Options controls a single ingestion
type Options struct {
	Source             string // Recorded on the document (path, URL, "stdin")
	Format             string // auto, text, markdown, html
	TargetSegmentChars int    // Adjacent prose paragraphs merge up to this length; 0 disables merging
}

// Ingestor segments content and assigns document ids
type Ingestor struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewIngestor creates an ingestor
func NewIngestor() *Ingestor {
	return &Ingestor{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (i *Ingestor) newID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(i.now()), i.entropy).String()
}

// Ingest normalizes content, splits it into segments, and returns the document
func (i *Ingestor) Ingest(ctx context.Context, content string, opts Options) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := normalize(content)
	if text == "" {
		return nil, ErrEmptyContent
	}

	format := strings.ToLower(opts.Format)
	if format == FormatHTML || ((format == "" || format == FormatAuto) && looksLikeHTML(text)) {
		converted, err := htmlToText(text, opts.Source)
		if err != nil {
			return nil, fmt.Errorf("extract html text: %w", err)
		}
		text = normalize(converted)
		if text == "" {
			return nil, ErrEmptyContent
		}
	}

	blocks := splitBlocks(text)
	if opts.TargetSegmentChars > 0 {
		blocks = mergeProse(blocks, opts.TargetSegmentChars)
	}
	if len(blocks) == 0 {
		return nil, ErrEmptyContent
	}

	doc := &model.Document{
		ID:        i.newID(),
		Source:    opts.Source,
		CreatedAt: i.now().UTC(),
		Segments:  make([]model.Segment, 0, len(blocks)),
		Contents:  make(map[string]string, len(blocks)),
	}

	for idx, b := range blocks {
		id := store.SegmentID(doc.ID, idx)
		doc.Segments = append(doc.Segments, model.Segment{
			ID:     id,
			Type:   b.kind,
			Length: utf8.RuneCountInString(b.text),
		})
		doc.Contents[id] = b.text
	}
	doc.Summary = Summarize(doc)

	return doc, nil
}

// Summarize renders the one-line human-readable description of a document
func Summarize(doc *model.Document) string {
	counts := map[model.ContentType]int{}
	for _, s := range doc.Segments {
		counts[s.Type]++
	}

	var parts []string
	for _, t := range []model.ContentType{model.ContentProse, model.ContentCode, model.ContentLatex, model.ContentMixed} {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
		}
	}

	noun := "segments"
	if len(doc.Segments) == 1 {
		noun = "segment"
	}
	return fmt.Sprintf("%d %s (%s), %d characters", len(doc.Segments), noun, strings.Join(parts, ", "), doc.TotalLength())
}

func normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.Contains(head, "<html") ||
		strings.Contains(head, "<body")
}
