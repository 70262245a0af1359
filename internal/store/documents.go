package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/attributa/internal/cache"
	"github.com/ppiankov/attributa/internal/model"
)

var (
	// ErrDocumentNotFound is returned when a document id is unknown or expired
	ErrDocumentNotFound = errors.New("document not found")

	// ErrSegmentNotFound is returned when a segment id is unknown
	ErrSegmentNotFound = errors.New("segment not found")
)

// DocumentStore holds ingested documents so analyzers and auditors can
// resolve ids to content
type DocumentStore interface {
	PutDocument(ctx context.Context, doc *model.Document) error
	Document(ctx context.Context, id string) (*model.Document, error)
	Segment(ctx context.Context, segmentID string) (model.Segment, string, error)
}

// CacheDocuments is a DocumentStore backed by a cache.Cache
type CacheDocuments struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheDocuments creates a document store; ttl bounds how long an
// ingested document stays resolvable
func NewCacheDocuments(c cache.Cache, ttl time.Duration) *CacheDocuments {
	return &CacheDocuments{cache: c, ttl: ttl}
}

// NewMemoryDocuments creates an in-memory document store
func NewMemoryDocuments(ttl time.Duration) *CacheDocuments {
	return NewCacheDocuments(cache.NewMemoryCache(ttl, 10*time.Minute), ttl)
}

// PutDocument stores a document under its id
func (s *CacheDocuments) PutDocument(_ context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := s.cache.Set(cache.Key("doc", doc.ID), data, s.ttl); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

// Document returns a copy of a stored document
func (s *CacheDocuments) Document(_ context.Context, id string) (*model.Document, error) {
	data, ok := s.cache.Get(cache.Key("doc", id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}

// Segment resolves a segment id to its metadata and content
func (s *CacheDocuments) Segment(ctx context.Context, segmentID string) (model.Segment, string, error) {
	docID, ok := DocumentIDOf(segmentID)
	if !ok {
		return model.Segment{}, "", fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}

	doc, err := s.Document(ctx, docID)
	if err != nil {
		return model.Segment{}, "", err
	}

	seg, ok := doc.Segment(segmentID)
	if !ok {
		return model.Segment{}, "", fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	return seg, doc.Contents[segmentID], nil
}

// SegmentID formats the id of the index-th segment of a document
func SegmentID(docID string, index int) string {
	return fmt.Sprintf("%s-s%d", docID, index)
}

// DocumentIDOf extracts the document id from a segment id
func DocumentIDOf(segmentID string) (string, bool) {
	idx := strings.LastIndex(segmentID, "-s")
	if idx <= 0 {
		return "", false
	}
	return segmentID[:idx], true
}
