// Package pipeline runs an ingested document through segment analysis,
// scoring, and the document-level audits, producing a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/attributa/internal/analyze"
	"github.com/ppiankov/attributa/internal/audit"
	"github.com/ppiankov/attributa/internal/ingest"
	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/score"
	"github.com/ppiankov/attributa/internal/store"
)

// Processing steps, used as the "step" log attribute
const (
	StepText      = "text"
	StepWatermark = "watermark"
	StepScore     = "score"
	StepCitations = "citations"
	StepCode      = "code"
	StepNarrative = "narrative"
)

// ErrMissingDependency is returned by New when a required collaborator is nil
var ErrMissingDependency = errors.New("missing orchestrator dependency")

// WeightSource supplies the weight configuration at call time
type WeightSource interface {
	Weights(ctx context.Context) (model.Weights, error)
}

// StaticWeights is a WeightSource that always returns the same weights
type StaticWeights model.Weights

// Weights returns a copy of w
func (w StaticWeights) Weights(context.Context) (model.Weights, error) {
	return model.Weights(w).Clone(), nil
}

// Narrator adds an optional narrative to a finished report
type Narrator interface {
	GenerateSummary(ctx context.Context, report model.Report) *model.NarrativeSummary
}

// Deps are the orchestrator's collaborators. Citations, Code, Narrator,
// Ingestor, and Loader are optional.
type Deps struct {
	Documents store.DocumentStore
	Text      analyze.TextAnalyzer
	Watermark analyze.WatermarkAnalyzer
	Scorer    score.Scorer
	Citations audit.CitationAuditor
	Code      audit.CodeAuditor
	Reports   store.ReportRepository
	Weights   WeightSource
	Narrator  Narrator
	Ingestor  *ingest.Ingestor
	Loader    *ingest.Loader
	Logger    *slog.Logger
}

// Options tune a run
type Options struct {
	Watermark          bool          // Run watermark analysis on prose and latex segments
	Concurrency        int           // <= 1 processes segments sequentially
	SegmentTimeout     time.Duration // Bound on each analyzer call; 0 = none
	TargetSegmentChars int           // Passed to ingestion
}

// Orchestrator drives one document through the report state machine
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New validates deps and creates an orchestrator
func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Documents == nil:
		return nil, fmt.Errorf("%w: document store", ErrMissingDependency)
	case deps.Text == nil:
		return nil, fmt.Errorf("%w: text analyzer", ErrMissingDependency)
	case deps.Scorer == nil:
		return nil, fmt.Errorf("%w: scorer", ErrMissingDependency)
	case deps.Reports == nil:
		return nil, fmt.Errorf("%w: report repository", ErrMissingDependency)
	case opts.Watermark && deps.Watermark == nil:
		return nil, fmt.Errorf("%w: watermark analyzer", ErrMissingDependency)
	}
	if deps.Weights == nil {
		deps.Weights = StaticWeights(model.DefaultWeights())
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}, nil
}

// AnalyzeSource loads a file, URL, or "-" and analyzes it
func (o *Orchestrator) AnalyzeSource(ctx context.Context, source string) (*model.Report, error) {
	if o.deps.Loader == nil {
		return nil, fmt.Errorf("%w: loader", ErrMissingDependency)
	}
	content, opts, err := o.deps.Loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return o.AnalyzeContent(ctx, content, opts)
}

// AnalyzeContent ingests raw content, stores the document, and runs it
func (o *Orchestrator) AnalyzeContent(ctx context.Context, content string, opts ingest.Options) (*model.Report, error) {
	if o.deps.Ingestor == nil {
		return nil, fmt.Errorf("%w: ingestor", ErrMissingDependency)
	}
	if opts.TargetSegmentChars == 0 {
		opts.TargetSegmentChars = o.opts.TargetSegmentChars
	}

	doc, err := o.deps.Ingestor.Ingest(ctx, content, opts)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if err := o.deps.Documents.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return o.Run(ctx, doc)
}

// Run analyzes a stored document. Analyzer, scorer, and auditor failures
// degrade the report without failing the run; only cancellation and
// repository errors are returned.
func (o *Orchestrator) Run(ctx context.Context, doc *model.Document) (*model.Report, error) {
	report := model.NewReport(doc)
	logger := o.logger.With("document_id", doc.ID)

	if err := o.deps.Reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	weights, err := o.deps.Weights.Weights(ctx)
	if err != nil {
		logger.Warn("weight source failed, using defaults", "error", err)
		weights = model.DefaultWeights()
	}
	report.Weights = weights

	if err := report.Advance(model.StateAnalyzing); err != nil {
		return nil, err
	}
	logger.Debug("analyzing segments", "segments", len(report.Segments), "concurrency", o.opts.Concurrency)

	if o.opts.Concurrency > 1 {
		err = o.analyzeConcurrent(ctx, report, weights, logger)
	} else {
		err = o.analyzeSequential(ctx, report, weights, logger)
	}
	if err != nil {
		return o.abandon(ctx, report, err)
	}

	if err := report.Advance(model.StateSegmentComplete); err != nil {
		return nil, err
	}
	if err := report.Advance(model.StateAuditing); err != nil {
		return nil, err
	}

	o.runAudits(ctx, report, logger)
	if ctx.Err() != nil {
		return o.abandon(ctx, report, ctx.Err())
	}

	if o.deps.Narrator != nil {
		if n := o.deps.Narrator.GenerateSummary(ctx, *report); n != nil {
			for _, w := range n.Warnings {
				logger.Debug("narrative note", "step", StepNarrative, "note", w)
			}
			report.Narrative = n
		}
	}

	if err := report.Advance(model.StateFinal); err != nil {
		return nil, err
	}
	if err := o.deps.Reports.Save(ctx, report); err != nil {
		return report, fmt.Errorf("save report: %w", err)
	}
	logger.Info("report final", "mean_score", report.MeanScore(), "fallbacks", report.FallbackCount())
	return report, nil
}

// abandon moves the report to cancelled and persists it even though ctx is done
func (o *Orchestrator) abandon(ctx context.Context, report *model.Report, cause error) (*model.Report, error) {
	if !report.State.Terminal() {
		report.State = model.StateCancelled
	}
	if err := o.deps.Reports.Save(context.WithoutCancel(ctx), report); err != nil {
		o.logger.Warn("save cancelled report", "document_id", report.DocumentID, "error", err)
	}
	return report, fmt.Errorf("analysis cancelled: %w", cause)
}

type segmentResult struct {
	index  int
	id     string
	bundle model.SignalBundle
	score  model.Score
}

func (o *Orchestrator) analyzeSequential(ctx context.Context, report *model.Report, weights model.Weights, logger *slog.Logger) error {
	for i, seg := range report.Segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := o.analyzeSegment(ctx, i, seg, weights, logger)
		if err != nil {
			return err
		}
		if err := apply(report, res); err != nil {
			return err
		}
	}
	return nil
}

// analyzeConcurrent fans segments out to a bounded group; a single writer
// applies results to the report in segment order
func (o *Orchestrator) analyzeConcurrent(ctx context.Context, report *model.Report, weights model.Weights, logger *slog.Logger) error {
	segments := report.Segments
	results := make(chan segmentResult)
	written := make(chan error, 1)

	go func() {
		pending := make(map[int]segmentResult)
		next := 0
		var werr error
		for res := range results {
			pending[res.index] = res
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if werr == nil {
					werr = apply(report, r)
				}
				next++
			}
		}
		written <- werr
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := o.analyzeSegment(gctx, i, seg, weights, logger)
			if err != nil {
				return err
			}
			select {
			case results <- res:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	werr := <-written

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return werr
}

func apply(report *model.Report, res segmentResult) error {
	if err := report.SetSignals(res.id, res.bundle); err != nil {
		return err
	}
	return report.SetScore(res.id, res.score)
}

// analyzeSegment produces the bundle and score for one segment. Collaborator
// failures are absorbed; only cancellation of ctx is returned.
func (o *Orchestrator) analyzeSegment(ctx context.Context, index int, seg model.Segment, weights model.Weights, logger *slog.Logger) (segmentResult, error) {
	log := logger.With("segment_id", seg.ID)

	var bundle model.SignalBundle
	text, err := withTimeout(ctx, o.opts.SegmentTimeout, func(c context.Context) (model.TextSignals, error) {
		return o.deps.Text.AnalyzeText(c, seg.ID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return segmentResult{}, ctx.Err()
		}
		log.Warn("text analysis failed, using fallback signals", "step", StepText, "error", err)
		bundle = model.FallbackBundle()
	} else {
		bundle = model.BundleFromText(text)
	}

	if o.opts.Watermark && seg.Type.QualifiesForWatermark() {
		wm, err := withTimeout(ctx, o.opts.SegmentTimeout, func(c context.Context) (model.WatermarkSignal, error) {
			return o.deps.Watermark.AnalyzeWatermark(c, seg.ID)
		})
		if err != nil {
			if ctx.Err() != nil {
				return segmentResult{}, ctx.Err()
			}
			log.Warn("watermark analysis failed, omitting signal", "step", StepWatermark, "error", err)
		} else {
			bundle.Watermark = &wm
		}
	}

	// The scorer is local; an expired analyzer deadline must not degrade it.
	sc, err := o.deps.Scorer.Compute(ctx, bundle, seg.Length, seg.Type, weights)
	if err != nil {
		if ctx.Err() != nil {
			return segmentResult{}, ctx.Err()
		}
		log.Warn("score computation failed, storing neutral score", "step", StepScore, "error", err)
		sc = neutralScore(seg.Length)
	}

	return segmentResult{index: index, id: seg.ID, bundle: bundle, score: sc}, nil
}

// withTimeout runs one collaborator call under its own deadline derived from ctx
func withTimeout[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(callCtx)
}

// neutralScore is the degraded score stored when the scorer fails
func neutralScore(length int) model.Score {
	sc := model.NeutralScore()
	sc.LengthFactor = score.LengthFactor(length)
	sc.Confidence = sc.LengthFactor
	sc.ConfidenceLevel = score.ConfidenceLevel(length)
	return sc
}

// runAudits invokes each applicable auditor once, concurrently, each in
// its own failure boundary
func (o *Orchestrator) runAudits(ctx context.Context, report *model.Report, logger *slog.Logger) {
	var hasText, hasCode bool
	for _, s := range report.Segments {
		if s.Type.QualifiesForCitations() {
			hasText = true
		}
		if s.Type == model.ContentCode {
			hasCode = true
		}
	}

	report.CitationAudit = model.AuditResult{Status: model.AuditNotApplicable}
	report.CodeAudit = model.AuditResult{Status: model.AuditNotApplicable}

	var (
		g         errgroup.Group
		citations = []model.CitationFinding{}
		findings  = []model.CodeFinding{}
		citeRes   = report.CitationAudit
		codeRes   = report.CodeAudit
	)

	if hasText && o.deps.Citations != nil {
		g.Go(func() error {
			citations, citeRes = guard(logger, StepCitations, func() ([]model.CitationFinding, error) {
				return o.deps.Citations.AuditCitations(ctx, report.DocumentID)
			})
			return nil
		})
	}
	if hasCode && o.deps.Code != nil {
		g.Go(func() error {
			findings, codeRes = guard(logger, StepCode, func() ([]model.CodeFinding, error) {
				return o.deps.Code.AuditCode(ctx, report.DocumentID)
			})
			return nil
		})
	}
	_ = g.Wait()

	report.Citations = citations
	report.CodeFindings = findings
	report.CitationAudit = citeRes
	report.CodeAudit = codeRes
}

// guard runs one audit, converting errors and panics into a failed status
// with an empty result list
func guard[T any](logger *slog.Logger, step string, fn func() ([]T, error)) (out []T, res model.AuditResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("audit panicked", "step", step, "panic", r)
			out = []T{}
			res = model.AuditResult{Status: model.AuditFailed, Error: fmt.Sprint(r)}
		}
	}()

	items, err := fn()
	if err != nil {
		logger.Warn("audit failed", "step", step, "error", err)
		return []T{}, model.AuditResult{Status: model.AuditFailed, Error: err.Error()}
	}
	if items == nil {
		items = []T{}
	}
	return items, model.AuditResult{Status: model.AuditSucceeded}
}
