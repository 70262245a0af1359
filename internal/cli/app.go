package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/ppiankov/attributa/internal/analyze"
	"github.com/ppiankov/attributa/internal/audit"
	"github.com/ppiankov/attributa/internal/cache"
	"github.com/ppiankov/attributa/internal/ingest"
	"github.com/ppiankov/attributa/internal/llm"
	"github.com/ppiankov/attributa/internal/log"
	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/pipeline"
	"github.com/ppiankov/attributa/internal/score"
	"github.com/ppiankov/attributa/internal/store"
	"github.com/ppiankov/attributa/internal/util"
	"github.com/ppiankov/attributa/internal/validate"
	"github.com/ppiankov/attributa/internal/worker"
)

// app holds the wired collaborators for one command invocation
type app struct {
	cfg          *model.Config
	logger       *slog.Logger
	orchestrator *pipeline.Orchestrator
	reports      store.ReportRepository
	renderer     *pipeline.Renderer
	closers      []io.Closer
}

// appOptions adjust wiring per command
type appOptions struct {
	offline bool // No outbound requests from the audits
	stdin   io.Reader
}

// viperWeights reads the weight table on every run so edits to the
// config between batch items take effect
type viperWeights struct{}

func (viperWeights) Weights(context.Context) (model.Weights, error) {
	var w model.Weights
	if err := viper.UnmarshalKey("weights", &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	w = canonicalWeights(w)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// newApp wires every collaborator from cfg
func newApp(cfg *model.Config, opts appOptions) (*app, error) {
	logger := log.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	a := &app{cfg: cfg, logger: logger, renderer: pipeline.NewRenderer(cfg.Output.IncludeFooter)}

	docs := store.NewMemoryDocuments(cfg.Store.ReportTTL)
	limiter := worker.NewLimiter(cfg.Analysis.RequestsPerSecond, cfg.Analysis.BurstSize)
	client := util.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	deps := pipeline.Deps{
		Documents: docs,
		Scorer:    score.NewAggregator(),
		Weights:   viperWeights{},
		Ingestor:  ingest.NewIngestor(),
		Loader:    ingest.NewLoader(ingest.NewFetcher(cfg.HTTP), opts.stdin),
		Logger:    logger,
	}

	// 1. Segment analyzers
	switch cfg.Analysis.Analyzer {
	case "remote":
		remote, err := analyze.NewRemote(docs, analyze.RemoteOptions{
			BaseURL:   cfg.Analysis.RemoteURL,
			APIKey:    cfg.Analysis.RemoteAPIKey,
			UserAgent: cfg.HTTP.UserAgent,
			Client:    client,
			Limiter:   limiter,
		})
		if err != nil {
			return nil, err
		}
		deps.Text = remote
		deps.Watermark = remote
	case "", "local":
		deps.Text = analyze.NewHeuristic(docs, analyze.HeuristicOptions{
			TailRank:      cfg.Analysis.TailRank,
			Perturbations: cfg.Analysis.Perturbations,
		})
		deps.Watermark = analyze.NewGreenList(docs, cfg.Analysis.WatermarkGamma, "")
	default:
		return nil, fmt.Errorf("unknown analyzer %q (supported: local, remote)", cfg.Analysis.Analyzer)
	}

	// 2. Document audits
	if cfg.Audit.Citations {
		var (
			validator audit.URLValidator
			resolver  audit.DOIResolver
		)
		if !opts.offline {
			if cfg.Audit.ValidateLinks {
				validator = validate.NewValidator(validate.Options{
					Timeout:    cfg.Audit.Timeout,
					Workers:    cfg.Audit.ValidationWorkers,
					UserAgent:  cfg.HTTP.UserAgent,
					HTTPProxy:  cfg.HTTP.HTTPProxy,
					HTTPSProxy: cfg.HTTP.HTTPSProxy,
					NoProxy:    cfg.HTTP.NoProxy,
					Authority:  &cfg.Authority,
					Limiter:    limiter,
				})
			}
			resolver = audit.NewCrossref(audit.CrossrefOptions{
				BaseURL:   cfg.Audit.CrossrefURL,
				Mailto:    cfg.Audit.Mailto,
				UserAgent: cfg.HTTP.UserAgent,
				Client:    client,
				Limiter:   limiter,
				Cache:     registryCache(cfg.Cache),
				CacheTTL:  cfg.Cache.DiskTTL,
			})
		}
		authority := validate.NewAuthorityClassifier(&cfg.Authority)
		deps.Citations = audit.NewCitations(docs, validator, resolver, authority, logger)
	}
	if cfg.Audit.Code {
		deps.Code = audit.NewCode(docs, nil)
	}

	// 3. Report repository
	if cfg.Store.Archive {
		path := cfg.Store.Path
		if path == "" {
			p, err := store.DefaultArchivePath()
			if err != nil {
				return nil, fmt.Errorf("archive path: %w", err)
			}
			path = p
		}
		archive, err := store.OpenSQLiteReports(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, archive)
		deps.Reports = archive
	} else {
		deps.Reports = store.NewMemoryReports(cfg.Store.ReportTTL)
	}
	a.reports = deps.Reports

	// 4. Optional narrative, never fatal
	if cfg.LLM.Provider != "" && !opts.offline {
		summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), logger)
		if err != nil {
			logger.Warn("narrative disabled", "provider", cfg.LLM.Provider, "error", err)
		} else if summarizer.IsEnabled() {
			deps.Narrator = summarizer
		}
	}

	orch, err := pipeline.New(deps, pipeline.Options{
		Watermark:          cfg.Analysis.Watermark,
		Concurrency:        cfg.Analysis.Concurrency,
		SegmentTimeout:     cfg.Analysis.SegmentTimeout,
		TargetSegmentChars: cfg.Analysis.TargetSegmentChars,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.orchestrator = orch
	return a, nil
}

// openReports opens only the report repository, for history commands
func openReports(cfg *model.Config) (store.ReportRepository, io.Closer, error) {
	if !cfg.Store.Archive && cfg.Store.Path == "" {
		return nil, nil, errors.New("history needs the archive: set store.archive: true in the config")
	}
	path := cfg.Store.Path
	if path == "" {
		p, err := store.DefaultArchivePath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	archive, err := store.OpenSQLiteReports(path)
	if err != nil {
		return nil, nil, err
	}
	return archive, archive, nil
}

// registryCache returns the response cache for registry lookups, or nil
func registryCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = cache.DefaultDir()
	}
	return cache.New(cfg.MemoryTTL, dir, cfg.DiskTTL)
}

// Close releases the archive and any other held resources
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
