package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outJSON     string
	outMD       string
	timeout     time.Duration
	llmProvider string
	llmModel    string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url|->",
	Short: "Analyze one document and write its report",
	Long: `Analyze splits a document into typed segments and, for each segment:
- measures token predictability and perturbation curvature
- tests prose and LaTeX for a statistical watermark
- combines the signals into a length-adjusted likelihood score

It then audits the document's citations (URLs, DOIs, \cite keys) and
scans code segments for security issues.

Example:
  attributa analyze essay.md
  attributa analyze https://example.com/post --md report.md
  cat draft.txt | attributa analyze - --json -
  attributa analyze paper.tex --concurrency 4 --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path (- for stdout, empty to skip)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout")
	addAnalysisFlags(analyzeCmd)

	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "narrative provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "narrative model name")
	_ = viper.BindPFlag("llm.provider", analyzeCmd.Flags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", analyzeCmd.Flags().Lookup("llm-model"))
}

// addAnalysisFlags registers the flags shared by analyze and batch
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Int("segment-concurrency", 1, "segments analyzed in parallel (1 = sequential)")
	cmd.Flags().Bool("watermark", true, "run watermark analysis on prose and LaTeX")
	cmd.Flags().String("analyzer", "local", "segment analyzer (local, remote)")
	cmd.Flags().Bool("archive", false, "persist reports to the local history archive")
	cmd.Flags().Bool("no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().Bool("no-cache", false, "disable the registry response cache")
	cmd.Flags().Bool("no-links", false, "skip URL reachability checks")
}

// bindAnalysisFlags points the shared flags at the viper keys of the
// command being run; flags are per command so binding happens at run time
func bindAnalysisFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("analysis.concurrency", cmd.Flags().Lookup("segment-concurrency"))
	_ = viper.BindPFlag("analysis.watermark", cmd.Flags().Lookup("watermark"))
	_ = viper.BindPFlag("analysis.analyzer", cmd.Flags().Lookup("analyzer"))
	_ = viper.BindPFlag("store.archive", cmd.Flags().Lookup("archive"))

	if noFooter, _ := cmd.Flags().GetBool("no-footer"); noFooter {
		viper.Set("output.include_footer", false)
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		viper.Set("cache.enabled", false)
	}
	if noLinks, _ := cmd.Flags().GetBool("no-links"); noLinks {
		viper.Set("audit.validate_links", false)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]
	bindAnalysisFlags(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(cfg, appOptions{stdin: cmd.InOrStdin()})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Analyzer:  %s (watermark %v, concurrency %d)\n", cfg.Analysis.Analyzer, cfg.Analysis.Watermark, cfg.Analysis.Concurrency)
		fmt.Fprintln(os.Stderr)
	}

	report, err := a.orchestrator.AnalyzeSource(ctx, source)
	if err != nil && report == nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if rerr := a.renderer.WriteOutputs(os.Stderr, report, outJSON, outMD, cfg.Output.Verbose); rerr != nil {
		return fmt.Errorf("render failed: %w", rerr)
	}
	if err != nil {
		return fmt.Errorf("analysis incomplete: %w", err)
	}
	return nil
}
