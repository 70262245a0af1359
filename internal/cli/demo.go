package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/attributa/internal/demo"
	"github.com/ppiankov/attributa/internal/ingest"
)

var demoOnline bool

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo [name]",
	Short: "Analyze the bundled sample documents",
	Long: `Demo runs the bundled sample documents through the full analysis.
With no name every sample runs in turn. Network audits are off unless
--online is set, so the demo works without connectivity.

Samples: ` + strings.Join(demo.Names(), ", ") + `

Example:
  attributa demo
  attributa demo technical --online`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().BoolVar(&demoOnline, "online", false, "check links and DOIs over the network")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	samples, err := demo.Samples()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		s, err := demo.Get(args[0])
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(demo.Names(), ", "))
		}
		samples = []demo.Sample{s}
	}

	a, err := newApp(cfg, appOptions{offline: !demoOnline})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	for i, s := range samples {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintf(out, "── %s: %s\n", s.Name, s.Title)

		report, err := a.orchestrator.AnalyzeContent(ctx, s.Content, ingest.Options{
			Source: "demo:" + s.Name,
			Format: ingest.FormatMarkdown,
		})
		if err != nil {
			_, _ = fmt.Fprintf(out, "✗ %v\n", err)
			if report == nil {
				continue
			}
		}
		a.renderer.RenderSummary(out, report)
	}
	return nil
}
