package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived reports",
	Long: `Browse reports persisted to the local archive. Reports are archived
when store.archive is enabled in the config or --archive is passed to
analyze or batch.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reports, closer, err := openReports(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		rows, err := reports.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No archived reports.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DOCUMENT\tCREATED\tSTATE\tSEGMENTS\tMEAN\tSUMMARY")
		for _, r := range rows {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
				r.DocumentID, r.CreatedAt.Format("2006-01-02 15:04"), r.State, r.Segments, r.MeanScore, r.Summary)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Print an archived report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reports, closer, err := openReports(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		report, err := reports.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every archived report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reports, closer, err := openReports(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		if err := reports.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear archive: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Archive cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum reports to list")
}
