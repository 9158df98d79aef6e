package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment run history",
	Long:  "Commands for listing and viewing enrichment runs and their per-record results.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs", false); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Source: source,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its per-record results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs", false); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		results, err := st.ListResults(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*model.Run
				Results []model.RecordResult `json:"results"`
			}{run, results})
		}

		formatRunDetail(cmd.OutOrStdout(), run, results)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, aborted, failed)")
	runsListCmd.Flags().String("source", "", "filter by input workbook path")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().Bool("json", false, "print the run as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tRECORDS\tEMAILS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		records := fmt.Sprintf("-/%d", r.Total)
		emails := "-"
		if r.Summary != nil {
			records = fmt.Sprintf("%d/%d", r.Summary.Processed, r.Total)
			emails = fmt.Sprintf("%d", r.Summary.Emails)
		}

		source := r.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			source,
			r.Status,
			records,
			emails,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunDetail writes one run and its record results to w.
func formatRunDetail(out io.Writer, run *model.Run, results []model.RecordResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", run.Status)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", run.Source)
	_, _ = fmt.Fprintf(w, "Destination:\t%s\n", run.Destination)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.Summary != nil {
		s := run.Summary
		_, _ = fmt.Fprintf(w, "Processed:\t%d/%d\n", s.Processed, run.Total)
		_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", s.Succeeded)
		_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
		_, _ = fmt.Fprintf(w, "Emails:\t%d\n", s.Emails)
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "Error:\t%s\n", s.Error)
		}
	}
	_ = w.Flush()

	if len(results) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tRECORD\tSTATUS\tCITIES\tEMAILS\tERROR")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.Index+1, r.Record.String(), r.Status, r.Cities, r.Emails, r.ErrorType)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
