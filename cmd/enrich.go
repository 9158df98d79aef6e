package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/postal-enrich/internal/enrich"
	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/progress"
	"github.com/sells-group/postal-enrich/internal/sheet"
)

const sinkBuffer = 64

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich an input workbook with verified emails",
	Long: "Reads FIRST_NAME, LAST_NAME, STREET and ZIP from the input workbook, resolves every ZIP to " +
		"its USPS city names and merges one row per city into the output workbook after each record.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noPrompt, _ := cmd.Flags().GetBool("no-prompt")

		if err := cfg.Validate("enrich", dryRun); err != nil {
			return err
		}

		records, err := sheet.ReadInput(input)
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		if limit > 0 && limit < len(records) {
			records = records[:limit]
		}

		if output == "" {
			output = cfg.Output.DefaultName
		}
		dest, err := sheet.NextAvailablePath(output)
		if err != nil {
			return eris.Wrap(err, "enrich: choose destination")
		}

		if dryRun {
			printDryRun(cmd.OutOrStdout(), input, dest, records)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, input, dest, len(records))
		if err != nil {
			return eris.Wrap(err, "enrich: create run")
		}

		sink := progress.NewChannelSink(sinkBuffer)
		runLog := zap.New(zapcore.NewTee(logger.Core(), progress.NewCore(sink, zapcore.InfoLevel))).
			With(zap.String("run_id", run.ID))

		merger := sheet.NewMerger(dest, sink, runLog)
		runner := enrich.NewRunner(newProcessor(runLog, st), merger, runLog,
			enrich.WithLedger(st),
			enrich.WithSink(sink),
		)

		con := newConsole(cmd.OutOrStdout(), cmd.InOrStdin(), noPrompt)

		var summary model.RunSummary
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer sink.Close()
			var runErr error
			summary, runErr = runner.Run(gCtx, run.ID, records)
			return runErr
		})
		g.Go(func() error {
			// The completion event carries the same error the runner returns.
			_ = progress.Drain(sink.Events(), con.handle)
			return nil
		})
		runErr := g.Wait()

		status := runStatusFor(runErr)
		if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, status, &summary); err != nil {
			logger.Warn("enrich: failed to finish run", zap.String("run_id", run.ID), zap.Error(err))
		}

		printSummary(cmd.OutOrStdout(), run.ID, dest, status, summary)
		return runErr
	},
}

func init() {
	enrichCmd.Flags().String("input", "", "input workbook (.xlsx)")
	enrichCmd.Flags().String("output", "", "output workbook (default from output.default_name)")
	enrichCmd.Flags().Int("limit", 0, "process at most this many records (0 = all)")
	enrichCmd.Flags().Bool("dry-run", false, "read the input and report the plan without fetching anything")
	enrichCmd.Flags().Bool("no-prompt", false, "abort instead of asking when the output cannot be saved")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

// runStatusFor maps the runner's terminal error to a ledger status.
func runStatusFor(err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunStatusComplete
	case errors.Is(err, sheet.ErrSaveAborted), errors.Is(err, context.Canceled):
		return model.RunStatusAborted
	default:
		return model.RunStatusFailed
	}
}

func printDryRun(out io.Writer, input, dest string, records []model.InputRecord) {
	_, _ = fmt.Fprintf(out, "Input:       %s\n", input)
	_, _ = fmt.Fprintf(out, "Destination: %s\n", dest)
	_, _ = fmt.Fprintf(out, "Records:     %d\n", len(records))
	for i, rec := range records {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, rec.String())
	}
}

func printSummary(out io.Writer, runID, dest string, status model.RunStatus, s model.RunSummary) {
	_, _ = fmt.Fprintf(out, "\nRun %s %s\n", truncateID(runID), status)
	_, _ = fmt.Fprintf(out, "Processed: %d  Succeeded: %d  Failed: %d  Emails: %d\n",
		s.Processed, s.Succeeded, s.Failed, s.Emails)
	_, _ = fmt.Fprintf(out, "Output: %s\n", dest)
}

// console renders sink events on a terminal and answers save prompts from
// the operator's input.
type console struct {
	out      io.Writer
	in       *bufio.Reader
	noPrompt bool
}

func newConsole(out io.Writer, in io.Reader, noPrompt bool) *console {
	return &console{out: out, in: bufio.NewReader(in), noPrompt: noPrompt}
}

func (c *console) handle(ev progress.Event) {
	switch ev.Kind {
	case progress.KindProgress:
		_, _ = fmt.Fprintln(c.out, ev.Label())
	case progress.KindLog:
		_, _ = fmt.Fprintf(c.out, "%s  %-5s %s\n", ev.Time.Format("15:04:05"), strings.ToUpper(ev.Level.String()), ev.Message)
	case progress.KindPrompt:
		ev.Prompt.Answer(c.ask(ev.Message))
	case progress.KindCompletion:
		if ev.Err != nil {
			_, _ = fmt.Fprintf(c.out, "Run stopped: %v\n", ev.Err)
		} else {
			_, _ = fmt.Fprintln(c.out, "Run complete.")
		}
	}
}

func (c *console) ask(msg string) progress.Decision {
	_, _ = fmt.Fprintf(c.out, "%s\nRetry? [y/N]: ", msg)
	if c.noPrompt {
		_, _ = fmt.Fprintln(c.out, "n")
		return progress.DecisionAbort
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return progress.DecisionAbort
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "r", "retry":
		return progress.DecisionRetry
	default:
		return progress.DecisionAbort
	}
}
