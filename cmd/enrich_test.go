package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/progress"
	"github.com/sells-group/postal-enrich/internal/sheet"
)

func TestRunStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.RunStatus
	}{
		{"clean", nil, model.RunStatusComplete},
		{"save aborted", eris.Wrap(sheet.ErrSaveAborted, "merge"), model.RunStatusAborted},
		{"cancelled", eris.Wrap(context.Canceled, "run"), model.RunStatusAborted},
		{"other", errors.New("disk on fire"), model.RunStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runStatusFor(tt.err))
		})
	}
}

func TestConsole_Handle(t *testing.T) {
	var out bytes.Buffer
	con := newConsole(&out, strings.NewReader(""), false)

	con.handle(progress.Event{Kind: progress.KindProgress, Index: 1, Total: 3, Percent: progress.Percent(1, 3)})
	con.handle(progress.Event{
		Kind:    progress.KindLog,
		Time:    time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC),
		Level:   zapcore.WarnLevel,
		Message: "got no emails",
	})
	con.handle(progress.Event{Kind: progress.KindCompletion})
	con.handle(progress.Event{Kind: progress.KindCompletion, Err: errors.New("boom")})

	output := out.String()
	assert.Contains(t, output, "33.33% (1/3)")
	assert.Contains(t, output, "09:05:00  WARN  got no emails")
	assert.Contains(t, output, "Run complete.")
	assert.Contains(t, output, "Run stopped: boom")
}

func TestConsole_Ask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		noPrompt bool
		want     progress.Decision
	}{
		{"yes", "y\n", false, progress.DecisionRetry},
		{"retry word", " Retry \n", false, progress.DecisionRetry},
		{"no", "n\n", false, progress.DecisionAbort},
		{"empty line", "\n", false, progress.DecisionAbort},
		{"eof", "", false, progress.DecisionAbort},
		{"yes without newline", "yes", false, progress.DecisionRetry},
		{"no prompt ignores input", "y\n", true, progress.DecisionAbort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			con := newConsole(&out, strings.NewReader(tt.input), tt.noPrompt)
			assert.Equal(t, tt.want, con.ask("could not save"))
			assert.Contains(t, out.String(), "could not save")
			assert.Contains(t, out.String(), "Retry? [y/N]")
		})
	}
}

func TestConsole_AnswersPrompt(t *testing.T) {
	sink := progress.NewChannelSink(1)
	con := newConsole(&bytes.Buffer{}, strings.NewReader("y\n"), false)

	done := make(chan error, 1)
	go func() {
		done <- progress.Drain(sink.Events(), con.handle)
	}()

	decision := sink.Ask(context.Background(), "save failed")
	sink.Close()

	assert.Equal(t, progress.DecisionRetry, decision)
	require.NoError(t, <-done)
}

func TestPrintDryRun(t *testing.T) {
	var out bytes.Buffer
	printDryRun(&out, "in.xlsx", "email_list(2).xlsx", []model.InputRecord{
		{FirstName: "Jane", LastName: "Doe", Street: "1 Main St", ZIP: "62701"},
	})

	output := out.String()
	assert.Contains(t, output, "in.xlsx")
	assert.Contains(t, output, "email_list(2).xlsx")
	assert.Contains(t, output, "Records:     1")
	assert.Contains(t, output, "1. Jane Doe, 1 Main St, 62701")
}

func writeInputSheet(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sh.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))
}

func TestEnrichCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	input := filepath.Join(dir, "leads.xlsx")
	writeInputSheet(t, input, [][]string{
		{"FIRST_NAME", "LAST_NAME", "ADDRESS", "CITY", "STATE", "ZIP"},
		{"Jane", "Doe", "1 Main St", "Springfield", "IL", "62701"},
		{"John", "Roe", "2 Oak Ave", "Boston", "MA", "2134"},
		{"Ann", "Poe", "3 Elm Rd", "Austin", "TX", "73301"},
	})
	// An existing default destination pushes the run to the next free name.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "email_list.xlsx"), []byte("x"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"enrich", "--input", input, "--dry-run", "--limit", "2"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	output := out.String()
	assert.Contains(t, output, "Records:     2")
	assert.Contains(t, output, "email_list(1).xlsx")
	assert.Contains(t, output, "Jane Doe, 1 Main St, 62701")
	assert.Contains(t, output, "John Roe, 2 Oak Ave, 02134")
	assert.NotContains(t, output, "Ann Poe")
}
