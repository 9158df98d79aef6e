package sheet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/progress"
)

// ErrSaveAborted is returned when the operator chose not to retry a failed
// save.
var ErrSaveAborted = eris.New("sheet: save aborted by operator")

// Prompter asks the operator whether to retry a failed save.
type Prompter interface {
	Ask(ctx context.Context, msg string) progress.Decision
}

// Merger owns the destination table of a run.
type Merger struct {
	dest     string
	prompter Prompter
	log      *zap.Logger
	now      func() time.Time
	write    func(path string, rows []model.TableRow) error
}

// NewMerger creates a Merger writing to dest. A nil prompter aborts on the
// first failed save.
func NewMerger(dest string, prompter Prompter, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prompter == nil {
		prompter = progress.Discard{}
	}
	return &Merger{
		dest:     dest,
		prompter: prompter,
		log:      logger.With(zap.String("destination", dest)),
		now:      time.Now,
		write:    WriteTable,
	}
}

// Destination returns the table path.
func (m *Merger) Destination() string {
	return m.dest
}

// Merge reads the current table, appends rows, blanks duplicates and saves.
// The table is re-read on every call because the file may have been edited
// between records. When the read or the save fails the operator is asked to
// retry; the merged rows stay in memory meanwhile. On abort they are written
// to a recovery file and ErrSaveAborted is returned.
func (m *Merger) Merge(ctx context.Context, rows []model.OutputRow) error {
	var existing []model.TableRow
	for {
		var err error
		existing, err = ReadTable(m.dest)
		if err == nil {
			break
		}
		m.log.Error("could not read destination table", zap.Error(err))
		if m.ask(ctx, "read", err) == progress.DecisionAbort {
			m.writeRecovery(MergeRows(nil, rows))
			return eris.Wrapf(ErrSaveAborted, "sheet: read %s", m.dest)
		}
	}

	merged := MergeRows(existing, rows)
	for {
		err := m.write(m.dest, merged)
		if err == nil {
			m.log.Info("saved to excel", zap.Int("rows", len(merged)))
			return nil
		}
		m.log.Error("could not save destination table", zap.Error(err))
		if m.ask(ctx, "save", err) == progress.DecisionAbort {
			m.writeRecovery(merged)
			return eris.Wrapf(ErrSaveAborted, "sheet: save %s", m.dest)
		}
	}
}

func (m *Merger) ask(ctx context.Context, op string, err error) progress.Decision {
	msg := fmt.Sprintf("Could not %s %s: %v. Close the file if it is open and retry, or cancel the run.", op, m.dest, err)
	d := m.prompter.Ask(ctx, msg)
	m.log.Info("operator decision", zap.String("decision", d.String()))
	return d
}

func (m *Merger) writeRecovery(rows []model.TableRow) {
	path := RecoveryPath(m.dest, m.now())
	if err := m.write(path, rows); err != nil {
		m.log.Error("recovery write failed", zap.String("path", path), zap.Error(err))
		return
	}
	m.log.Warn("wrote unsaved rows to recovery file", zap.String("path", path), zap.Int("rows", len(rows)))
}

// RecoveryPath returns "<base>.recovered-<unix>.xlsx" next to dest.
func RecoveryPath(dest string, at time.Time) string {
	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)
	if ext == "" {
		ext = ".xlsx"
	}
	return fmt.Sprintf("%s.recovered-%d%s", base, at.Unix(), ext)
}

// NextAvailablePath returns path if nothing exists there, otherwise the
// first free "name(n).ext" for n = 1, 2, ...
func NextAvailablePath(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", eris.Wrapf(err, "sheet: stat %s", path)
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, n, ext)
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", eris.Wrapf(err, "sheet: stat %s", candidate)
		}
	}
}
