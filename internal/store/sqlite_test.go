package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/postal-enrich/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// clock returns a now func that advances one second per call.
func clock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

// --- Runs ---

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "input.xlsx", "output.xlsx", 12)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "input.xlsx", got.Source)
	assert.Equal(t, "output.xlsx", got.Destination)
	assert.Equal(t, 12, got.Total)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_FinishRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "in.xlsx", "out.xlsx", 3)
	require.NoError(t, err)

	summary := &model.RunSummary{Processed: 3, Succeeded: 2, Failed: 1, Emails: 4}
	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunStatusComplete, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *summary, *got.Summary)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), "missing", model.RunStatusFailed, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	st.now = clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := st.CreateRun(ctx, "a.xlsx", "out.xlsx", 1)
	require.NoError(t, err)
	second, err := st.CreateRun(ctx, "b.xlsx", "out.xlsx", 1)
	require.NoError(t, err)
	third, err := st.CreateRun(ctx, "a.xlsx", "out.xlsx", 1)
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, second.ID, model.RunStatusAborted, nil))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	bySource, err := st.ListRuns(ctx, RunFilter{Source: "a.xlsx"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	byStatus, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusAborted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, second.ID, byStatus[0].ID)

	paged, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)
}

// --- Record results ---

func TestSQLite_RecordAndListResults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "in.xlsx", "out.xlsx", 2)
	require.NoError(t, err)

	rec := model.InputRecord{FirstName: "Jane", LastName: "Doe", Street: "1 Main St", ZIP: "62701"}
	second := &model.RecordResult{RunID: run.ID, Index: 1, Record: rec, Status: model.StatusError, Error: "boom", ErrorType: "transient"}
	first := &model.RecordResult{RunID: run.ID, Index: 0, Record: rec, Status: model.StatusSuccess, Cities: 2, Emails: 3, DurationMs: 150}
	require.NoError(t, st.RecordResult(ctx, second))
	require.NoError(t, st.RecordResult(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	results, err := st.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, rec, results[0].Record)
	assert.Equal(t, model.StatusSuccess, results[0].Status)
	assert.Equal(t, 2, results[0].Cities)
	assert.Equal(t, 3, results[0].Emails)
	assert.Equal(t, int64(150), results[0].DurationMs)

	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, model.StatusError, results[1].Status)
	assert.Equal(t, "boom", results[1].Error)
	assert.Equal(t, "transient", results[1].ErrorType)
}

func TestSQLite_ListResults_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	results, err := st.ListResults(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --- City cache ---

func TestSQLite_CityCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedCities(ctx, "62701", []string{"SPRINGFIELD IL", "LELAND GROVE IL"}, time.Hour))

	cc, err := st.GetCachedCities(ctx, "62701")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, "62701", cc.ZIP)
	assert.Equal(t, []string{"SPRINGFIELD IL", "LELAND GROVE IL"}, cc.Cities)
	assert.True(t, cc.ExpiresAt.After(cc.ResolvedAt))
}

func TestSQLite_CityCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	cc, err := st.GetCachedCities(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, cc)
}

func TestSQLite_CityCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	st.now = func() time.Time { return base }
	require.NoError(t, st.SetCachedCities(ctx, "62701", []string{"SPRINGFIELD IL"}, time.Minute))

	st.now = func() time.Time { return base.Add(2 * time.Minute) }
	cc, err := st.GetCachedCities(ctx, "62701")
	require.NoError(t, err)
	assert.Nil(t, cc)
}

func TestSQLite_CityCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedCities(ctx, "62701", []string{"OLD IL"}, time.Hour))
	require.NoError(t, st.SetCachedCities(ctx, "62701", []string{"NEW IL"}, time.Hour))

	cc, err := st.GetCachedCities(ctx, "62701")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, []string{"NEW IL"}, cc.Cities)
}

func TestSQLite_DeleteExpiredCities(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	st.now = func() time.Time { return base }
	require.NoError(t, st.SetCachedCities(ctx, "11111", []string{"A"}, time.Minute))
	require.NoError(t, st.SetCachedCities(ctx, "22222", []string{"B"}, time.Minute))
	require.NoError(t, st.SetCachedCities(ctx, "33333", []string{"C"}, time.Hour))

	st.now = func() time.Time { return base.Add(10 * time.Minute) }
	n, err := st.DeleteExpiredCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cc, err := st.GetCachedCities(ctx, "33333")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, []string{"C"}, cc.Cities)
}
