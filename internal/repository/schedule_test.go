package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/monthroster/internal/database"
	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/source"
	"github.com/paiban/monthroster/pkg/stats"
	"github.com/paiban/monthroster/pkg/validator"
)

func newRepo(t *testing.T) *ScheduleRepository {
	t.Helper()
	db, err := database.Open("sqlite3", filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewScheduleRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func sampleOutput(runID, month string, valid bool) *source.Output {
	out := &source.Output{
		RunID: runID,
		Month: month,
		Valid: valid,
		Staff: []model.Staff{{ID: "S1", Name: "张三"}, {ID: "S2", Name: "李四"}},
		Dates: []string{month + "-01", month + "-02"},
		Cells: map[string]map[string]string{
			"S1": {month + "-01": "D", month + "-02": "OFF"},
			"S2": {month + "-01": "LV", month + "-02": "D"},
		},
		Summaries: []stats.StaffSummary{
			{StaffID: "S1", Name: "张三", TargetHours: 8, Hours: 8, RestDays: 1},
			{StaffID: "S2", Name: "李四", TargetHours: 8, Hours: 8, OnCallShifts: 1},
		},
		Coverage: &stats.CoverageMetrics{OverallCoverage: 100},
		Fairness: &stats.FairnessMetrics{WorkloadGini: 0.02},
	}
	if !valid {
		out.Violations = []validator.Violation{{Type: validator.ViolationUnderStaffed, Message: "人手不足"}}
	}
	return out
}

func TestScheduleRepository_WriteAndLoad(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, sampleOutput("run-1", "2025-09", true)))

	run, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-09", run.Month)
	assert.True(t, run.Valid)
	assert.Equal(t, 2, run.StaffCount)
	assert.Equal(t, 100.0, run.Coverage)
	assert.InDelta(t, 0.02, run.WorkloadGini, 1e-9)

	out, err := repo.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "LV", out.Cell("S2", "2025-09-01"))
	assert.Len(t, out.Summaries, 2)

	cells, err := repo.Cells(ctx, "run-1", "S1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2025-09-01": "D", "2025-09-02": "OFF"}, cells)
}

func TestScheduleRepository_Overwrite(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, sampleOutput("run-1", "2025-09", false)))
	out := sampleOutput("run-1", "2025-09", true)
	out.Cells["S1"]["2025-09-02"] = "N"
	require.NoError(t, repo.Write(ctx, out), "同一 run_id 覆盖写入")

	run, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, run.Valid)
	assert.Zero(t, run.ViolationCount)

	cells, err := repo.Cells(ctx, "run-1", "S1")
	require.NoError(t, err)
	assert.Equal(t, "N", cells["2025-09-02"])
}

func TestScheduleRepository_ListAndLatest(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	require.NoError(t, repo.Write(ctx, sampleOutput("a", "2025-09", false)))
	require.NoError(t, repo.Write(ctx, sampleOutput("b", "2025-09", true)))
	require.NoError(t, repo.Write(ctx, sampleOutput("c", "2025-10", true)))

	latest, err := repo.LatestByMonth(ctx, "2025-09")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)

	tests := []struct {
		name   string
		filter ListFilter
		ids    []string
		total  int
	}{
		{"全部", DefaultListFilter(), []string{"c", "b", "a"}, 3},
		{"按月份", DefaultListFilter().WithMonth("2025-09"), []string{"b", "a"}, 2},
		{"仅有效", ListFilter{ValidOnly: true}, []string{"c", "b"}, 2},
		{"分页", DefaultListFilter().WithLimit(1).WithOffset(1), []string{"b"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestScheduleRepository_NotFound(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetRun(ctx, "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	_, err = repo.Load(ctx, "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	_, err = repo.LatestByMonth(ctx, "2030-01")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestScheduleRepository_Delete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, sampleOutput("run-1", "2025-09", true)))
	require.NoError(t, repo.Delete(ctx, "run-1"))

	_, err := repo.GetRun(ctx, "run-1")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
	cells, err := repo.Cells(ctx, "run-1", "S1")
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestScheduleRepository_WriteNil(t *testing.T) {
	repo := newRepo(t)
	err := repo.Write(context.Background(), nil)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}
