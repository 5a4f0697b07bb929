package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/source"
)

// Schema 排班结果表结构，PostgreSQL 与 SQLite 通用
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS roster_runs (
		id              TEXT PRIMARY KEY,
		month           TEXT NOT NULL,
		valid           BOOLEAN NOT NULL,
		staff_count     INTEGER NOT NULL,
		violation_count INTEGER NOT NULL,
		coverage        DOUBLE PRECISION NOT NULL,
		workload_gini   DOUBLE PRECISION NOT NULL,
		payload         TEXT NOT NULL,
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_roster_runs_month ON roster_runs (month, created_at)`,
	`CREATE TABLE IF NOT EXISTS roster_cells (
		run_id   TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		date     TEXT NOT NULL,
		code     TEXT NOT NULL,
		PRIMARY KEY (run_id, staff_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS roster_summaries (
		run_id         TEXT NOT NULL,
		staff_id       TEXT NOT NULL,
		name           TEXT NOT NULL,
		target_hours   DOUBLE PRECISION NOT NULL,
		hours          DOUBLE PRECISION NOT NULL,
		deviation      DOUBLE PRECISION NOT NULL,
		rest_days      INTEGER NOT NULL,
		weekend_shifts INTEGER NOT NULL,
		on_call_shifts INTEGER NOT NULL,
		PRIMARY KEY (run_id, staff_id)
	)`,
}

// RunRecord 一次排班运行的概要
type RunRecord struct {
	ID             string    `json:"id"`
	Month          string    `json:"month"`
	Valid          bool      `json:"valid"`
	StaffCount     int       `json:"staff_count"`
	ViolationCount int       `json:"violation_count"`
	Coverage       float64   `json:"coverage"`
	WorkloadGini   float64   `json:"workload_gini"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScheduleRepository 排班结果仓储，同时是引擎的输出端
type ScheduleRepository struct {
	db  TxDB
	now func() time.Time
}

var _ source.OutputSink = (*ScheduleRepository)(nil)

// NewScheduleRepository 创建排班仓储
func NewScheduleRepository(db TxDB) *ScheduleRepository {
	return &ScheduleRepository{db: db, now: time.Now}
}

// Migrate 建表
func (r *ScheduleRepository) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建排班结果表失败")
		}
	}
	return nil
}

// Write 保存一次运行的完整结果，同一 run_id 重复写入时覆盖
func (r *ScheduleRepository) Write(ctx context.Context, out *source.Output) error {
	if out == nil {
		return apperrors.New(apperrors.CodeInvalidInput, "输出为空")
	}
	if out.RunID == "" {
		out.RunID = uuid.NewString()
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "序列化排班结果失败")
	}

	var coverage, gini float64
	if out.Coverage != nil {
		coverage = out.Coverage.OverallCoverage
	}
	if out.Fairness != nil {
		gini = out.Fairness.WorkloadGini
	}

	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := deleteRun(ctx, tx, out.RunID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO roster_runs (
				id, month, valid, staff_count, violation_count,
				coverage, workload_gini, payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			out.RunID, out.Month, out.Valid, len(out.Staff), len(out.Violations),
			coverage, gini, string(payload), r.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("写入运行记录失败: %w", err)
		}

		cellStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO roster_cells (run_id, staff_id, date, code) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("准备单元格语句失败: %w", err)
		}
		defer cellStmt.Close()

		for _, st := range out.Staff {
			for _, date := range out.Dates {
				code := out.Cells[st.ID][date]
				if code == "" {
					continue
				}
				if _, err := cellStmt.ExecContext(ctx, out.RunID, st.ID, date, code); err != nil {
					return fmt.Errorf("写入单元格 %s/%s 失败: %w", st.ID, date, err)
				}
			}
		}

		for _, sum := range out.Summaries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO roster_summaries (
					run_id, staff_id, name, target_hours, hours, deviation,
					rest_days, weekend_shifts, on_call_shifts
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				out.RunID, sum.StaffID, sum.Name, sum.TargetHours, sum.Hours, sum.Deviation,
				sum.RestDays, sum.WeekendShifts, sum.OnCallShifts,
			)
			if err != nil {
				return fmt.Errorf("写入员工汇总 %s 失败: %w", sum.StaffID, err)
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存排班结果失败")
	}
	return nil
}

// GetRun 获取运行概要
func (r *ScheduleRepository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, month, valid, staff_count, violation_count, coverage, workload_gini, created_at
		FROM roster_runs WHERE id = $1`, runID)
	return scanRun(row, runID)
}

// LatestByMonth 获取某月最近一次运行
func (r *ScheduleRepository) LatestByMonth(ctx context.Context, month string) (*RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, month, valid, staff_count, violation_count, coverage, workload_gini, created_at
		FROM roster_runs WHERE month = $1
		ORDER BY created_at DESC LIMIT 1`, month)
	return scanRun(row, month)
}

// Load 读取完整输出
func (r *ScheduleRepository) Load(ctx context.Context, runID string) (*source.Output, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM roster_runs WHERE id = $1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("排班结果", runID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取排班结果失败")
	}

	var out source.Output
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "解析排班结果失败")
	}
	return &out, nil
}

// Cells 读取某员工的逐日班次
func (r *ScheduleRepository) Cells(ctx context.Context, runID, staffID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, code FROM roster_cells
		WHERE run_id = $1 AND staff_id = $2
		ORDER BY date`, runID, staffID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询单元格失败")
	}
	defer rows.Close()

	cells := make(map[string]string)
	for rows.Next() {
		var date, code string
		if err := rows.Scan(&date, &code); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描单元格失败")
		}
		cells[date] = code
	}
	return cells, rows.Err()
}

// List 列出运行记录
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]*RunRecord, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Month != "" {
		conditions = append(conditions, fmt.Sprintf("month = $%d", argNum))
		args = append(args, filter.Month)
		argNum++
	}
	if filter.ValidOnly {
		conditions = append(conditions, fmt.Sprintf("valid = $%d", argNum))
		args = append(args, true)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM roster_runs " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计运行记录失败")
	}

	if filter.Limit <= 0 {
		filter.Limit = DefaultListFilter().Limit
	}
	query := fmt.Sprintf(`
		SELECT id, month, valid, staff_count, violation_count, coverage, workload_gini, created_at
		FROM roster_runs %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询运行记录失败")
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows, "")
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "遍历运行记录失败")
	}
	return runs, total, nil
}

// Delete 删除一次运行
func (r *ScheduleRepository) Delete(ctx context.Context, runID string) error {
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		return deleteRun(ctx, tx, runID)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除排班结果失败")
	}
	return nil
}

func deleteRun(ctx context.Context, tx *sql.Tx, runID string) error {
	for _, table := range []string{"roster_cells", "roster_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = $1", runID); err != nil {
			return fmt.Errorf("清理 %s 失败: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM roster_runs WHERE id = $1", runID); err != nil {
		return fmt.Errorf("清理运行记录失败: %w", err)
	}
	return nil
}

func scanRun(s Scanner, key string) (*RunRecord, error) {
	var run RunRecord
	err := s.Scan(&run.ID, &run.Month, &run.Valid, &run.StaffCount, &run.ViolationCount,
		&run.Coverage, &run.WorkloadGini, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("排班结果", key)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描运行记录失败")
	}
	return &run, nil
}
