// Package scheduler 月度排班引擎：构建状态、按固定顺序执行分配阶段、均衡并校验
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/builder"
	"github.com/paiban/monthroster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/monthroster/pkg/scheduler/optimizer"
	"github.com/paiban/monthroster/pkg/scheduler/solver"
	"github.com/paiban/monthroster/pkg/scheduler/state"
	"github.com/paiban/monthroster/pkg/source"
	"github.com/paiban/monthroster/pkg/stats"
	"github.com/paiban/monthroster/pkg/validator"
)

// Input 一次排班运行的输入
type Input = builder.Input

// Observer 运行结束时的回调，用于指标采集
type Observer interface {
	ObserveRun(result *Result)
}

// Option 引擎选项
type Option func(*Engine)

// WithDiagnostics 将每条分级消息同步转发给诊断输出端
func WithDiagnostics(sink source.DiagnosticsSink) Option {
	return func(e *Engine) { e.diagnostics = sink }
}

// WithObserver 设置运行观察者
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRunID 固定运行ID，默认每次运行生成新的 UUID
func WithRunID(fn func() string) Option {
	return func(e *Engine) { e.newRunID = fn }
}

// Engine 排班引擎，本身不持有跨运行的状态
type Engine struct {
	diagnostics source.DiagnosticsSink
	observer    Observer
	newRunID    func() string
}

// NewEngine 创建排班引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result 排班结果
type Result struct {
	RunID       string                 `json:"run_id"`
	Month       model.YearMonth        `json:"-"`
	Staff       []model.Staff          `json:"staff"`
	Grid        [][]string             `json:"grid"` // [staff][day]
	Profiles    []*model.StaffProfile  `json:"profiles"`
	Days        []model.DayProfile     `json:"days"`
	Weeks       []model.Week           `json:"weeks"`
	Stages      []*solver.Report       `json:"stages"`
	Balancer    *optimizer.Report      `json:"balancer"`
	Violations  []validator.Violation  `json:"violations"`
	Summaries   []stats.StaffSummary   `json:"summaries"`
	Coverage    *stats.CoverageMetrics `json:"coverage"`
	Fairness    *stats.FairnessMetrics `json:"fairness"`
	Score       float64                `json:"score"` // 约束满足度 0-100
	Diagnostics []logger.Entry         `json:"diagnostics"`
	Valid       bool                   `json:"valid"`
	StartedAt   time.Time              `json:"started_at"`
	Duration    time.Duration          `json:"duration"`

	schedule *state.Schedule
}

// Err 存在违反时返回聚合的 CONSTRAINT_VIOLATION 错误
func (r *Result) Err() error {
	if err := validator.ToError(r.Violations); err != nil {
		return err
	}
	return nil
}

// Cell 按员工ID和日期读取班次代码
func (r *Result) Cell(staffID, date string) string {
	for i, st := range r.Staff {
		if st.ID != staffID {
			continue
		}
		for d, day := range r.Days {
			if day.DateString() == date {
				return r.Grid[i][d]
			}
		}
	}
	return ""
}

// Schedule 返回最终的排班状态
func (r *Result) Schedule() *state.Schedule {
	return r.schedule
}

// Output 转换为输出端格式
func (r *Result) Output() *source.Output {
	out := source.NewOutput(r.RunID, r.Month, r.Staff, r.Days, r.Grid)
	out.Valid = r.Valid
	out.Summaries = r.Summaries
	out.Coverage = r.Coverage
	out.Fairness = r.Fairness
	out.Violations = r.Violations
	return out
}

// Run 执行一次完整的排班
// 配置错误返回 *errors.AppError 且结果为 nil；约束违反不视为运行失败，记录在结果中。
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	started := time.Now()
	runID := e.newRunID()

	diag := logger.NewDiagnostics()
	if e.diagnostics != nil {
		diag.Forward(e.diagnostics.Emit)
	}
	log := logger.NewSchedulerLogger(runID, diag)

	s, err := builder.New(log.Stage("builder")).Build(in)
	if err != nil {
		log.Errorf("构建失败: %v", err)
		return nil, err
	}
	month := in.Month.String()
	log.StartRun(month, s.StaffCount(), s.DayCount())

	cm := builtin.NewDefaultManager(in.Rules)
	reports := make([]*solver.Report, 0, 6)
	for _, stage := range solver.Pipeline(cm, log) {
		if err := ctx.Err(); err != nil {
			return nil, wrapStageError(stage.Name(), err)
		}
		rep, err := stage.Apply(ctx, s)
		if err != nil {
			log.Errorf("阶段 %s 失败: %v", stage.Name(), err)
			return nil, wrapStageError(stage.Name(), err)
		}
		reports = append(reports, rep)
	}

	balancer := optimizer.New(builtin.NewSafetyManager(in.Rules), log)
	balance, err := balancer.Balance(ctx, s)
	if err != nil {
		return nil, wrapStageError(balancer.Name(), err)
	}

	violations := validator.New(in.Rules).ValidateSchedule(s)
	for _, v := range violations {
		log.ConstraintViolation(string(v.Type), v.Message)
	}
	if len(violations) > 0 {
		log.Warnf("校验未通过: %s", validator.Summary(violations))
	}

	summaries := stats.Summaries(s)
	result := &Result{
		RunID:      runID,
		Month:      in.Month,
		Staff:      s.Staff,
		Grid:       s.Cells(),
		Profiles:   s.Profiles,
		Days:       s.Days,
		Weeks:      s.Weeks,
		Stages:     reports,
		Balancer:   balance,
		Violations: violations,
		Summaries:  summaries,
		Coverage:   stats.AnalyzeCoverage(s),
		Fairness:   stats.NewFairnessAnalyzer().Analyze(summaries),
		Score:      cm.Evaluate(s).Score,
		Valid:      len(violations) == 0,
		StartedAt:  started,
		schedule:   s,
	}
	result.Duration = time.Since(started)
	log.RunComplete(month, result.Duration, len(violations))
	result.Diagnostics = diag.Entries()

	if e.observer != nil {
		e.observer.ObserveRun(result)
	}
	return result, nil
}

func wrapStageError(stage string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeTimeout, fmt.Sprintf("排班在阶段 %s 被取消", stage))
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, fmt.Sprintf("阶段 %s 失败", stage))
}

// Sources 从外部数据源组装输入所需的协作者
type Sources struct {
	Config   source.ConfigSource
	Calendar source.CalendarSource // 可为空
	Leave    source.LeaveSource    // 可为空
}

// Gather 从数据源读取一个月的输入
func (src Sources) Gather(ctx context.Context, ym model.YearMonth) (Input, error) {
	in := Input{Month: ym}
	if src.Config == nil {
		return in, apperrors.MissingRule("config_source")
	}

	staff, err := src.Config.Roster(ctx)
	if err != nil {
		return in, err
	}
	catalog, err := src.Config.Catalog(ctx)
	if err != nil {
		return in, err
	}
	table, err := src.Config.RuleTable(ctx)
	if err != nil {
		return in, err
	}
	rs, err := rules.FromTable(table)
	if err != nil {
		return in, err
	}
	in.Staff, in.Catalog, in.Rules = staff, catalog, rs

	if src.Calendar != nil {
		if in.Calendar, err = src.Calendar.Month(ctx, ym); err != nil {
			return in, err
		}
	}
	if src.Leave != nil {
		if in.Leave, err = src.Leave.ApprovedLeave(ctx, ym); err != nil {
			return in, err
		}
	}
	return in, nil
}

// Generate 读取数据源、执行排班，并把结果写入输出端（sink 可为空）
func (e *Engine) Generate(ctx context.Context, src Sources, ym model.YearMonth, sink source.OutputSink) (*Result, error) {
	in, err := src.Gather(ctx, ym)
	if err != nil {
		return nil, err
	}
	result, err := e.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := WriteOutput(ctx, sink, result); err != nil {
		return result, err
	}
	return result, nil
}

// WriteOutput 把结果写入输出端；输出端已返回 AppError 时保留其错误码，否则记为数据库错误
func WriteOutput(ctx context.Context, sink source.OutputSink, result *Result) error {
	if sink == nil {
		return nil
	}
	err := sink.Write(ctx, result.Output())
	if err == nil {
		return nil
	}
	if apperrors.GetCode(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, "写入排班结果失败")
}
