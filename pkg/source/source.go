// Package source 定义排班引擎与外部数据源、输出端之间的协作接口
package source

import (
	"context"
	"sort"
	"sync"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/stats"
	"github.com/paiban/monthroster/pkg/validator"
)

// ConfigSource 提供员工名单、班次目录和规则表
type ConfigSource interface {
	Roster(ctx context.Context) ([]model.Staff, error)
	Catalog(ctx context.Context) (*model.ShiftCatalog, error)
	// RuleTable 扁平键值规则表，缺失的键使用默认值
	RuleTable(ctx context.Context) (map[string]string, error)
}

// CalendarSource 提供目标月份每天的分类和节假日名称
type CalendarSource interface {
	Month(ctx context.Context, ym model.YearMonth) ([]model.CalendarDay, error)
}

// LeaveSource 提供已批准的请假记录
type LeaveSource interface {
	ApprovedLeave(ctx context.Context, ym model.YearMonth) ([]model.LeaveRecord, error)
}

// OutputSink 接收完成的网格和统计
type OutputSink interface {
	Write(ctx context.Context, out *Output) error
}

// DiagnosticsSink 接收运行中的分级消息
type DiagnosticsSink interface {
	Emit(entry logger.Entry)
}

// Output 一次运行的输出：按 (员工, 日期) 索引的班次代码和派生统计
type Output struct {
	RunID      string                       `json:"run_id"`
	Month      string                       `json:"month"`
	Valid      bool                         `json:"valid"`
	Staff      []model.Staff                `json:"staff"`
	Dates      []string                     `json:"dates"`
	Cells      map[string]map[string]string `json:"cells"` // staffID -> date -> code
	Summaries  []stats.StaffSummary         `json:"summaries"`
	Coverage   *stats.CoverageMetrics       `json:"coverage,omitempty"`
	Fairness   *stats.FairnessMetrics       `json:"fairness,omitempty"`
	Violations []validator.Violation        `json:"violations"`
}

// NewOutput 从网格构建输出
func NewOutput(runID string, month model.YearMonth, staff []model.Staff, days []model.DayProfile, grid [][]string) *Output {
	out := &Output{
		RunID: runID,
		Month: month.String(),
		Staff: staff,
		Dates: make([]string, len(days)),
		Cells: make(map[string]map[string]string, len(staff)),
	}
	for d, day := range days {
		out.Dates[d] = day.DateString()
	}
	for i, st := range staff {
		row := make(map[string]string, len(days))
		for d := range days {
			row[out.Dates[d]] = grid[i][d]
		}
		out.Cells[st.ID] = row
	}
	return out
}

// Cell 读取单元格
func (o *Output) Cell(staffID, date string) string {
	return o.Cells[staffID][date]
}

// Rows 按名单顺序返回网格
func (o *Output) Rows() [][]string {
	rows := make([][]string, len(o.Staff))
	for i, st := range o.Staff {
		rows[i] = make([]string, len(o.Dates))
		for d, date := range o.Dates {
			rows[i][d] = o.Cells[st.ID][date]
		}
	}
	return rows
}

// MultiSink 依次写入多个输出端，遇到第一个错误即停止，nil 元素被跳过
type MultiSink []OutputSink

// Write 实现 OutputSink
func (m MultiSink) Write(ctx context.Context, out *Output) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// Sinks 合并非 nil 的输出端；全部为 nil 时返回 nil，只有一个时直接返回它
func Sinks(sinks ...OutputSink) OutputSink {
	var m MultiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

// MemorySink 内存输出端，按写入顺序保存
type MemorySink struct {
	mu      sync.Mutex
	outputs []*Output
}

// Write 实现 OutputSink
func (m *MemorySink) Write(_ context.Context, out *Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, out)
	return nil
}

// Outputs 返回已写入的输出
func (m *MemorySink) Outputs() []*Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Output(nil), m.outputs...)
}

// Last 最近一次写入的输出
func (m *MemorySink) Last() *Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outputs) == 0 {
		return nil
	}
	return m.outputs[len(m.outputs)-1]
}

// StaticCalendar 固定日历条目，缺失的日期交给构建器按星期分类
type StaticCalendar []model.CalendarDay

// Month 实现 CalendarSource
func (c StaticCalendar) Month(_ context.Context, ym model.YearMonth) ([]model.CalendarDay, error) {
	var out []model.CalendarDay
	for _, d := range c {
		if ym.Contains(d.Date) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// StaticLeave 固定请假记录
type StaticLeave []model.LeaveRecord

// ApprovedLeave 实现 LeaveSource，只返回与月份有交集的记录
func (l StaticLeave) ApprovedLeave(_ context.Context, ym model.YearMonth) ([]model.LeaveRecord, error) {
	first := ym.First()
	last := first.AddDate(0, 1, -1)
	var out []model.LeaveRecord
	for _, rec := range l {
		if rec.End.Before(first) || rec.Start.After(last) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
