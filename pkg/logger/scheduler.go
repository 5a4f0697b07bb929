package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry 一条诊断消息
type Entry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Diagnostics 收集一次排班运行中的分级消息。
// 收集与进程日志级别无关：全局级别为 error 时 info/warn 仍会记录。
type Diagnostics struct {
	mu      sync.Mutex
	entries []Entry
	forward func(Entry)
}

// NewDiagnostics 创建诊断收集器
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Forward 设置转发函数，每条消息收集后同步转发
func (d *Diagnostics) Forward(fn func(Entry)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forward = fn
}

// Record 记录一条消息，低于 info 的级别和空消息忽略
func (d *Diagnostics) Record(level zerolog.Level, message string) {
	if level < zerolog.InfoLevel || message == "" {
		return
	}
	entry := Entry{Level: level.String(), Message: message, Time: time.Now()}

	d.mu.Lock()
	d.entries = append(d.entries, entry)
	fwd := d.forward
	d.mu.Unlock()

	if fwd != nil {
		fwd(entry)
	}
}

// Entries 返回已收集的消息副本
func (d *Diagnostics) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base zerolog.Logger
	diag *Diagnostics
}

// NewSchedulerLogger 创建排班引擎日志器，diag 可为 nil
func NewSchedulerLogger(runID string, diag *Diagnostics) *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Str("run_id", runID).Logger()
	return &SchedulerLogger{base: l, diag: diag}
}

// Stage 返回带阶段字段的子日志器
func (l *SchedulerLogger) Stage(name string) *SchedulerLogger {
	return &SchedulerLogger{base: l.base.With().Str("stage", name).Logger(), diag: l.diag}
}

// emit 写进程日志并记录诊断
func (l *SchedulerLogger) emit(e *zerolog.Event, level zerolog.Level, msg string) {
	e.Msg(msg)
	if l.diag != nil {
		l.diag.Record(level, msg)
	}
}

// StartRun 记录排班开始
func (l *SchedulerLogger) StartRun(month string, staff, days int) {
	e := l.base.Info().
		Str("month", month).
		Int("staff", staff).
		Int("days", days)
	l.emit(e, zerolog.InfoLevel, fmt.Sprintf("开始生成 %s 排班: %d 名员工, %d 天", month, staff, days))
}

// Infof 记录信息
func (l *SchedulerLogger) Infof(format string, args ...interface{}) {
	l.emit(l.base.Info(), zerolog.InfoLevel, fmt.Sprintf(format, args...))
}

// Warnf 记录警告
func (l *SchedulerLogger) Warnf(format string, args ...interface{}) {
	l.emit(l.base.Warn(), zerolog.WarnLevel, fmt.Sprintf(format, args...))
}

// Errorf 记录错误
func (l *SchedulerLogger) Errorf(format string, args ...interface{}) {
	l.emit(l.base.Error(), zerolog.ErrorLevel, fmt.Sprintf(format, args...))
}

// Debugf 记录调试信息
func (l *SchedulerLogger) Debugf(format string, args ...interface{}) {
	l.base.Debug().Msg(fmt.Sprintf(format, args...))
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.emit(l.base.Warn().Str("constraint", constraint), zerolog.WarnLevel,
		fmt.Sprintf("约束违反 [%s]: %s", constraint, details))
}

// RunComplete 记录排班完成
func (l *SchedulerLogger) RunComplete(month string, duration time.Duration, violations int) {
	e := l.base.Info().
		Str("month", month).
		Dur("duration", duration).
		Int("violations", violations)
	l.emit(e, zerolog.InfoLevel, fmt.Sprintf("排班生成完成: %d 个违反, 耗时 %s", violations, duration))
}
