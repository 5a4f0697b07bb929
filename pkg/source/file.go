package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
)

var validate = validator.New()

// ShiftEntry 班次定义
type ShiftEntry struct {
	Code          string  `json:"code" yaml:"code" validate:"required"`
	Name          string  `json:"name" yaml:"name"`
	Category      string  `json:"category" yaml:"category" validate:"required"`
	DurationHours float64 `json:"duration_hours" yaml:"duration_hours" validate:"gte=0,lte=24"`
}

// LeaveEntry 请假记录，日期格式 YYYY-MM-DD
type LeaveEntry struct {
	StaffID string `json:"staff_id" yaml:"staff_id" validate:"required"`
	Start   string `json:"start" yaml:"start" validate:"required,datetime=2006-01-02"`
	End     string `json:"end" yaml:"end" validate:"required,datetime=2006-01-02"`
	Code    string `json:"code" yaml:"code"`
	Reason  string `json:"reason" yaml:"reason"`
}

// DayEntry 日历条目
type DayEntry struct {
	Date string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Kind string `json:"kind" yaml:"kind" validate:"required,oneof=weekday workday weekend holiday shutdown closed"`
	Name string `json:"name" yaml:"name"`
}

// FileConfig 单个 YAML 文件描述的名单、班次目录、规则表、请假和日历
type FileConfig struct {
	Staff    []model.Staff     `json:"staff" yaml:"staff" validate:"required,min=1,dive"`
	Shifts   []ShiftEntry      `json:"shifts" yaml:"shifts" validate:"required,min=1,dive"`
	Rules    map[string]string `json:"rules" yaml:"rules"`
	Leave    []LeaveEntry      `json:"leave" yaml:"leave" validate:"dive"`
	Calendar []DayEntry        `json:"calendar" yaml:"calendar" validate:"dive"`

	catalog *model.ShiftCatalog
	leave   []model.LeaveRecord
	days    []model.CalendarDay
}

// LoadFileConfig 读取并解析配置文件
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "读取配置文件失败").WithField("path", path)
	}
	return ParseFileConfig(data)
}

// ParseFileConfig 解析 YAML 配置并校验
func ParseFileConfig(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "解析配置文件失败")
	}
	if err := fc.Resolve(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Resolve 校验已解码的配置并构建班次目录、请假和日历。
// 通过 JSON 等其他途径填充的 FileConfig 在使用前必须调用。
func (fc *FileConfig) Resolve() error {
	if len(fc.Staff) == 0 {
		return apperrors.EmptyRoster()
	}
	if err := validate.Struct(fc); err != nil {
		verrs := &apperrors.ValidationErrors{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				verrs.Add(fe.Namespace(), fmt.Sprintf("不满足 %s=%s", fe.Tag(), fe.Param()))
			}
		} else {
			verrs.Add("config", err.Error())
		}
		return verrs.ToAppError()
	}

	defs := make([]model.ShiftDefinition, 0, len(fc.Shifts))
	for _, e := range fc.Shifts {
		cat, err := model.ParseShiftCategory(e.Category)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidConfig, "班次类别无效").WithField("shift_code", e.Code)
		}
		defs = append(defs, model.ShiftDefinition{Code: e.Code, Name: e.Name, Category: cat, DurationHours: e.DurationHours})
	}
	catalog, err := model.NewShiftCatalog(defs)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidConfig, "班次目录无效")
	}
	fc.catalog = catalog

	fc.leave = make([]model.LeaveRecord, 0, len(fc.Leave))
	for _, e := range fc.Leave {
		start, _ := model.ParseDate(e.Start)
		end, _ := model.ParseDate(e.End)
		rec := model.LeaveRecord{StaffID: e.StaffID, Start: start, End: end, Code: e.Code, Reason: e.Reason}
		if err := rec.Validate(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidConfig, "请假记录无效")
		}
		fc.leave = append(fc.leave, rec)
	}

	fc.days = make([]model.CalendarDay, 0, len(fc.Calendar))
	for _, e := range fc.Calendar {
		date, _ := model.ParseDate(e.Date)
		kind, err := model.ParseDayKind(e.Kind)
		if err != nil {
			return apperrors.InvalidCalendar(err.Error())
		}
		fc.days = append(fc.days, model.CalendarDay{Date: date, Kind: kind, HolidayName: e.Name})
	}

	if _, err := rules.FromTable(fc.Rules); err != nil {
		return err
	}
	return nil
}

// Roster 实现 ConfigSource
func (fc *FileConfig) Roster(context.Context) ([]model.Staff, error) {
	return fc.Staff, nil
}

// Catalog 实现 ConfigSource
func (fc *FileConfig) Catalog(context.Context) (*model.ShiftCatalog, error) {
	return fc.catalog, nil
}

// RuleTable 实现 ConfigSource
func (fc *FileConfig) RuleTable(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(fc.Rules))
	for k, v := range fc.Rules {
		out[k] = v
	}
	return out, nil
}

// ApprovedLeave 实现 LeaveSource
func (fc *FileConfig) ApprovedLeave(ctx context.Context, ym model.YearMonth) ([]model.LeaveRecord, error) {
	return StaticLeave(fc.leave).ApprovedLeave(ctx, ym)
}

// Month 实现 CalendarSource
func (fc *FileConfig) Month(ctx context.Context, ym model.YearMonth) ([]model.CalendarDay, error) {
	return StaticCalendar(fc.days).Month(ctx, ym)
}

// JSONFileSink 将输出写成 JSON 文件，Dir 下按 <月份>-<运行ID>.json 命名
type JSONFileSink struct {
	Dir string
}

// Write 实现 OutputSink
func (s JSONFileSink) Write(_ context.Context, out *Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(out), data, 0o644)
}

// Path 输出文件路径
func (s JSONFileSink) Path(out *Output) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s-%s.json", out.Month, out.RunID))
}
