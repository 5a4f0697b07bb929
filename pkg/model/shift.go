// Package model 定义月度排班引擎的核心数据模型
package model

import (
	"fmt"
	"sort"
	"strings"
)

// ShiftCategory 班次类别（封闭枚举）
type ShiftCategory int

const (
	CategoryRegular ShiftCategory = iota // 常规班
	CategoryWeekend                      // 周末/节假日班
	CategoryOnCall                       // 值班
	CategoryRest                         // 休息
	CategoryLeave                        // 请假
)

// AllCategories 全部班次类别
var AllCategories = []ShiftCategory{CategoryRegular, CategoryWeekend, CategoryOnCall, CategoryRest, CategoryLeave}

// String 返回类别名称
func (c ShiftCategory) String() string {
	switch c {
	case CategoryRegular:
		return "regular"
	case CategoryWeekend:
		return "weekend"
	case CategoryOnCall:
		return "on-call"
	case CategoryRest:
		return "rest"
	case CategoryLeave:
		return "leave"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// IsWork 是否为上班类别（计入人手和工时）
func (c ShiftCategory) IsWork() bool {
	switch c {
	case CategoryRegular, CategoryWeekend, CategoryOnCall:
		return true
	default:
		return false
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (c ShiftCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (c *ShiftCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseShiftCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseShiftCategory 解析班次类别
func ParseShiftCategory(s string) (ShiftCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "work", "day":
		return CategoryRegular, nil
	case "weekend", "holiday":
		return CategoryWeekend, nil
	case "on-call", "oncall", "on_call", "duty":
		return CategoryOnCall, nil
	case "rest", "off":
		return CategoryRest, nil
	case "leave", "vacation":
		return CategoryLeave, nil
	default:
		return 0, fmt.Errorf("未知的班次类别 %q", s)
	}
}

// ShiftDefinition 班次定义，一次运行内不可变
type ShiftDefinition struct {
	Code          string        `json:"code" yaml:"code"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	Category      ShiftCategory `json:"category" yaml:"category"`
	DurationHours float64       `json:"duration_hours" yaml:"duration_hours"`
}

// CreditedHours 计入工时的小时数，仅上班类别计入
func (d ShiftDefinition) CreditedHours() float64 {
	if d.Category.IsWork() {
		return d.DurationHours
	}
	return 0
}

// ShiftCatalog 班次目录
type ShiftCatalog struct {
	defs   []ShiftDefinition
	byCode map[string]int
}

// NewShiftCatalog 创建班次目录，保留输入顺序
func NewShiftCatalog(defs []ShiftDefinition) (*ShiftCatalog, error) {
	c := &ShiftCatalog{
		defs:   make([]ShiftDefinition, 0, len(defs)),
		byCode: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		code := strings.TrimSpace(d.Code)
		if code == "" {
			return nil, fmt.Errorf("班次代码不能为空")
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("班次代码 %q 重复", code)
		}
		if d.DurationHours < 0 {
			return nil, fmt.Errorf("班次 %q 时长不能为负", code)
		}
		if d.Category.IsWork() && d.DurationHours <= 0 {
			return nil, fmt.Errorf("上班班次 %q 时长必须大于0", code)
		}
		d.Code = code
		c.byCode[code] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// Len 班次数量
func (c *ShiftCatalog) Len() int { return len(c.defs) }

// All 返回全部班次定义
func (c *ShiftCatalog) All() []ShiftDefinition {
	out := make([]ShiftDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get 按代码获取班次
func (c *ShiftCatalog) Get(code string) (ShiftDefinition, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return ShiftDefinition{}, false
	}
	return c.defs[i], true
}

// Has 是否存在班次代码
func (c *ShiftCatalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// ByCategory 按类别返回班次，保持目录顺序
func (c *ShiftCatalog) ByCategory(cat ShiftCategory) []ShiftDefinition {
	var out []ShiftDefinition
	for _, d := range c.defs {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// HasCategory 目录中是否有该类别的班次
func (c *ShiftCatalog) HasCategory(cat ShiftCategory) bool {
	for _, d := range c.defs {
		if d.Category == cat {
			return true
		}
	}
	return false
}

// Default 返回某类别的第一个班次
func (c *ShiftCatalog) Default(cat ShiftCategory) (ShiftDefinition, bool) {
	for _, d := range c.defs {
		if d.Category == cat {
			return d, true
		}
	}
	return ShiftDefinition{}, false
}

// SortedByDuration 按时长升序返回某类别班次，时长相同按目录顺序
func (c *ShiftCatalog) SortedByDuration(cat ShiftCategory) []ShiftDefinition {
	out := c.ByCategory(cat)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationHours < out[j].DurationHours
	})
	return out
}

// Shortest 返回某类别时长最短的班次
func (c *ShiftCatalog) Shortest(cat ShiftCategory) (ShiftDefinition, bool) {
	sorted := c.SortedByDuration(cat)
	if len(sorted) == 0 {
		return ShiftDefinition{}, false
	}
	return sorted[0], true
}

// MissingCategories 返回目录中缺失的类别
func (c *ShiftCatalog) MissingCategories(required ...ShiftCategory) []ShiftCategory {
	var missing []ShiftCategory
	for _, cat := range required {
		if !c.HasCategory(cat) {
			missing = append(missing, cat)
		}
	}
	return missing
}

// Hours 返回班次代码计入的工时，未知或空代码为0
func (c *ShiftCatalog) Hours(code string) float64 {
	if d, ok := c.Get(code); ok {
		return d.CreditedHours()
	}
	return 0
}

// Category 返回班次代码的类别
func (c *ShiftCatalog) Category(code string) (ShiftCategory, bool) {
	d, ok := c.Get(code)
	return d.Category, ok
}

// IsWork 班次代码是否为上班
func (c *ShiftCatalog) IsWork(code string) bool {
	d, ok := c.Get(code)
	return ok && d.Category.IsWork()
}
