// Package holiday 提供法定节假日数据：远程查询、本地缓存，以及按月分类日期的日历源
package holiday

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/paiban/monthroster/pkg/model"
)

// Holiday 一个法定节假日
type Holiday struct {
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	LocalName string    `json:"local_name,omitempty"`
	Country   string    `json:"country"`
}

// DateString 返回 YYYY-MM-DD
func (h Holiday) DateString() string {
	return model.FormatDate(h.Date)
}

// DisplayName 优先使用本地名称
func (h Holiday) DisplayName() string {
	if h.LocalName != "" {
		return h.LocalName
	}
	return h.Name
}

// Provider 按国家和年份提供节假日
type Provider interface {
	Holidays(ctx context.Context, country string, year int) ([]Holiday, error)
}

// Static 内存中的固定节假日表，键为国家代码
type Static map[string][]Holiday

// Holidays 实现 Provider
func (s Static) Holidays(_ context.Context, country string, year int) ([]Holiday, error) {
	var out []Holiday
	for _, h := range s[normalizeCountry(country)] {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sortHolidays(out)
	return out, nil
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

func sortHolidays(hs []Holiday) {
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Date.Before(hs[j].Date) })
}
