package holiday

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
)

const payload2025 = `[
  {"date":"2025-01-01","localName":"元旦","name":"New Year's Day","countryCode":"CN","global":true,"types":["Public"]},
  {"date":"2025-10-01","localName":"国庆节","name":"National Day","countryCode":"CN","global":true,"types":["Public"]},
  {"date":"2025-10-01","localName":"国庆节","name":"National Day (dup)","countryCode":"CN","global":true,"types":["Public"]},
  {"date":"2025-10-06","localName":"中秋节","name":"Mid-Autumn Festival","countryCode":"CN","global":true,"types":["Public"]},
  {"date":"2025-10-08","localName":"地方节日","name":"Regional","countryCode":"CN","global":false,"types":["Public"]},
  {"date":"2025-10-09","localName":"纪念日","name":"Observance","countryCode":"CN","global":true,"types":["Observance"]}
]`

func TestParseHolidays(t *testing.T) {
	hs, err := ParseHolidays([]byte(payload2025), "cn")
	require.NoError(t, err)
	require.Len(t, hs, 3)

	assert.Equal(t, "2025-01-01", hs[0].DateString())
	assert.Equal(t, "National Day", hs[1].Name, "同一天只保留第一个")
	assert.Equal(t, "中秋节", hs[2].DisplayName())
	assert.Equal(t, "CN", hs[2].Country)
}

func TestParseHolidays_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"非 JSON", "<html>"},
		{"不是数组", `{"date":"2025-01-01"}`},
		{"日期无效", `[{"date":"01/01/2025","name":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHolidays([]byte(tt.body), "CN")
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.GetCode(err))
		})
	}
}

func TestClient_Holidays(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Path == "/api/v3/PublicHolidays/2025/CN" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(payload2025))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	hs, err := c.Holidays(context.Background(), "cn", 2025)
	require.NoError(t, err)
	assert.Equal(t, "/api/v3/PublicHolidays/2025/CN", path)
	assert.Len(t, hs, 3)

	_, err = c.Holidays(context.Background(), "XX", 2025)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.GetCode(err))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 10*time.Second, c.HTTP.Timeout)
}

type countingProvider struct {
	calls atomic.Int32
	inner Provider
	err   error
}

func (p *countingProvider) Holidays(ctx context.Context, country string, year int) ([]Holiday, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.inner.Holidays(ctx, country, year)
}

func fixedHolidays() Static {
	return Static{
		"CN": {
			{Date: model.Date(2025, 10, 6), Name: "Mid-Autumn Festival", LocalName: "中秋节", Country: "CN"},
			{Date: model.Date(2025, 10, 1), Name: "National Day", LocalName: "国庆节", Country: "CN"},
			{Date: model.Date(2024, 10, 1), Name: "National Day", LocalName: "国庆节", Country: "CN"},
		},
	}
}

func TestStatic(t *testing.T) {
	hs, err := fixedHolidays().Holidays(context.Background(), " cn ", 2025)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, 1, hs[0].Date.Day(), "按日期排序")

	none, err := fixedHolidays().Holidays(context.Background(), "US", 2025)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCache(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "holidays.db"))
	require.NoError(t, err)

	upstream := &countingProvider{inner: fixedHolidays()}
	cache := NewCache(db, upstream)
	ctx := context.Background()

	first, err := cache.Holidays(ctx, "CN", 2025)
	require.NoError(t, err)
	second, err := cache.Holidays(ctx, "cn", 2025)
	require.NoError(t, err)

	assert.Equal(t, int32(1), upstream.calls.Load(), "同一年只查询一次上游")
	require.Len(t, second, 2)
	assert.Equal(t, first[0].DateString(), second[0].DateString())
	assert.Equal(t, "国庆节", second[0].LocalName)

	empty, err := cache.Holidays(ctx, "US", 2025)
	require.NoError(t, err)
	assert.Empty(t, empty)
	_, err = cache.Holidays(ctx, "US", 2025)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load(), "没有假日的年份也会缓存")

	require.NoError(t, cache.Invalidate(ctx, "CN", 2025))
	_, err = cache.Holidays(ctx, "CN", 2025)
	require.NoError(t, err)
	assert.Equal(t, int32(3), upstream.calls.Load())
}

// gatedProvider 等所有调用方都到达后才返回，保证它们都在缓存未命中时查询上游
type gatedProvider struct {
	inner   Provider
	arrived sync.WaitGroup
}

func (p *gatedProvider) Holidays(ctx context.Context, country string, year int) ([]Holiday, error) {
	p.arrived.Done()
	p.arrived.Wait()
	return p.inner.Holidays(ctx, country, year)
}

func TestCache_ConcurrentMiss(t *testing.T) {
	tests := []struct {
		name   string
		shared bool
	}{
		{"多个进程共用缓存库", false},
		{"同一进程并发查询", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := OpenDB(filepath.Join(t.TempDir(), "holidays.db"))
			require.NoError(t, err)

			var (
				caches []*Cache
				calls  *countingProvider
			)
			if tt.shared {
				calls = &countingProvider{inner: fixedHolidays()}
				c := NewCache(db, calls)
				caches = []*Cache{c, c}
			} else {
				gate := &gatedProvider{inner: fixedHolidays()}
				gate.arrived.Add(2)
				caches = []*Cache{NewCache(db, gate), NewCache(db, gate)}
			}

			var wg sync.WaitGroup
			errs := make([]error, len(caches))
			results := make([][]Holiday, len(caches))
			for i, c := range caches {
				wg.Add(1)
				go func(i int, c *Cache) {
					defer wg.Done()
					results[i], errs[i] = c.Holidays(context.Background(), "CN", 2025)
				}(i, c)
			}
			wg.Wait()

			for i := range caches {
				require.NoError(t, errs[i])
				assert.Len(t, results[i], 2)
			}
			if calls != nil {
				assert.LessOrEqual(t, calls.calls.Load(), int32(2))
			}

			var rows, years int64
			require.NoError(t, db.Model(&HolidayRow{}).Where("country = ?", "CN").Count(&rows).Error)
			require.NoError(t, db.Model(&FetchedYear{}).Count(&years).Error)
			assert.Equal(t, int64(2), rows, "重复写入被忽略")
			assert.Equal(t, int64(1), years)
		})
	}
}

func TestCache_UpstreamError(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "holidays.db"))
	require.NoError(t, err)

	boom := apperrors.New(apperrors.CodeSourceUnavailable, "down")
	upstream := &countingProvider{err: boom}
	_, err = NewCache(db, upstream).Holidays(context.Background(), "CN", 2025)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	var n int64
	require.NoError(t, db.Model(&FetchedYear{}).Count(&n).Error)
	assert.Zero(t, n, "失败的查询不写缓存")
}

func TestCalendar_Month(t *testing.T) {
	rs := rules.Default()
	rs.ShutdownDates = []string{"2025-10-06"}
	rs.ShutdownRRule = "FREQ=MONTHLY;BYMONTHDAY=31"

	cal := &Calendar{
		Provider: fixedHolidays(),
		Country:  "CN",
		Rules:    rs,
		Extra:    []Holiday{{Date: model.Date(2025, 10, 20), Name: "Company Day"}},
	}
	days, err := cal.Month(context.Background(), model.NewYearMonth(2025, time.October))
	require.NoError(t, err)
	require.Len(t, days, 31)

	assert.Equal(t, model.DayHoliday, days[0].Kind)
	assert.Equal(t, "国庆节", days[0].HolidayName)
	assert.Equal(t, model.DayShutdown, days[5].Kind, "停工日优先于节假日")
	assert.Equal(t, model.DayShutdown, days[30].Kind)
	assert.Equal(t, model.DayHoliday, days[19].Kind)
	assert.Equal(t, "Company Day", days[19].HolidayName)
	assert.Equal(t, model.DayWeekend, days[3].Kind, "10月4日是周六")
	assert.Equal(t, model.DayWeekday, days[1].Kind)

	counts := Count(days)
	assert.Equal(t, 2, counts[model.DayShutdown])
	assert.Equal(t, 2, counts[model.DayHoliday])
}

func TestCalendar_ProviderError(t *testing.T) {
	cal := &Calendar{
		Provider: &countingProvider{err: errors.New("boom")},
		Country:  "CN",
	}
	_, err := cal.Month(context.Background(), model.NewYearMonth(2025, time.October))
	require.Error(t, err)
}
