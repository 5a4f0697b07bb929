package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-02")
	require.NoError(t, err)

	assert.Equal(t, "2024-02", ym.String())
	assert.Equal(t, 29, ym.Days(), "闰年二月")
	assert.True(t, ym.Contains(Date(2024, 2, 29)))
	assert.False(t, ym.Contains(Date(2024, 3, 1)))

	dates := ym.Dates()
	assert.Len(t, dates, 29)
	assert.Equal(t, "2024-02-01", FormatDate(dates[0]))

	_, err = ParseYearMonth("2024/02")
	assert.Error(t, err)
}

func TestParseWeekdayList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []time.Weekday
		wantErr bool
	}{
		{"空串", "", nil, false},
		{"英文全称", "Saturday,Sunday", []time.Weekday{time.Saturday, time.Sunday}, false},
		{"缩写与空格", " fri , sat ", []time.Weekday{time.Friday, time.Saturday}, false},
		{"中文", "周六,周日", []time.Weekday{time.Saturday, time.Sunday}, false},
		{"无效名称", "Saturday,Funday", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdayList(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
