package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShiftCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ShiftCategory
		wantErr bool
	}{
		{"常规班", "regular", CategoryRegular, false},
		{"周末班大写", "Weekend", CategoryWeekend, false},
		{"值班带连字符", "on-call", CategoryOnCall, false},
		{"值班无连字符", "oncall", CategoryOnCall, false},
		{"休息", "rest", CategoryRest, false},
		{"请假", " leave ", CategoryLeave, false},
		{"未知类别", "overtime", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShiftCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseShiftCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseShiftCategory(%q) = %v, expected %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestShiftCategory_IsWork(t *testing.T) {
	work := map[ShiftCategory]bool{
		CategoryRegular: true,
		CategoryWeekend: true,
		CategoryOnCall:  true,
		CategoryRest:    false,
		CategoryLeave:   false,
	}
	for cat, want := range work {
		if cat.IsWork() != want {
			t.Errorf("%s.IsWork() = %v, expected %v", cat, cat.IsWork(), want)
		}
	}
}

func TestShiftCategory_TextRoundTrip(t *testing.T) {
	var c ShiftCategory
	require.NoError(t, c.UnmarshalText([]byte("on-call")))
	assert.Equal(t, CategoryOnCall, c)

	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "on-call", string(b))
}

func testCatalog(t *testing.T) *ShiftCatalog {
	t.Helper()
	c, err := NewShiftCatalog([]ShiftDefinition{
		{Code: "D8", Category: CategoryRegular, DurationHours: 8},
		{Code: "D4", Category: CategoryRegular, DurationHours: 4},
		{Code: "D6", Category: CategoryRegular, DurationHours: 6},
		{Code: "WE", Category: CategoryWeekend, DurationHours: 8},
		{Code: "OC", Category: CategoryOnCall, DurationHours: 10},
		{Code: "OFF", Category: CategoryRest},
		{Code: "LV", Category: CategoryLeave, DurationHours: 8},
	})
	require.NoError(t, err)
	return c
}

func TestShiftCatalog_Lookup(t *testing.T) {
	c := testCatalog(t)

	def, ok := c.Default(CategoryRegular)
	require.True(t, ok)
	assert.Equal(t, "D8", def.Code, "默认班次应为目录中的第一个")

	shortest, ok := c.Shortest(CategoryRegular)
	require.True(t, ok)
	assert.Equal(t, "D4", shortest.Code)

	sorted := c.SortedByDuration(CategoryRegular)
	assert.Equal(t, []string{"D4", "D6", "D8"}, []string{sorted[0].Code, sorted[1].Code, sorted[2].Code})

	assert.Equal(t, 10.0, c.Hours("OC"))
	assert.Equal(t, 0.0, c.Hours("LV"), "请假不计入工时")
	assert.Equal(t, 0.0, c.Hours("OFF"))
	assert.Equal(t, 0.0, c.Hours("NOPE"))
	assert.True(t, c.IsWork("WE"))
	assert.False(t, c.IsWork("OFF"))
	assert.False(t, c.IsWork(""))
}

func TestShiftCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		defs []ShiftDefinition
	}{
		{"重复代码", []ShiftDefinition{
			{Code: "D", Category: CategoryRegular, DurationHours: 8},
			{Code: "D", Category: CategoryRegular, DurationHours: 4},
		}},
		{"空代码", []ShiftDefinition{{Code: " ", Category: CategoryRest}}},
		{"负时长", []ShiftDefinition{{Code: "X", Category: CategoryRest, DurationHours: -1}}},
		{"上班班次零时长", []ShiftDefinition{{Code: "Z", Category: CategoryRegular}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShiftCatalog(tt.defs); err == nil {
				t.Error("应该返回错误")
			}
		})
	}
}

func TestShiftCatalog_MissingCategories(t *testing.T) {
	c, err := NewShiftCatalog([]ShiftDefinition{
		{Code: "D8", Category: CategoryRegular, DurationHours: 8},
	})
	require.NoError(t, err)

	missing := c.MissingCategories(CategoryRegular, CategoryRest, CategoryOnCall)
	assert.Equal(t, []ShiftCategory{CategoryRest, CategoryOnCall}, missing)
}
