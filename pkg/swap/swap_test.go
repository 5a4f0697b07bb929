package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/internal/fixture"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// regular 工作日全员 D8、周末休息；2025-09-06 为周六
func regular(t *testing.T, rs *rules.RuleSet) (*state.Schedule, *Evaluator) {
	t.Helper()
	s := fixture.Regular(t, fixture.Schedule(t, fixture.September2025, rs, 3))
	return s, NewEvaluator(builtin.NewDefaultManager(rs))
}

func TestEvaluate_Feasible(t *testing.T) {
	s, e := regular(t, fixture.Rules())

	ev, err := e.Evaluate(s, Request{StaffA: "S1", DateA: "2025-09-06", StaffB: "S1", DateB: "2025-09-01"})
	require.NoError(t, err)
	assert.True(t, ev.Feasible)
	for _, is := range ev.Issues {
		assert.NotEqual(t, "error", is.Severity, is.Message)
	}
	require.NotNil(t, ev.Impact)
	assert.Equal(t, "OFF", ev.Impact.CodeA)
	assert.Equal(t, "D8", ev.Impact.CodeB)
	assert.False(t, ev.Impact.SameDay)
	assert.Zero(t, ev.Impact.StaffA.HoursChange)
	assert.NotEmpty(t, ev.Recommendation)

	assert.Equal(t, "OFF", s.Get(0, 5), "评估不修改原网格")
}

func TestEvaluate_SameDayImpact(t *testing.T) {
	s, e := regular(t, fixture.Rules())
	require.NoError(t, s.Set(1, 5, "WE"))

	ev, err := e.Evaluate(s, Request{StaffA: "S1", DateA: "2025-09-06", StaffB: "S2"})
	require.NoError(t, err)
	assert.True(t, ev.Feasible)
	assert.Equal(t, "2025-09-06", ev.Request.DateB, "DateB 缺省取 DateA")
	assert.True(t, ev.Impact.SameDay)
	assert.Equal(t, 8.0, ev.Impact.StaffA.HoursChange)
	assert.Equal(t, -8.0, ev.Impact.StaffB.HoursChange)
	assert.Equal(t, ev.Impact.StaffA.RestBefore-1, ev.Impact.StaffA.RestAfter)
}

func TestEvaluate_Infeasible(t *testing.T) {
	rs := fixture.Rules()
	rs.MaxConsecutiveWorkDays = 5

	tests := []struct {
		name    string
		prepare func(s *state.Schedule)
		req     Request
		issue   string
	}{
		{
			name:  "新增连续上班违反",
			req:   Request{StaffA: "S1", DateA: "2025-09-06", StaffB: "S2", DateB: "2025-09-01"},
			issue: "max_consecutive_work_days",
		},
		{
			name:    "锁定单元格",
			prepare: func(s *state.Schedule) { s.Stamp(0, 2, "LV") },
			req:     Request{StaffA: "S1", DateA: "2025-09-03", StaffB: "S2"},
			issue:   "locked",
		},
		{
			name:  "班次相同",
			req:   Request{StaffA: "S1", DateA: "2025-09-01", StaffB: "S2"},
			issue: "no_change",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e := regular(t, rs)
			if tt.prepare != nil {
				tt.prepare(s)
			}
			ev, err := e.Evaluate(s, tt.req)
			require.NoError(t, err)
			assert.False(t, ev.Feasible)
			require.NotEmpty(t, ev.Issues)
			assert.Equal(t, tt.issue, ev.Issues[0].Type)
			assert.Equal(t, "不建议进行此换班，存在硬约束冲突", ev.Recommendation)

			ok, reason := e.CanSwap(s, tt.req)
			assert.False(t, ok)
			assert.Equal(t, ev.Issues[0].Message, reason)
		})
	}
}

func TestEvaluate_BaselineViolationsIgnored(t *testing.T) {
	s, e := regular(t, fixture.Rules())
	// 周末无人上班的人手不足在换班前就存在
	require.NoError(t, s.Set(1, 12, "WE"))

	ev, err := e.Evaluate(s, Request{StaffA: "S1", DateA: "2025-09-13", StaffB: "S2"})
	require.NoError(t, err)
	assert.True(t, ev.Feasible)
}

func TestEvaluate_InvalidRequest(t *testing.T) {
	s, e := regular(t, fixture.Rules())

	tests := []struct {
		name string
		req  Request
	}{
		{"未知员工", Request{StaffA: "S9", DateA: "2025-09-01", StaffB: "S1"}},
		{"日期不在当月", Request{StaffA: "S1", DateA: "2025-10-01", StaffB: "S2"}},
		{"同一个单元格", Request{StaffA: "S1", DateA: "2025-09-01", StaffB: "S1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(s, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
		})
	}
}

func TestApply(t *testing.T) {
	s, e := regular(t, fixture.Rules())

	_, err := e.Apply(s, Request{StaffA: "S1", DateA: "2025-09-06", StaffB: "S1", DateB: "2025-09-01"})
	require.NoError(t, err)
	assert.Equal(t, "D8", s.Get(0, 5))
	assert.Equal(t, "OFF", s.Get(0, 0))

	_, err = e.Apply(s, Request{StaffA: "S2", DateA: "2025-09-01", StaffB: "S3"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConstraintViolation, apperrors.GetCode(err))
	assert.Equal(t, "D8", s.Get(1, 0), "不可行时不修改网格")
}

func TestRecommend(t *testing.T) {
	rs := fixture.Rules()
	s := fixture.Regular(t, fixture.Schedule(t, fixture.September2025, rs, 3))
	require.NoError(t, s.Set(1, 5, "WE"))
	r := NewRecommender(builtin.NewDefaultManager(rs))

	recs, err := r.Recommend(s, "S1", "2025-09-06", nil)
	require.NoError(t, err)
	require.Len(t, recs, 1, "S3 当天也是休息，不构成换班")
	assert.Equal(t, "S2", recs[0].Request.StaffB)
	assert.Equal(t, KindSameDay, recs[0].Kind)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Contains(t, recs[0].ImpactSummary, "S1 +8.0h")

	recs, err = r.Recommend(s, "S1", "2025-09-06", &RecommendOptions{ExcludeStaff: []string{"S2"}})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = r.Recommend(s, "S1", "2025-09-06", &RecommendOptions{MaxRecommendations: 5, AllowExchange: true})
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, rec.Score)
		}
	}

	_, err = r.Recommend(s, "S1", "2025-08-31", nil)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}
