package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/internal/fixture"
	"github.com/paiban/monthroster/pkg/model"
)

func TestEngine_Check(t *testing.T) {
	in := fiveStaff(t, fixture.Leave("S3", model.Date(2025, 9, 10), model.Date(2025, 9, 11)))
	e := NewEngine()

	result, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	cells := Cells(result.Output().Cells)

	res, err := e.Check(in, cells)
	require.NoError(t, err)
	assert.Equal(t, result.Violations, res.Violations, "重新校验生成结果得到相同的违反")
	assert.Equal(t, result.Valid, res.Valid)

	tests := []struct {
		name   string
		modify func(c Cells)
		want   string
	}{
		{"缺少单元格", func(c Cells) { delete(c["S2"], "2025-09-04") }, "empty_cell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := make(Cells, len(cells))
			for id, row := range cells {
				c[id] = make(map[string]string, len(row))
				for d, code := range row {
					c[id][d] = code
				}
			}
			tt.modify(c)
			res, err := e.Check(in, c)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, 1, res.Counts[tt.want])
		})
	}

	t.Run("未知代码", func(t *testing.T) {
		c := Cells{"S1": {"2025-09-03": "XX"}}
		_, err := e.Check(in, c)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUnknownShiftCode, apperrors.GetCode(err))
		assert.Contains(t, err.Error(), "XX")
	})

	t.Run("未提交的员工保留请假", func(t *testing.T) {
		c := Cells{"S1": cells["S1"]}
		res, err := e.Check(in, c)
		require.NoError(t, err)
		// S3 只剩请假两天，其余 28 天为空
		empty := 0
		for _, v := range res.Violations {
			if v.Type == "empty_cell" && v.StaffID == "S3" {
				empty++
			}
		}
		assert.Equal(t, 28, empty)
	})
}

func TestEngine_CheckConfigError(t *testing.T) {
	in := fiveStaff(t)
	in.Staff = nil
	_, err := NewEngine().Check(in, Cells{})
	assert.Equal(t, apperrors.CodeEmptyRoster, apperrors.GetCode(err))
}
