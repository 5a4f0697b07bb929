package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/source"
)

const rosterYAML = `
staff:
  - {id: S1, name: 张三}
  - {id: S2, name: 李四}
  - {id: S3, name: 王五}
  - {id: S4, name: 赵六}
  - {id: S5, name: 钱七}
shifts:
  - {code: D8, name: 白班, category: regular, duration_hours: 8}
  - {code: D6, name: 短班, category: regular, duration_hours: 6}
  - {code: D4, name: 半班, category: regular, duration_hours: 4}
  - {code: WE, name: 周末班, category: weekend, duration_hours: 8}
  - {code: OC, name: 值班, category: on_call, duration_hours: 10}
  - {code: OFF, name: 休息, category: rest}
  - {code: LV, name: 请假, category: leave, duration_hours: 8}
rules:
  weekday_min_staff: "2"
leave:
  - {staff_id: S2, start: 2025-09-08, end: 2025-09-10}
`

func init() {
	logger.Init(logger.Config{Level: "error", Format: "json", Output: "discard"})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func staticProvider(hs holiday.Static) func(string, string) (holiday.Provider, error) {
	return func(string, string) (holiday.Provider, error) { return hs, nil }
}

func TestGenerateCmd_Table(t *testing.T) {
	app := &AppContext{Ctx: context.Background()}
	cfg := writeConfig(t, rosterYAML)

	out, err := execute(GenerateCmd(app), "--config", cfg, "--month", "2025-09")
	require.NoError(t, err)
	assert.Contains(t, out, "张三")
	assert.Contains(t, out, "偏差", "汇总表头")
	assert.Contains(t, out, "LV")
}

func TestGenerateCmd_JSONAndValidate(t *testing.T) {
	app := &AppContext{Ctx: context.Background()}
	cfg := writeConfig(t, rosterYAML)
	outDir := t.TempDir()

	out, err := execute(GenerateCmd(app), "-c", cfg, "-m", "2025-09", "--format", "json", "--out", outDir)
	require.NoError(t, err)

	var printed source.Output
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Equal(t, "2025-09", printed.Month)
	assert.Equal(t, "LV", printed.Cell("S2", "2025-09-09"))

	files, err := filepath.Glob(filepath.Join(outDir, "2025-09-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	// 生成结果本身的违反数与校验结果一致
	_, err = execute(ValidateCmd(app), "-c", cfg, "--grid", files[0])
	if printed.Valid {
		assert.NoError(t, err)
	} else {
		assert.Equal(t, apperrors.CodeConstraintViolation, apperrors.GetCode(err))
	}

	// 手工改坏一个单元格
	printed.Cells["S1"]["2025-09-03"] = "XX"
	data, err := json.Marshal(printed)
	require.NoError(t, err)
	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, data, 0o600))

	_, err = execute(ValidateCmd(app), "-c", cfg, "--grid", broken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownShiftCode, apperrors.GetCode(err), "未知代码直接拒绝")
}

func TestGenerateCmd_HolidayCalendar(t *testing.T) {
	app := &AppContext{
		Ctx: context.Background(),
		NewProvider: staticProvider(holiday.Static{
			"CN": {{Date: model.Date(2025, 9, 15), Name: "Company Day", Country: "CN"}},
		}),
	}
	cfg := writeConfig(t, rosterYAML)

	out, err := execute(GenerateCmd(app), "-c", cfg, "-m", "2025-09", "--format", "json", "--country", "CN")
	require.NoError(t, err)
	var printed source.Output
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Len(t, printed.Dates, 30)
}

func TestGenerateCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		args []string
		code apperrors.Code
	}{
		{"月份无效", rosterYAML, []string{"-m", "2025-13"}, apperrors.CodeUnknown},
		{"名单为空", "shifts:\n  - {code: D8, category: regular}\n", []string{"-m", "2025-09"}, apperrors.CodeEmptyRoster},
		{"格式未知", rosterYAML, []string{"-m", "2025-09", "--format", "xml"}, apperrors.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeConfig(t, tt.yaml)
			args := append([]string{"-c", cfg}, tt.args...)
			_, err := execute(GenerateCmd(&AppContext{}), args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestGenerateCmd_MissingMonthFlag(t *testing.T) {
	_, err := execute(GenerateCmd(&AppContext{}), "-c", writeConfig(t, rosterYAML))
	assert.Error(t, err)
}

func TestHolidaysCmd(t *testing.T) {
	app := &AppContext{
		NewProvider: staticProvider(holiday.Static{
			"CN": {
				{Date: model.Date(2025, 10, 1), Name: "National Day", LocalName: "国庆节", Country: "CN"},
				{Date: model.Date(2025, 1, 1), Name: "New Year's Day", LocalName: "元旦", Country: "CN"},
			},
		}),
	}

	out, err := execute(HolidaysCmd(app), "--country", "CN", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, "CN 2025 年公共假日 (2)")
	assert.Contains(t, out, "2025-10-01")
	assert.Contains(t, out, "国庆节")
	assert.Less(t, bytes.Index([]byte(out), []byte("元旦")), bytes.Index([]byte(out), []byte("国庆节")))
}
