package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/source"
	"github.com/paiban/monthroster/pkg/validator"
)

// ValidateCmd 创建 validate 命令
func ValidateCmd(app *AppContext) *cobra.Command {
	var (
		configPath string
		gridPath   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验已有排班",
		Long:  "在 YAML 配置的上下文中校验 generate 写出的 JSON 结果文件（可手工修改后再校验）",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := source.LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(gridPath)
			if err != nil {
				return fmt.Errorf("读取网格文件失败: %w", err)
			}
			var out source.Output
			if err := json.Unmarshal(data, &out); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析网格文件失败")
			}
			ym, err := model.ParseYearMonth(out.Month)
			if err != nil {
				return err
			}

			in, err := scheduler.Sources{Config: fc, Calendar: fc, Leave: fc}.Gather(app.runContext(), ym)
			if err != nil {
				return err
			}
			res, err := app.engine().Check(in, out.Cells)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Valid {
				fmt.Fprintf(w, "✅ %s 排班有效\n", out.Month)
				return nil
			}
			types := make([]string, 0, len(res.Counts))
			for t := range res.Counts {
				types = append(types, t)
			}
			sort.Strings(types)
			fmt.Fprintf(w, "⚠️  %s 存在 %d 个约束违反:\n", out.Month, len(res.Violations))
			for _, t := range types {
				fmt.Fprintf(w, "  %-18s %d\n", t, res.Counts[t])
			}
			for _, v := range res.Violations {
				fmt.Fprintf(w, "  • %s\n", v.String())
			}
			return validator.ToError(res.Violations)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "roster.yaml", "YAML 配置文件")
	cmd.Flags().StringVarP(&gridPath, "grid", "g", "", "generate 写出的 JSON 结果文件")
	cmd.MarkFlagRequired("grid")

	return cmd
}
