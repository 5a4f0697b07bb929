package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler"
	"github.com/paiban/monthroster/pkg/source"
)

// GenerateCmd 创建 generate 命令
func GenerateCmd(app *AppContext) *cobra.Command {
	var (
		configPath string
		month      string
		outDir     string
		format     string
		country    string
		baseURL    string
		cacheDSN   string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成月度排班",
		Long:  "读取 YAML 配置生成一个月的排班，打印网格和员工汇总，可选写出 JSON 结果文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			ym, err := model.ParseYearMonth(month)
			if err != nil {
				return err
			}
			fc, err := source.LoadFileConfig(configPath)
			if err != nil {
				return err
			}

			src := scheduler.Sources{Config: fc, Calendar: fc, Leave: fc}
			if country != "" && len(fc.Calendar) == 0 {
				provider, err := app.provider(baseURL, cacheDSN)
				if err != nil {
					return fmt.Errorf("初始化节假日数据源失败: %w", err)
				}
				src.Calendar = &holiday.Calendar{Provider: provider, Country: country}
			}

			var sink source.OutputSink
			var fileSink *source.JSONFileSink
			if outDir != "" {
				fileSink = &source.JSONFileSink{Dir: outDir}
				sink = fileSink
			}

			result, err := app.engine().Generate(app.runContext(), src, ym, sink)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			out := result.Output()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			case "table":
				printGrid(w, out)
				printSummaries(w, result)
				printViolations(w, result)
			default:
				return fmt.Errorf("未知的输出格式 %q", format)
			}
			if fileSink != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "结果已写入 %s\n", fileSink.Path(out))
			}

			if strict {
				return result.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "roster.yaml", "YAML 配置文件")
	cmd.Flags().StringVarP(&month, "month", "m", "", "月份 YYYY-MM")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "JSON 结果输出目录")
	cmd.Flags().StringVar(&format, "format", "table", "输出格式 (table, json)")
	cmd.Flags().StringVar(&country, "country", "", "配置中没有日历时按国家查询节假日")
	cmd.Flags().StringVar(&baseURL, "holiday-url", "", "节假日服务地址")
	cmd.Flags().StringVar(&cacheDSN, "holiday-cache", "holidays.db", "节假日缓存 (SQLite 路径或 postgres:// DSN，空串不缓存)")
	cmd.Flags().BoolVar(&strict, "strict", false, "存在约束违反时返回非零退出码")
	cmd.MarkFlagRequired("month")

	return cmd
}

func printGrid(w io.Writer, out *source.Output) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	header := []string{"员工"}
	for _, d := range out.Dates {
		header = append(header, d[len(d)-2:])
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range out.Rows() {
		fmt.Fprintln(tw, out.Staff[i].Label()+"\t"+strings.Join(row, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printSummaries(w io.Writer, result *scheduler.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "员工\t工时\t目标\t偏差\t休息\t周末\t值班")
	for _, s := range result.Summaries {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%+.1f\t%d/%d\t%d\t%d\n",
			s.Name, s.Hours, s.TargetHours, s.Deviation, s.RestDays, s.TargetRestDays, s.WeekendShifts, s.OnCallShifts)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printViolations(w io.Writer, result *scheduler.Result) {
	if result.Valid {
		fmt.Fprintln(w, "✅ 无约束违反")
		return
	}
	fmt.Fprintf(w, "⚠️  约束违反 (%d):\n", len(result.Violations))
	for _, v := range result.Violations {
		fmt.Fprintf(w, "  • %s\n", v.String())
	}
}
