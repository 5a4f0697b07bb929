package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// HolidaysCmd 创建 holidays 命令
func HolidaysCmd(app *AppContext) *cobra.Command {
	var (
		country  string
		year     int
		baseURL  string
		cacheDSN string
	)

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "查询公共假日",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := app.provider(baseURL, cacheDSN)
			if err != nil {
				return fmt.Errorf("初始化节假日数据源失败: %w", err)
			}
			hs, err := provider.Holidays(app.runContext(), country, year)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d 年公共假日 (%d):\n", country, year, len(hs))
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, h := range hs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.DateString(), h.Date.Weekday(), h.DisplayName())
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "国家代码，如 CN")
	cmd.Flags().IntVar(&year, "year", 0, "年份")
	cmd.Flags().StringVar(&baseURL, "holiday-url", "", "节假日服务地址")
	cmd.Flags().StringVar(&cacheDSN, "holiday-cache", "holidays.db", "节假日缓存 (SQLite 路径或 postgres:// DSN，空串不缓存)")
	cmd.MarkFlagRequired("country")
	cmd.MarkFlagRequired("year")

	return cmd
}
