// roster 命令行：从 YAML 配置生成、校验月度排班，查询节假日
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/monthroster/cmd/roster/commands"
	"github.com/paiban/monthroster/pkg/logger"
)

func main() {
	var logLevel string
	app := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:   "roster",
		Short: "月度排班命令行",
		Long:  `读取名单、班次目录、规则表、请假和日历的 YAML 配置，生成并校验月度排班。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别 (debug, info, warn, error)")

	rootCmd.AddCommand(commands.GenerateCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.HolidaysCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
