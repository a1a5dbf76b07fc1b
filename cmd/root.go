package cmd

import (
	"fmt"
	"os"

	"reelcomp/config"
	"reelcomp/logger"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	logLevel  string
	projectID string
)

var rootCmd = &cobra.Command{
	Use:   "reelcomp",
	Short: "reelcomp 视频时间线合成服务",
	Long:  `读取 OTIO 时间线或场景脚本，计算每一帧的合成指令，并通过 HTTP/WebSocket 提供给预览端。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if projectID != "" {
			cfg.ProjectID = projectID
		}
		logger.InitLogger(logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "要加载的项目ID")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
