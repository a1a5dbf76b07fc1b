package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"reelcomp/core/loader"
	"reelcomp/logger"
	"reelcomp/server"
	"reelcomp/storage"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动合成预览服务",
	Long:  `启动时间线加载器与 HTTP/WebSocket 服务，时间线文档变化时推送给所有预览客户端。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Loader.Start(ctx)
	defer app.Loader.Stop()

	if cfg.WatchFiles && cfg.TimelineSource == sourceFile {
		watcher, err := loader.NewFileWatcher(cfg.ProjectsDir, app.Loader, 0)
		if err != nil {
			logger.Warn("文件监听不可用，仅依赖轮询", logger.ErrorField(err))
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	hub := server.NewHub()
	handler := server.NewTimelineHandler(app.Loader, app.Index, hub)
	unwatch := handler.Watch()
	defer unwatch()

	media := server.NewMediaHandler(cfg.ServedRoot, cfg.MediaDir, storage.GetMinioClient(), cfg.MinioBucket, cfg.MinioPrefix)
	router := server.NewRouter(handler, cfg.ServedRoot, media)

	return server.Run(ctx, cfg.HTTPAddr, router)
}
