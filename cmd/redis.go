package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelcomp/cache"
	"reelcomp/model"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试与快照查看",
	Long:  `测试Redis连接是否成功；指定 --project 时显示该项目缓存的时间线快照。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		if !cfg.RedisEnabled() {
			return fmt.Errorf("REDIS_HOST 未配置")
		}

		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer cache.CloseRedis()
		fmt.Println("Redis连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := cache.ProbeRedis(ctx); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		if cfg.ProjectID == "" {
			return nil
		}
		doc, err := cache.NewSnapshotCache(cache.RedisClient, cfg.SnapshotTTL).Load(ctx, cfg.ProjectID)
		if errors.Is(err, cache.ErrSnapshotMiss) {
			fmt.Printf("项目 %s 没有缓存的快照\n", cfg.ProjectID)
			return nil
		}
		if err != nil {
			return err
		}
		tl, err := model.DecodeTimeline(doc)
		if err != nil {
			return fmt.Errorf("缓存的快照无法解析: %w", err)
		}
		fmt.Printf("项目 %s 快照: %d 字节, %d 条轨道\n", cfg.ProjectID, len(doc), len(tl.Tracks.Children))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
