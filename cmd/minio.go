package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"reelcomp/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix   string
	minioProjects bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶查看",
	Long:  `查看MinIO存储桶中的文件统计，或列出按目录结构发现的项目。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		if !cfg.MinioEnabled() {
			return fmt.Errorf("MINIO_ENDPOINT 或 MINIO_ACCESS_KEY 未配置")
		}
		if err := storage.InitMinio(cfg); err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		prefix := minioPrefix
		if prefix == "" {
			prefix = cfg.MinioPrefix
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if minioProjects {
			projects, err := storage.NewMinioIndex(nil, cfg.MinioBucket, prefix).List(ctx)
			if err != nil {
				return err
			}
			for _, p := range projects {
				fmt.Printf("%-24s timeline=%-5v script=%-5v updated=%s\n",
					p.ID, p.HasNativeTimeline, p.HasSceneScript, p.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}
		return storage.PrintBucketStatus(ctx, os.Stdout, storage.GetMinioClient(), cfg.MinioBucket, prefix)
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "x", "", "对象前缀，默认 MINIO_PREFIX")
	minioCmd.Flags().BoolVar(&minioProjects, "projects", false, "列出桶内的项目")
	rootCmd.AddCommand(minioCmd)
}
