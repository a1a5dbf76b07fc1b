package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"reelcomp/config"
	"reelcomp/core/loader"
	"reelcomp/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
)

// InitMinio 初始化 MinIO 客户端并确认存储桶存在
func InitMinio(cfg *config.Config) error {
	logger.Info("正在连接 MinIO 服务器",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("region", cfg.MinioRegion),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶不存在: %s", cfg.MinioBucket)
	}

	minioClient = client
	logger.Info("MinIO 客户端初始化成功", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// MinioFetcher 从存储桶读取项目文档，key 形如 <prefix>/<project>/timeline.json
type MinioFetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioFetcher client 为 nil 时使用全局客户端
func NewMinioFetcher(client *minio.Client, bucket, prefix string) *MinioFetcher {
	if client == nil {
		client = minioClient
	}
	return &MinioFetcher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ObjectName 文档 key 对应的对象名
func (f *MinioFetcher) ObjectName(key string) string {
	if f.prefix == "" {
		return strings.TrimLeft(key, "/")
	}
	return path.Join(f.prefix, key)
}

// Fetch 实现 loader.Fetcher
func (f *MinioFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	if f.client == nil {
		return nil, fmt.Errorf("MinIO 客户端未初始化")
	}
	name := f.ObjectName(key)

	obj, err := f.client.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，读取时才会拿到 NoSuchKey
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", loader.ErrNotFound, f.bucket, name)
		}
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
