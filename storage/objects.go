package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"reelcomp/core/loader"
	"reelcomp/model"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// ListBucketObjects 列出存储桶中 prefix 下的对象
func ListBucketObjects(ctx context.Context, client *minio.Client, bucket, prefix string) ([]ObjectInfo, *BucketStats, error) {
	if client == nil {
		return nil, nil, fmt.Errorf("MinIO 客户端未初始化")
	}

	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// PrintBucketStatus 打印存储桶状态与按媒体类型的用量
func PrintBucketStatus(ctx context.Context, w io.Writer, client *minio.Client, bucket, prefix string) error {
	objects, stats, err := ListBucketObjects(ctx, client, bucket, prefix)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "存储桶: %s\n", bucket)
	fmt.Fprintf(w, "前缀: %s\n", prefix)
	fmt.Fprintf(w, "总文件数: %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "总大小: %s\n", FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "最后更新: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}

	usage := Usage(objects)
	kinds := make([]string, 0, len(usage))
	for k := range usage {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-8s %s\n", k, FormatSize(usage[k]))
	}
	return nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Usage 按媒体类型统计大小
func Usage(objects []ObjectInfo) map[string]int64 {
	usage := make(map[string]int64)
	for _, obj := range objects {
		usage[InferMediaType(obj.Key)] += obj.Size
	}
	return usage
}

// InferMediaType 从文件名推断类型
func InferMediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3", ".wav", ".flac", ".m4a", ".aac":
		return "audio"
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg":
		return "image"
	case ".mp4", ".mov", ".webm", ".mkv":
		return "video"
	case ".json", ".otio":
		return "document"
	default:
		return "other"
	}
}

// ProjectsFromObjects 由对象列表推导项目索引：<prefix>/<id>/timeline.json 或 script.json
func ProjectsFromObjects(objects []ObjectInfo, prefix string) []model.Project {
	prefix = strings.Trim(prefix, "/")
	byID := make(map[string]*model.Project)
	var order []string

	for _, obj := range objects {
		key := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		dir, file := path.Split(key)
		id := strings.TrimSuffix(dir, "/")
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		if file != loader.DefaultTimelineFile && file != loader.DefaultScriptFile {
			continue
		}

		p, ok := byID[id]
		if !ok {
			p = &model.Project{ID: id, Path: id, UpdatedAt: obj.LastModified}
			byID[id] = p
			order = append(order, id)
		}
		if file == loader.DefaultTimelineFile {
			p.HasNativeTimeline = true
		} else {
			p.HasSceneScript = true
		}
		if obj.LastModified.After(p.UpdatedAt) {
			p.UpdatedAt = obj.LastModified
		}
	}

	sort.Strings(order)
	projects := make([]model.Project, 0, len(order))
	for i, id := range order {
		p := *byID[id]
		p.Position = i
		projects = append(projects, p)
	}
	return projects
}

// MinioIndex 以存储桶目录结构作为项目索引
type MinioIndex struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioIndex client 为 nil 时使用全局客户端
func NewMinioIndex(client *minio.Client, bucket, prefix string) *MinioIndex {
	if client == nil {
		client = minioClient
	}
	return &MinioIndex{client: client, bucket: bucket, prefix: prefix}
}

// List 实现 loader.ProjectIndex
func (i *MinioIndex) List(ctx context.Context) ([]model.Project, error) {
	objects, _, err := ListBucketObjects(ctx, i.client, i.bucket, i.prefix)
	if err != nil {
		return nil, err
	}
	return ProjectsFromObjects(objects, i.prefix), nil
}
