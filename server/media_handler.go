package server

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"reelcomp/logger"

	"github.com/minio/minio-go/v7"
)

// MediaHandler 服务根下的媒体文件：先查本地目录，找不到再从 MinIO 读取
type MediaHandler struct {
	servedRoot string
	dir        string
	client     *minio.Client
	bucket     string
	prefix     string
}

// NewMediaHandler client 为 nil 时只服务本地文件
func NewMediaHandler(servedRoot, dir string, client *minio.Client, bucket, prefix string) *MediaHandler {
	return &MediaHandler{
		servedRoot: strings.TrimRight(servedRoot, "/"),
		dir:        dir,
		client:     client,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
	}
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, h.servedRoot)
	rel = path.Clean("/" + rel)
	if rel == "/" {
		http.NotFound(w, r)
		return
	}

	if h.dir != "" {
		local := filepath.Join(h.dir, filepath.FromSlash(rel))
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			http.ServeFile(w, r, local)
			return
		}
	}

	if h.client == nil {
		http.NotFound(w, r)
		return
	}

	objectPath := strings.TrimPrefix(rel, "/")
	if h.prefix != "" {
		objectPath = h.prefix + "/" + objectPath
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := h.client.GetObject(ctx, h.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := info.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if t := mime.TypeByExtension(path.Ext(objectPath)); t != "" {
			contentType = t
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")

	// minio.Object 实现了 io.ReadSeeker，可以直接支持 Range 请求
	http.ServeContent(w, r, path.Base(objectPath), info.LastModified, object)
	logger.Debug("从 MinIO 提供媒体文件", logger.String("object", objectPath))
}
