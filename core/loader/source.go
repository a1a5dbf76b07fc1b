package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"reelcomp/model"
)

var (
	// ErrNotFound 文档不存在
	ErrNotFound = errors.New("document not found")
	// ErrNoProject 索引为空或没有可用项目
	ErrNoProject = errors.New("no project available")
	// ErrNoDocument 项目既没有时间线也没有脚本
	ErrNoDocument = errors.New("project has no timeline or scene script")
)

// Fetcher 按 key（项目路径/文件名）读取文档
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ProjectIndex 项目索引
type ProjectIndex interface {
	List(ctx context.Context) ([]model.Project, error)
}

// SnapshotStore 持久化最近一次成功加载的时间线，进程重启后仍可兜底
type SnapshotStore interface {
	Save(ctx context.Context, projectID string, doc []byte) error
	Load(ctx context.Context, projectID string) ([]byte, error)
}

// FileFetcher 从本地目录读取
type FileFetcher struct {
	Root string
}

// Fetch 实现 Fetcher
func (f FileFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.Join(f.Root, filepath.FromSlash(key))
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// HTTPFetcher 从 HTTP 服务读取，例如前端 dev server 的 public 目录
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded client timeout.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch 实现 Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.Path = path.Join(u.Path, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u.String())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u.String(), resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// StaticIndex 只有一个项目的索引，未配置索引时使用
type StaticIndex []model.Project

// List 实现 ProjectIndex
func (s StaticIndex) List(context.Context) ([]model.Project, error) {
	return s, nil
}
