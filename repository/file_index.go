package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"reelcomp/model"
)

// FileProjectIndex 从 JSON 文件读取项目索引。
// 文件可以是项目数组，也可以是 {"projects": [...]}。
type FileProjectIndex struct {
	Path string
}

// NewFileProjectIndex 创建文件索引
func NewFileProjectIndex(path string) *FileProjectIndex {
	return &FileProjectIndex{Path: path}
}

// List 每次调用都重新读取文件，索引变化随轮询生效
func (i *FileProjectIndex) List(ctx context.Context) ([]model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(i.Path)
	if err != nil {
		return nil, fmt.Errorf("read project index: %w", err)
	}
	return DecodeProjectIndex(data)
}

// DecodeProjectIndex 解析索引文档，按 position 稳定排序，缺省 path 取 id
func DecodeProjectIndex(data []byte) ([]model.Project, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var projects []model.Project
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &projects); err != nil {
			return nil, fmt.Errorf("decode project index: %w", err)
		}
	} else {
		var wrapped struct {
			Projects []model.Project `json:"projects"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode project index: %w", err)
		}
		projects = wrapped.Projects
	}

	out := projects[:0]
	for _, p := range projects {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		if p.Path == "" {
			p.Path = p.ID
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Position < out[b].Position })
	return out, nil
}
