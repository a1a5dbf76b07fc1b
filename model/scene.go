package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SceneResource 场景候选素材，本地路径或远程地址
type SceneResource struct {
	ID       string `json:"id,omitempty"`
	Path     string `json:"path,omitempty"` // 本地文件
	URL      string `json:"url,omitempty"`  // 远程地址
	Kind     string `json:"kind,omitempty"` // image | video
	Selected bool   `json:"selected,omitempty"`
}

// IsLocal reports whether the resource points at a downloaded local file.
func (r SceneResource) IsLocal() bool {
	return strings.TrimSpace(r.Path) != ""
}

// Locator 本地优先
func (r SceneResource) Locator() string {
	if r.IsLocal() {
		return r.Path
	}
	return r.URL
}

// Scene 脚本中的一个场景
type Scene struct {
	ID         string          `json:"id"`
	Text       string          `json:"text,omitempty"`
	Start      float64         `json:"start"` // 秒
	End        float64         `json:"end"`   // 秒
	Resources  []SceneResource `json:"resources,omitempty"`
	SelectedID string          `json:"selectedId,omitempty"`
}

// Duration 场景时长（秒），异常数据返回 0
func (s Scene) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// VoiceTrack 旁白音频
type VoiceTrack struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
}

// SceneScript 没有原生时间线文档时使用的脚本+素材描述
type SceneScript struct {
	Title    string      `json:"title,omitempty"`
	Scenes   []Scene     `json:"scenes"`
	Voice    *VoiceTrack `json:"voice,omitempty"`
	Captions *bool       `json:"captions,omitempty"` // 缺省生成字幕轨
}

// CaptionsEnabled 默认开启
func (s *SceneScript) CaptionsEnabled() bool {
	return s.Captions == nil || *s.Captions
}

// DecodeSceneScript 解析脚本文档
func DecodeSceneScript(data []byte) (*SceneScript, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyDocument
	}
	var script SceneScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("decode scene script: %w", err)
	}
	return &script, nil
}
