package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument 文档为空
var ErrEmptyDocument = errors.New("empty timeline document")

// rawMediaRef 兼容 ExternalReference.1 / MissingReference.1
type rawMediaRef struct {
	Schema    string `json:"OTIO_SCHEMA,omitempty"`
	TargetURL string `json:"target_url"`
}

// rawNode 同时覆盖 Timeline/Stack/Track/Clip/Gap/Transition 的字段，按 schema 或字段特征区分
type rawNode struct {
	Schema                  string                 `json:"OTIO_SCHEMA,omitempty"`
	Name                    string                 `json:"name,omitempty"`
	Kind                    string                 `json:"kind,omitempty"`
	Tracks                  json.RawMessage        `json:"tracks,omitempty"`
	Children                []json.RawMessage      `json:"children,omitempty"`
	Metadata                Metadata               `json:"metadata,omitempty"`
	SourceRange             *TimeRange             `json:"source_range,omitempty"`
	MediaReferences         map[string]rawMediaRef `json:"media_references,omitempty"`
	MediaReference          *rawMediaRef           `json:"media_reference,omitempty"`
	ActiveMediaReferenceKey string                 `json:"active_media_reference_key,omitempty"`
	InOffset                *RationalTime          `json:"in_offset,omitempty"`
	OutOffset               *RationalTime          `json:"out_offset,omitempty"`
	TransitionType          string                 `json:"transition_type,omitempty"`
	Type                    string                 `json:"type,omitempty"`
}

func (n *rawNode) schemaName() string {
	name, _, _ := strings.Cut(n.Schema, ".")
	return name
}

// DecodeTimeline 解析时间线文档。支持带 OTIO_SCHEMA 的标准 OTIO JSON，
// 也支持省略 schema 的精简形式（按字段推断元素类型）。
func DecodeTimeline(data []byte) (*Timeline, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyDocument
	}

	var root rawNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if s := root.schemaName(); s != "" && s != "Timeline" {
		return nil, fmt.Errorf("decode timeline: unexpected root schema %q", root.Schema)
	}

	tl := &Timeline{
		Name:     root.Name,
		Metadata: normalizeMetadata(root.Metadata),
	}

	tracks, err := decodeStackChildren(root.Tracks)
	if err != nil {
		return nil, err
	}
	tl.Tracks.Children = tracks
	return tl, nil
}

// decodeStackChildren 接受 Stack 对象或直接的轨道数组
func decodeStackChildren(raw json.RawMessage) ([]*Track, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var children []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &children); err != nil {
			return nil, fmt.Errorf("decode tracks: %w", err)
		}
	} else {
		var stack rawNode
		if err := json.Unmarshal(raw, &stack); err != nil {
			return nil, fmt.Errorf("decode stack: %w", err)
		}
		children = stack.Children
	}

	tracks := make([]*Track, 0, len(children))
	for i, c := range children {
		var node rawNode
		if err := json.Unmarshal(c, &node); err != nil {
			return nil, fmt.Errorf("decode track %d: %w", i, err)
		}
		if s := node.schemaName(); s != "" && s != "Track" {
			// 嵌套 Stack 等结构不参与合成
			continue
		}
		track, err := decodeTrack(&node)
		if err != nil {
			return nil, fmt.Errorf("decode track %d (%s): %w", i, node.Name, err)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func decodeTrack(node *rawNode) (*Track, error) {
	track := &Track{
		Kind:     ParseTrackKind(node.Kind),
		Name:     node.Name,
		Metadata: normalizeMetadata(node.Metadata),
	}
	for j, c := range node.Children {
		var child rawNode
		if err := json.Unmarshal(c, &child); err != nil {
			return nil, fmt.Errorf("item %d: %w", j, err)
		}
		if item := decodeItem(&child); item != nil {
			track.Children = append(track.Children, item)
		}
	}
	return track, nil
}

// decodeItem 无法识别的元素返回 nil
func decodeItem(n *rawNode) Item {
	switch n.schemaName() {
	case "Clip":
		return n.toClip()
	case "Gap":
		return n.toGap()
	case "Transition":
		return n.toTransition()
	case "":
	default:
		return nil
	}

	// 显式的 kind/type 优先于字段推断
	switch n.declaredItemKind() {
	case "clip":
		return n.toClip()
	case "gap":
		return n.toGap()
	case "transition":
		return n.toTransition()
	}

	switch {
	case n.InOffset != nil || n.OutOffset != nil || n.TransitionType != "":
		return n.toTransition()
	case n.MediaReferences != nil || n.MediaReference != nil || n.ActiveMediaReferenceKey != "":
		return n.toClip()
	case n.Metadata.Has(MetaComponent):
		return n.toClip()
	case n.SourceRange != nil && len(n.Metadata) > 0:
		// Gap 只有 source_range，带 metadata 的按 Clip 处理，媒体缺失时渲染为错误占位
		return n.toClip()
	case n.SourceRange != nil:
		return n.toGap()
	}
	return nil
}

func (n *rawNode) declaredItemKind() string {
	for _, v := range []string{n.Kind, n.Type} {
		switch k := strings.ToLower(strings.TrimSpace(v)); k {
		case "clip", "gap", "transition":
			return k
		}
	}
	return ""
}

func (n *rawNode) toClip() *Clip {
	clip := &Clip{
		Name:                    n.Name,
		ActiveMediaReferenceKey: n.ActiveMediaReferenceKey,
		Metadata:                normalizeMetadata(n.Metadata),
	}
	if n.SourceRange != nil {
		clip.SourceRange = *n.SourceRange
	}
	if len(n.MediaReferences) > 0 {
		clip.MediaReferences = make(map[string]MediaReference, len(n.MediaReferences))
		for k, ref := range n.MediaReferences {
			clip.MediaReferences[k] = MediaReference{TargetURL: ref.TargetURL}
		}
	} else if n.MediaReference != nil {
		clip.MediaReferences = map[string]MediaReference{
			DefaultMediaKey: {TargetURL: n.MediaReference.TargetURL},
		}
		if clip.ActiveMediaReferenceKey == "" {
			clip.ActiveMediaReferenceKey = DefaultMediaKey
		}
	}
	return clip
}

func (n *rawNode) toGap() *Gap {
	gap := &Gap{Name: n.Name}
	if n.SourceRange != nil {
		gap.SourceRange = *n.SourceRange
	}
	return gap
}

func (n *rawNode) toTransition() *Transition {
	tr := &Transition{Name: n.Name, TransitionType: n.TransitionType}
	if n.InOffset != nil {
		tr.InOffset = *n.InOffset
	}
	if n.OutOffset != nil {
		tr.OutOffset = *n.OutOffset
	}
	return tr
}

// ParseTrackKind 大小写不敏感，未知类型按 Video 处理
func ParseTrackKind(s string) TrackKind {
	if strings.EqualFold(strings.TrimSpace(s), string(TrackKindAudio)) {
		return TrackKindAudio
	}
	return TrackKindVideo
}

func normalizeMetadata(m Metadata) Metadata {
	if len(m) == 0 {
		return nil
	}
	return m
}

// EncodeTimeline 以标准 OTIO JSON 输出，用于快照持久化
func EncodeTimeline(tl *Timeline) ([]byte, error) {
	if tl == nil {
		return nil, ErrEmptyDocument
	}

	tracks := make([]map[string]any, 0, len(tl.Tracks.Children))
	for _, track := range tl.Tracks.Children {
		children := make([]map[string]any, 0, len(track.Children))
		for _, item := range track.Children {
			children = append(children, encodeItem(item))
		}
		t := map[string]any{
			"OTIO_SCHEMA": "Track.1",
			"name":        track.Name,
			"kind":        string(track.Kind),
			"children":    children,
		}
		if len(track.Metadata) > 0 {
			t["metadata"] = track.Metadata
		}
		tracks = append(tracks, t)
	}

	doc := map[string]any{
		"OTIO_SCHEMA": "Timeline.1",
		"name":        tl.Name,
		"tracks": map[string]any{
			"OTIO_SCHEMA": "Stack.1",
			"children":    tracks,
		},
	}
	if len(tl.Metadata) > 0 {
		doc["metadata"] = tl.Metadata
	}
	return json.Marshal(doc)
}

func encodeItem(item Item) map[string]any {
	switch v := item.(type) {
	case *Clip:
		out := map[string]any{
			"OTIO_SCHEMA":  "Clip.2",
			"name":         v.Name,
			"source_range": v.SourceRange,
		}
		if len(v.MediaReferences) > 0 {
			refs := make(map[string]any, len(v.MediaReferences))
			for k, ref := range v.MediaReferences {
				refs[k] = map[string]any{"OTIO_SCHEMA": "ExternalReference.1", "target_url": ref.TargetURL}
			}
			out["media_references"] = refs
		}
		if v.ActiveMediaReferenceKey != "" {
			out["active_media_reference_key"] = v.ActiveMediaReferenceKey
		}
		if len(v.Metadata) > 0 {
			out["metadata"] = v.Metadata
		}
		return out
	case *Gap:
		return map[string]any{"OTIO_SCHEMA": "Gap.1", "name": v.Name, "source_range": v.SourceRange}
	case *Transition:
		out := map[string]any{
			"OTIO_SCHEMA": "Transition.1",
			"name":        v.Name,
			"in_offset":   v.InOffset,
			"out_offset":  v.OutOffset,
		}
		if v.TransitionType != "" {
			out["transition_type"] = v.TransitionType
		}
		return out
	}
	return map[string]any{}
}
