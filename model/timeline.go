package model

import (
	"reflect"
	"strconv"
	"strings"
)

// TrackKind 轨道类型
type TrackKind string

const (
	TrackKindVideo TrackKind = "Video"
	TrackKindAudio TrackKind = "Audio"
)

// 已识别的 metadata 键
const (
	MetaComponent        = "remotion_component"
	MetaProps            = "props"
	MetaStyle            = "style"
	MetaVolume           = "volume"
	MetaAudioFadeIn      = "audio_fade_in"
	MetaAudioFadeOut     = "audio_fade_out"
	MetaFadeIn           = "fade_in_duration"
	MetaFadeOut          = "fade_out_duration"
	MetaGlobalStart      = "globalTimelineStart"
	MetaObjectFit        = "objectFit"
	MetaEffect           = "effect"
	MetaEffectParams     = "effect_params"
	MetaAudioReactive    = "audioReactive"
	MetaAudioSrc         = "audioSrc"
	MetaProjectNamespace = "project_namespace"
)

// DefaultMediaKey Clip.1 只有单个 media_reference，映射到该键
const DefaultMediaKey = "DEFAULT_MEDIA"

// RationalTime value/rate 形式的时间戳或时长
type RationalTime struct {
	Rate  float64 `json:"rate"`
	Value float64 `json:"value"`
}

// Seconds 返回秒数，rate<=0 时返回 0
func (t RationalTime) Seconds() float64 {
	if t.Rate <= 0 {
		return 0
	}
	return t.Value / t.Rate
}

// Valid reports whether the rate is positive.
func (t RationalTime) Valid() bool {
	return t.Rate > 0
}

// NewRationalTimeFromSeconds builds a RationalTime at the given rate.
func NewRationalTimeFromSeconds(seconds, rate float64) RationalTime {
	return RationalTime{Rate: rate, Value: seconds * rate}
}

// TimeRange 起点与时长
type TimeRange struct {
	StartTime RationalTime `json:"start_time"`
	Duration  RationalTime `json:"duration"`
}

// MediaReference 媒体引用
type MediaReference struct {
	TargetURL string `json:"target_url"`
}

// Metadata 开放的键值集合，各组件按需惰性解析
type Metadata map[string]any

// Has reports whether key is present with a non-nil value.
func (m Metadata) Has(key string) bool {
	if m == nil {
		return false
	}
	v, ok := m[key]
	return ok && v != nil
}

// String 返回字符串值，非字符串返回空串
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Float 返回数值，兼容数字字符串
func (m Metadata) Float(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// FloatOr returns Float(key) or def when absent.
func (m Metadata) FloatOr(key string, def float64) float64 {
	if f, ok := m.Float(key); ok {
		return f
	}
	return def
}

// Bool 兼容 true/"true"/1
func (m Metadata) Bool(key string) bool {
	if m == nil {
		return false
	}
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// Map 返回嵌套对象，不是对象时返回 nil
func (m Metadata) Map(key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Item 轨道中的元素：*Clip、*Gap 或 *Transition
type Item interface {
	itemKind() string
}

// Clip 带媒体引用的片段
type Clip struct {
	Name                    string                    `json:"name,omitempty"`
	SourceRange             TimeRange                 `json:"source_range"`
	MediaReferences         map[string]MediaReference `json:"media_references,omitempty"`
	ActiveMediaReferenceKey string                    `json:"active_media_reference_key,omitempty"`
	Metadata                Metadata                  `json:"metadata,omitempty"`
}

// Gap 空白
type Gap struct {
	Name        string    `json:"name,omitempty"`
	SourceRange TimeRange `json:"source_range"`
}

// Transition 连接相邻两个元素的转场
type Transition struct {
	Name           string       `json:"name,omitempty"`
	InOffset       RationalTime `json:"in_offset"`
	OutOffset      RationalTime `json:"out_offset"`
	TransitionType string       `json:"transition_type,omitempty"`
}

func (*Clip) itemKind() string       { return "Clip" }
func (*Gap) itemKind() string        { return "Gap" }
func (*Transition) itemKind() string { return "Transition" }

// ActiveTarget 返回当前激活的媒体地址；键不存在时 ok=false
func (c *Clip) ActiveTarget() (string, bool) {
	if c == nil || len(c.MediaReferences) == 0 {
		return "", false
	}
	key := c.ActiveMediaReferenceKey
	if key == "" {
		key = DefaultMediaKey
	}
	ref, ok := c.MediaReferences[key]
	if !ok || strings.TrimSpace(ref.TargetURL) == "" {
		return "", false
	}
	return ref.TargetURL, true
}

// ComponentName returns the overlay component tag, if any.
func (c *Clip) ComponentName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Metadata.String(MetaComponent))
}

// Track 轨道
type Track struct {
	Kind     TrackKind `json:"kind"`
	Name     string    `json:"name"`
	Children []Item    `json:"-"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// Stack 并行合成的一组轨道
type Stack struct {
	Children []*Track `json:"children"`
}

// Timeline 根文档
type Timeline struct {
	Name     string   `json:"name,omitempty"`
	Tracks   Stack    `json:"tracks"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Equal 结构化比较，用于重新加载时判断内容是否变化
func (t *Timeline) Equal(other *Timeline) bool {
	if t == nil || other == nil {
		return t == other
	}
	return reflect.DeepEqual(t, other)
}
