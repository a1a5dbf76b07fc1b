package timeline

import (
	"reelcomp/logger"
	"reelcomp/model"
)

// SegmentKind 片段类型
type SegmentKind string

const (
	SegmentMedia            SegmentKind = "media"
	SegmentComponent        SegmentKind = "component"
	SegmentSpacer           SegmentKind = "spacer"
	SegmentErrorPlaceholder SegmentKind = "error"
)

// Segment 解析后的片段，位置和长度均以目标帧率的帧计
type Segment struct {
	Start    int
	Duration int
	Kind     SegmentKind

	Locator   string
	MediaKind MediaKind
	Component ComponentKind
	Props     map[string]any
	Style     map[string]any
	ObjectFit string

	Effect       string
	EffectParams map[string]any

	Opacity     Envelope
	Volume      Envelope
	BaseVolume  float64
	SourceStart int // 素材内的起始帧

	ItemIndex     int // 在轨道 children 中的下标，spacer 为 -1
	IntendedStart int // 叠加层中期望的开始帧
	Reason        string
}

// End 结束帧（不含）
func (s Segment) End() int {
	return s.Start + s.Duration
}

// Contains reports whether frame falls within [Start, End).
func (s Segment) Contains(frame int) bool {
	return frame >= s.Start && frame < s.End()
}

// TransitionWindow 转场区间，前后两个片段在此重叠
type TransitionWindow struct {
	Start    int
	Frames   int
	Type     string
	Outgoing int // 片段下标，-1 表示没有
	Incoming int
}

// Progress 0 → 1
func (w TransitionWindow) Progress(frame int) float64 {
	if w.Frames <= 0 {
		return 1
	}
	p := float64(frame-w.Start) / float64(w.Frames)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// DroppedItem 被丢弃的元素
type DroppedItem struct {
	Track  string `json:"track"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// TrackLayout 一条轨道的布局结果
type TrackLayout struct {
	Name        string
	Kind        model.TrackKind
	Role        TrackRole
	Segments    []Segment
	Transitions []TransitionWindow
	Overlap     int // 已扣除的转场帧数
	Extent      int // 轨道总帧数
	Dropped     []DroppedItem

	Fade          Envelope // 轨道级淡入淡出
	AudioReactive bool
	AudioSrc      string
}

func (l *TrackLayout) drop(index int, reason string) {
	l.Dropped = append(l.Dropped, DroppedItem{Track: l.Name, Index: index, Reason: reason})
	logger.Debug("丢弃时间线元素",
		logger.String("track", l.Name),
		logger.Int("index", index),
		logger.String("reason", reason))
}

// LayoutOptions 布局所需的外部参数
type LayoutOptions struct {
	FPS        float64
	Resolver   Resolver
	Components *ComponentRegistry
}

func (o LayoutOptions) components() *ComponentRegistry {
	if o.Components == nil {
		return DefaultComponents
	}
	return o.Components
}

// resolveClip 将 Clip 转换为片段（Start 由调用方设置）。时长非正或 rate 非法时 ok=false。
func resolveClip(clip *model.Clip, index int, kind model.TrackKind, opts LayoutOptions) (Segment, string, bool) {
	duration, err := Frames(clip.SourceRange.Duration, opts.FPS)
	if err != nil {
		return Segment{}, err.Error(), false
	}
	if duration <= 0 {
		return Segment{}, "non-positive duration", false
	}

	meta := clip.Metadata
	seg := Segment{
		Duration:     duration,
		ItemIndex:    index,
		Style:        meta.Map(model.MetaStyle),
		ObjectFit:    meta.String(model.MetaObjectFit),
		Effect:       meta.String(model.MetaEffect),
		EffectParams: meta.Map(model.MetaEffectParams),
		BaseVolume:   meta.FloatOr(model.MetaVolume, 1),
	}
	if seg.BaseVolume < 0 {
		seg.BaseVolume = 0
	}
	if start, err := Frames(clip.SourceRange.StartTime, opts.FPS); err == nil && start > 0 {
		seg.SourceStart = start
	}
	seg.Opacity = NewEnvelope(duration,
		SecondsToFrames(meta.FloatOr(model.MetaFadeIn, 0), opts.FPS),
		SecondsToFrames(meta.FloatOr(model.MetaFadeOut, 0), opts.FPS))
	seg.Volume = NewEnvelope(duration,
		SecondsToFrames(meta.FloatOr(model.MetaAudioFadeIn, 0), opts.FPS),
		SecondsToFrames(meta.FloatOr(model.MetaAudioFadeOut, 0), opts.FPS))

	if name := clip.ComponentName(); name != "" {
		if ck, ok := opts.components().Lookup(name); ok {
			seg.Component = ck
			props, err := opts.components().Resolve(ck, meta.Map(model.MetaProps), PropsContext{DurationFrames: duration, FPS: opts.FPS})
			if err != nil {
				seg.Kind = SegmentErrorPlaceholder
				seg.Reason = err.Error()
				return seg, "", true
			}
			seg.Kind = SegmentComponent
			seg.Props = props
			return seg, "", true
		}
		// 未知组件按普通媒体处理
		seg.Props = meta.Map(model.MetaProps)
	}

	res := opts.Resolver.ResolveClip(clip, kind)
	seg.Locator = res.Locator
	seg.MediaKind = res.Kind
	if res.Kind == MediaMissingPlaceholder {
		seg.Kind = SegmentErrorPlaceholder
		seg.Reason = "media reference not resolved"
		return seg, "", true
	}
	seg.Kind = SegmentMedia
	return seg, "", true
}

// applyTrackFlags 读取轨道级淡入淡出和音频响应标记；后者也可以写在任一 Clip 上
func applyTrackFlags(layout *TrackLayout, track *model.Track, opts LayoutOptions) {
	fps := opts.FPS
	layout.Fade = NewEnvelope(layout.Extent,
		SecondsToFrames(track.Metadata.FloatOr(model.MetaFadeIn, 0), fps),
		SecondsToFrames(track.Metadata.FloatOr(model.MetaFadeOut, 0), fps))

	if track.Metadata.Bool(model.MetaAudioReactive) {
		layout.AudioReactive = true
		layout.AudioSrc = track.Metadata.String(model.MetaAudioSrc)
	}
	for _, item := range track.Children {
		clip, ok := item.(*model.Clip)
		if !ok || !clip.Metadata.Bool(model.MetaAudioReactive) {
			continue
		}
		layout.AudioReactive = true
		if layout.AudioSrc == "" {
			layout.AudioSrc = clip.Metadata.String(model.MetaAudioSrc)
		}
	}
	if layout.AudioSrc != "" {
		layout.AudioSrc = opts.Resolver.Resolve(layout.AudioSrc, model.TrackKindAudio).Locator
	}
}
