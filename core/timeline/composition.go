package timeline

import (
	"sort"

	"reelcomp/model"
)

// Modulator 为音频响应轨道提供逐帧位移，必须是帧号的纯函数
type Modulator interface {
	Offset(src string, frame int, fps float64) (dx, dy float64)
}

// Options 合成参数
type Options struct {
	FPS                    float64
	DefaultDurationSeconds float64
	Resolver               Resolver
	Components             *ComponentRegistry
	Modulator              Modulator
}

// Composition 一个时间线快照的完整布局。构建后只读，可被多个 goroutine 并发查询。
type Composition struct {
	FPS            float64
	DurationFrames int
	Layouts        []TrackLayout
	Dropped        []DroppedItem

	modulator Modulator
}

// Instruction 某一帧上一个待绘制元素
type Instruction struct {
	Layer       int            `json:"layer"`
	Track       string         `json:"track"`
	Role        TrackRole      `json:"role"`
	Kind        SegmentKind    `json:"kind"`
	Locator     string         `json:"locator,omitempty"`
	MediaKind   MediaKind      `json:"mediaKind,omitempty"`
	Component   ComponentKind  `json:"component,omitempty"`
	Props       map[string]any `json:"props,omitempty"`
	Style       map[string]any `json:"style,omitempty"`
	ObjectFit   string         `json:"objectFit,omitempty"`
	Effect      string         `json:"effect,omitempty"`
	EffectArgs  map[string]any `json:"effectParams,omitempty"`
	Transition  string         `json:"transition,omitempty"`
	Opacity     float64        `json:"opacity"`
	Volume      float64        `json:"volume"`
	OffsetX     float64        `json:"offsetX"`
	OffsetY     float64        `json:"offsetY"`
	LocalFrame  int            `json:"localFrame"`
	SourceFrame int            `json:"sourceFrame"`
	Error       string         `json:"error,omitempty"`
}

// Compose 对时间线做完整布局。nil 时间线得到只有默认时长的空合成。
func Compose(tl *model.Timeline, opts Options) *Composition {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.DefaultDurationSeconds <= 0 {
		opts.DefaultDurationSeconds = 30
	}
	if tl != nil && opts.Resolver.Namespace == "" {
		if ns := tl.Metadata.String(model.MetaProjectNamespace); ns != "" {
			opts.Resolver.Namespace = ns
		}
	}

	layoutOpts := LayoutOptions{FPS: opts.FPS, Resolver: opts.Resolver, Components: opts.Components}
	comp := &Composition{FPS: opts.FPS, modulator: opts.Modulator}

	if tl != nil {
		for _, track := range tl.Tracks.Children {
			if track == nil {
				continue
			}
			var layout TrackLayout
			switch Classify(track) {
			case RoleOverlay:
				layout = LayoutOverlay(track, layoutOpts)
			case RoleSequential:
				layout = LayoutSequential(track, layoutOpts)
			default:
				layout = LayoutParallel(track, layoutOpts)
			}
			comp.Layouts = append(comp.Layouts, layout)
			comp.Dropped = append(comp.Dropped, layout.Dropped...)
		}
	}

	comp.DurationFrames = TotalDuration(comp.Layouts, SecondsToFrames(opts.DefaultDurationSeconds, opts.FPS))
	return comp
}

// FrameAt 返回第 frame 帧上所有活动元素，按层级从下到上排序。spacer 不输出。
func (c *Composition) FrameAt(frame int) []Instruction {
	if c == nil || frame < 0 || frame >= c.DurationFrames {
		return nil
	}

	var out []Instruction
	for layer := range c.Layouts {
		layout := &c.Layouts[layer]

		var dx, dy float64
		if layout.AudioReactive && c.modulator != nil {
			dx, dy = c.modulator.Offset(layout.AudioSrc, frame, c.FPS)
		}
		trackFade := 1.0
		if frame < layout.Extent {
			trackFade = layout.Fade.At(frame)
		}

		for idx := range layout.Segments {
			seg := &layout.Segments[idx]
			if seg.Kind == SegmentSpacer || !seg.Contains(frame) {
				continue
			}
			local := frame - seg.Start
			inst := Instruction{
				Layer:       layer,
				Track:       layout.Name,
				Role:        layout.Role,
				Kind:        seg.Kind,
				Locator:     seg.Locator,
				MediaKind:   seg.MediaKind,
				Component:   seg.Component,
				Props:       seg.Props,
				Style:       seg.Style,
				ObjectFit:   seg.ObjectFit,
				Effect:      seg.Effect,
				EffectArgs:  seg.EffectParams,
				Opacity:     seg.Opacity.At(local) * trackFade,
				Volume:      seg.BaseVolume * seg.Volume.At(local) * trackFade,
				OffsetX:     dx,
				OffsetY:     dy,
				LocalFrame:  local,
				SourceFrame: seg.SourceStart + local,
				Error:       seg.Reason,
			}
			applyTransitions(&inst, layout.Transitions, idx, frame)
			out = append(out, inst)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// applyTransitions 转场窗口内：离场片段乘 1-p，入场片段乘 p
func applyTransitions(inst *Instruction, windows []TransitionWindow, segIndex, frame int) {
	for _, w := range windows {
		if frame < w.Start || frame >= w.Start+w.Frames {
			continue
		}
		p := w.Progress(frame)
		switch segIndex {
		case w.Outgoing:
			inst.Opacity *= 1 - p
			inst.Volume *= 1 - p
		case w.Incoming:
			inst.Opacity *= p
			inst.Volume *= p
		default:
			continue
		}
		inst.Transition = w.Type
	}
}

// Layout 按名称查找轨道布局
func (c *Composition) Layout(name string) (*TrackLayout, bool) {
	for i := range c.Layouts {
		if c.Layouts[i].Name == name {
			return &c.Layouts[i], true
		}
	}
	return nil, false
}
