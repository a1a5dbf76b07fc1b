package timeline

import (
	"reelcomp/model"
)

// LayoutSequential 按源顺序首尾相接排列。转场不增加时长，而是从已累计的时长中扣除重叠部分，
// 因此转场后的片段会与前一个片段在转场窗口内重叠。位于轨道开头的转场没有可重叠的前驱，
// 只缩短轨道总时长。
func LayoutSequential(track *model.Track, opts LayoutOptions) TrackLayout {
	layout := TrackLayout{Name: track.Name, Kind: track.Kind, Role: RoleSequential}

	total := 0
	pending := -1 // 等待后继片段的转场窗口下标
	for i, item := range track.Children {
		switch v := item.(type) {
		case *model.Clip:
			seg, reason, ok := resolveClip(v, i, track.Kind, opts)
			if !ok {
				layout.drop(i, reason)
				continue
			}
			seg.Start = total
			total += seg.Duration
			layout.Segments = append(layout.Segments, seg)
			if pending >= 0 {
				layout.Transitions[pending].Incoming = len(layout.Segments) - 1
				pending = -1
			}

		case *model.Gap:
			frames, err := Frames(v.SourceRange.Duration, opts.FPS)
			if err != nil {
				layout.drop(i, err.Error())
				continue
			}
			if frames <= 0 {
				continue
			}
			layout.Segments = append(layout.Segments, Segment{
				Start:     total,
				Duration:  frames,
				Kind:      SegmentSpacer,
				ItemIndex: i,
			})
			total += frames
			if pending >= 0 {
				layout.Transitions[pending].Incoming = len(layout.Segments) - 1
				pending = -1
			}

		case *model.Transition:
			overlap, err := transitionOverlap(v, opts.FPS)
			if err != nil {
				layout.drop(i, err.Error())
				continue
			}
			if overlap <= 0 {
				continue
			}
			// 总时长扣除完整的重叠量（SequentialExtent 负责下限）；
			// 放置游标只能回退到 0，窗口长度取实际回退的帧数
			layout.Overlap += overlap
			window := overlap
			if window > total {
				window = total
			}
			if window <= 0 {
				continue
			}
			total -= window
			layout.Transitions = append(layout.Transitions, TransitionWindow{
				Start:    total,
				Frames:   window,
				Type:     NormalizeTransitionType(v.TransitionType),
				Outgoing: len(layout.Segments) - 1,
				Incoming: -1,
			})
			pending = len(layout.Transitions) - 1
		}
	}

	layout.Extent = SequentialExtent(layout.Segments, layout.Overlap)
	applyTrackFlags(&layout, track, opts)
	return layout
}

func transitionOverlap(tr *model.Transition, fps float64) (int, error) {
	in, err := Frames(tr.InOffset, fps)
	if err != nil {
		return 0, err
	}
	out, err := Frames(tr.OutOffset, fps)
	if err != nil {
		return 0, err
	}
	overlap := in + out
	if overlap < 0 {
		return 0, nil
	}
	return overlap, nil
}

// 已知的转场类型，其余一律按交叉淡化处理
const (
	TransitionCrossFade = "cross_fade"
	TransitionWipe      = "wipe"
	TransitionSlide     = "slide"
)

// NormalizeTransitionType 兼容 OTIO 的 SMPTE_Dissolve 等写法
func NormalizeTransitionType(t string) string {
	switch normalizeName(t) {
	case "wipe", "smptewipe":
		return TransitionWipe
	case "slide", "push":
		return TransitionSlide
	default:
		return TransitionCrossFade
	}
}
