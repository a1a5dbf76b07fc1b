package timeline

import (
	"sort"

	"reelcomp/model"
)

type overlayItem struct {
	seg      Segment
	intended int
}

// LayoutOverlay 将叠加层元素排成一行：按期望开始时间稳定排序，用 spacer 填补空隙；
// 与前一个元素重叠时推迟到前者结束，不裁剪也不叠放。
func LayoutOverlay(track *model.Track, opts LayoutOptions) TrackLayout {
	layout := TrackLayout{Name: track.Name, Kind: track.Kind, Role: RoleOverlay}

	items := make([]overlayItem, 0, len(track.Children))
	for i, item := range track.Children {
		clip, ok := item.(*model.Clip)
		if !ok {
			continue
		}
		seg, reason, ok := resolveClip(clip, i, track.Kind, opts)
		if !ok {
			layout.drop(i, reason)
			continue
		}
		items = append(items, overlayItem{seg: seg, intended: IntendedStart(clip, opts.FPS)})
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].intended < items[b].intended
	})

	cursor := 0
	for _, it := range items {
		if gap := it.intended - cursor; gap > 0 {
			layout.Segments = append(layout.Segments, Segment{
				Start:     cursor,
				Duration:  gap,
				Kind:      SegmentSpacer,
				ItemIndex: -1,
			})
			cursor += gap
		}
		seg := it.seg
		seg.Start = cursor
		seg.IntendedStart = it.intended
		layout.Segments = append(layout.Segments, seg)
		cursor += seg.Duration
	}

	layout.Extent = cursor
	applyTrackFlags(&layout, track, opts)
	return layout
}

// IntendedStart 优先级：globalTimelineStart（秒）> source_range.start_time > 0
func IntendedStart(clip *model.Clip, fps float64) int {
	if secs, ok := clip.Metadata.Float(model.MetaGlobalStart); ok {
		return SecondsToFrames(secs, fps)
	}
	if start, err := Frames(clip.SourceRange.StartTime, fps); err == nil && start > 0 {
		return start
	}
	return 0
}
