package timeline

import (
	"reelcomp/model"
)

// LayoutParallel 音频轨：有 globalTimelineStart 的元素按绝对位置放置，
// 否则接在前一个元素之后；元素之间互不影响，允许重叠。
func LayoutParallel(track *model.Track, opts LayoutOptions) TrackLayout {
	layout := TrackLayout{Name: track.Name, Kind: track.Kind, Role: RoleParallel}

	pos := 0
	for i, item := range track.Children {
		switch v := item.(type) {
		case *model.Clip:
			seg, reason, ok := resolveClip(v, i, track.Kind, opts)
			if !ok {
				layout.drop(i, reason)
				continue
			}
			start := pos
			if secs, ok := v.Metadata.Float(model.MetaGlobalStart); ok {
				start = SecondsToFrames(secs, opts.FPS)
			}
			seg.Start = start
			seg.IntendedStart = start
			layout.Segments = append(layout.Segments, seg)
			pos = seg.End()
			if pos > layout.Extent {
				layout.Extent = pos
			}

		case *model.Gap:
			frames, err := Frames(v.SourceRange.Duration, opts.FPS)
			if err != nil {
				layout.drop(i, err.Error())
				continue
			}
			if frames > 0 {
				pos += frames
			}
		}
	}

	applyTrackFlags(&layout, track, opts)
	return layout
}
