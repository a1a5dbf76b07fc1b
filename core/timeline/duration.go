package timeline

// SequentialExtent Σ片段长度 − Σ转场重叠，下限为 0
func SequentialExtent(segments []Segment, overlap int) int {
	total := 0
	for _, s := range segments {
		if s.Duration > 0 {
			total += s.Duration
		}
	}
	total -= overlap
	if total < 0 {
		return 0
	}
	return total
}

// TotalDuration 所有轨道中最长者；都没有正时长时返回 defaultFrames
func TotalDuration(layouts []TrackLayout, defaultFrames int) int {
	longest := 0
	for _, l := range layouts {
		if l.Extent > longest {
			longest = l.Extent
		}
	}
	if longest <= 0 {
		return defaultFrames
	}
	return longest
}
