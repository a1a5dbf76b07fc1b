package timeline

// Envelope 分段线性渐变：0→1 (Enter 帧)，平台，1→0 (Exit 帧)
type Envelope struct {
	Duration int
	Enter    int
	Exit     int
}

// NewEnvelope 负值按 0 处理；Enter+Exit 超过时长时按比例压缩，保证平台长度非负
func NewEnvelope(duration, enter, exit int) Envelope {
	if duration < 0 {
		duration = 0
	}
	if enter < 0 {
		enter = 0
	}
	if exit < 0 {
		exit = 0
	}
	if enter+exit > duration {
		total := enter + exit
		enter = enter * duration / total
		exit = duration - enter
	}
	return Envelope{Duration: duration, Enter: enter, Exit: exit}
}

// Flat reports whether the envelope is constant 1.
func (e Envelope) Flat() bool {
	return e.Enter == 0 && e.Exit == 0
}

// At 返回第 frame 帧的值，范围 [0,1]。frame 为片段内的相对帧。
func (e Envelope) At(frame int) float64 {
	if e.Flat() {
		return 1
	}
	v := 1.0
	if e.Enter > 0 {
		if frame <= 0 {
			return 0
		}
		if frame < e.Enter {
			v = float64(frame) / float64(e.Enter)
		}
	}
	if e.Exit > 0 {
		if frame >= e.Duration {
			return 0
		}
		if start := e.Duration - e.Exit; frame > start {
			if out := float64(e.Duration-frame) / float64(e.Exit); out < v {
				v = out
			}
		}
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
