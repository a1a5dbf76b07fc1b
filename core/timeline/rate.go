package timeline

import (
	"errors"
	"fmt"
	"math"

	"reelcomp/model"
)

// ErrInvalidRate rate<=0 的时间值无法换算
var ErrInvalidRate = errors.New("rational time rate must be positive")

// Frames 将有理时间换算为目标帧率下的帧数：round(value/rate*fps)
func Frames(t model.RationalTime, fps float64) (int, error) {
	if t.Rate <= 0 || math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) {
		return 0, fmt.Errorf("%w: rate=%v", ErrInvalidRate, t.Rate)
	}
	if fps <= 0 {
		return 0, fmt.Errorf("%w: fps=%v", ErrInvalidRate, fps)
	}
	return int(math.Round(t.Value / t.Rate * fps)), nil
}

// SecondsToFrames 用于 metadata 中以秒为单位的字段，负数按 0 处理
func SecondsToFrames(seconds, fps float64) int {
	if seconds <= 0 || fps <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int(math.Round(seconds * fps))
}
