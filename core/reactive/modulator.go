package reactive

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Config 抖动参数
type Config struct {
	// 常驻的低幅摆动
	BaselineAmplitude float64 // 像素
	BaselineFreqX     float64 // Hz
	BaselineFreqY     float64 // Hz

	// 音量映射：平均频谱幅度 [InputMin, InputMax] → [0, MaxDisplacement] 像素，超出范围时截断
	InputMin        float64
	InputMax        float64
	MaxDisplacement float64
}

// DefaultConfig 默认参数
var DefaultConfig = Config{
	BaselineAmplitude: 2,
	BaselineFreqX:     0.21,
	BaselineFreqY:     0.17,
	InputMin:          0.0005,
	InputMax:          0.02,
	MaxDisplacement:   24,
}

// Modulator 根据音频幅度计算整条轨道的位移。结果只依赖 (src, frame, fps)，
// 同一帧总是得到相同的抖动。
type Modulator struct {
	cfg     Config
	spectra SpectrumSource
}

// NewModulator spectra 为 nil 时只输出基线摆动
func NewModulator(cfg Config, spectra SpectrumSource) *Modulator {
	return &Modulator{cfg: cfg, spectra: spectra}
}

// Offset 实现 timeline.Modulator
func (m *Modulator) Offset(src string, frame int, fps float64) (float64, float64) {
	if fps <= 0 {
		return 0, 0
	}
	t := float64(frame) / fps
	dx, dy := m.baseline(t)

	if m.spectra == nil || src == "" {
		return dx, dy
	}
	mags, ok := m.spectra.Spectrum(src, t)
	if !ok || len(mags) == 0 {
		return dx, dy
	}

	level := Mean(mags)
	disp := Interpolate(level, m.cfg.InputMin, m.cfg.InputMax, 0, m.cfg.MaxDisplacement)
	return dx + disp*FrameNoise(frame, 0), dy + disp*FrameNoise(frame, 1)
}

func (m *Modulator) baseline(t float64) (float64, float64) {
	a := m.cfg.BaselineAmplitude
	return a * math.Sin(2*math.Pi*m.cfg.BaselineFreqX*t),
		a * math.Sin(2*math.Pi*m.cfg.BaselineFreqY*t+1.3)
}

// Mean 平均幅度
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Interpolate 线性映射，输入超出 [inMin, inMax] 时截断到输出边界
func Interpolate(v, inMin, inMax, outMin, outMax float64) float64 {
	if inMax <= inMin {
		return outMin
	}
	if v <= inMin {
		return outMin
	}
	if v >= inMax {
		return outMax
	}
	return outMin + (v-inMin)/(inMax-inMin)*(outMax-outMin)
}

// FrameNoise 由帧号和轴确定的伪随机数，范围 [-1, 1]
func FrameNoise(frame, axis int) float64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(int64(frame)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(axis))
	_, _ = h.Write(buf[:])
	return float64(h.Sum64()>>11)/float64(1<<53)*2 - 1
}
