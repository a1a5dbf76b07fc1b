package reactive

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedWAV 只支持整数 PCM
var ErrUnsupportedWAV = errors.New("unsupported wav format")

const (
	wavFormatPCM = 1

	// 头部声明的长度不可信，按块读取并限制总时长
	maxDecodeSeconds = 600
	maxSampleRate    = 384000
	decodeBlock      = 8192
)

// DecodeWAV 解码 PCM WAV，多声道取平均，返回 [-1,1] 的单声道采样和采样率。
// 超过 maxDecodeSeconds 的部分被截断。
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
		}
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrUnsupportedWAV)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("%w: format %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}

	channels := int(d.NumChans)
	sampleRate := int(d.SampleRate)
	bits := int(d.BitDepth)
	switch {
	case bits != 16 && bits != 24 && bits != 32:
		return nil, 0, fmt.Errorf("%w: %d bit", ErrUnsupportedWAV, bits)
	case channels <= 0:
		return nil, 0, fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, channels)
	case sampleRate <= 0 || sampleRate > maxSampleRate:
		return nil, 0, fmt.Errorf("%w: sample rate %d", ErrUnsupportedWAV, sampleRate)
	}

	scale := float64(int64(1) << (bits - 1))
	limit := maxDecodeSeconds * sampleRate

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, decodeBlock*channels),
	}
	var (
		out []float64
		sum float64
		ch  int
	)
	for len(out) < limit {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("read pcm data: %w", err)
		}
		if n == 0 {
			break
		}
		// 块边界不一定落在整帧上，跨块累计声道
		for _, v := range buf.Data[:n] {
			sum += float64(v) / scale
			ch++
			if ch == channels {
				out = append(out, sum/float64(channels))
				sum, ch = 0, 0
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, sampleRate, nil
}
