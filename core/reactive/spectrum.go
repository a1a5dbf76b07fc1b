package reactive

import (
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reelcomp/logger"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumSource 提供某个音频在某一时刻的频谱幅度
type SpectrumSource interface {
	Spectrum(src string, seconds float64) ([]float64, bool)
}

// DefaultWindow FFT 窗口长度（采样点）
const DefaultWindow = 512

// PCMSpectrum 基于单声道 PCM 采样的频谱
type PCMSpectrum struct {
	samples    []float64
	sampleRate int
	window     int

	mu    sync.Mutex // fourier.FFT 的工作区不能并发使用
	fft   *fourier.FFT
	frame []float64
	coeff []complex128
}

// NewPCMSpectrum 创建频谱计算器
func NewPCMSpectrum(samples []float64, sampleRate, window int) *PCMSpectrum {
	if window <= 0 {
		window = DefaultWindow
	}
	return &PCMSpectrum{
		samples:    samples,
		sampleRate: sampleRate,
		window:     window,
		fft:        fourier.NewFFT(window),
		frame:      make([]float64, window),
	}
}

// At 返回 seconds 处窗口的幅度谱（window/2 个频点，按窗口长度归一化）。超出音频范围时 ok=false。
func (p *PCMSpectrum) At(seconds float64) ([]float64, bool) {
	if p == nil || p.sampleRate <= 0 || len(p.samples) == 0 || seconds < 0 {
		return nil, false
	}
	start := int(seconds * float64(p.sampleRate))
	if start >= len(p.samples) {
		return nil, false
	}
	end := start + p.window
	if end > len(p.samples) {
		end = len(p.samples)
	}
	return p.magnitudes(p.samples[start:end]), true
}

// magnitudes 窗口不足时补零，返回前 window/2 个频点的幅度
func (p *PCMSpectrum) magnitudes(frame []float64) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(p.frame, frame)
	for i := n; i < len(p.frame); i++ {
		p.frame[i] = 0
	}
	p.coeff = p.fft.Coefficients(p.coeff, p.frame)

	bins := p.window / 2
	out := make([]float64, bins)
	for k := 0; k < bins; k++ {
		out[k] = cmplx.Abs(p.coeff[k]) / float64(p.window)
	}
	return out
}

// Library 按音频地址缓存频谱
type Library struct {
	mu      sync.RWMutex
	spectra map[string]*PCMSpectrum
	root    string // 相对地址的本地根目录
	served  string // 媒体服务根，映射到 root
}

// NewLibrary creates a library that resolves relative sources under root.
func NewLibrary(root string) *Library {
	return &Library{spectra: make(map[string]*PCMSpectrum), root: root}
}

// ServeFrom 以 servedRoot 开头的地址映射到 root 下
func (l *Library) ServeFrom(servedRoot string) *Library {
	l.served = strings.TrimRight(servedRoot, "/")
	return l
}

// Has reports whether src has already been loaded.
func (l *Library) Has(src string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.spectra[src]
	return ok
}

// Add 直接注册已解码的采样
func (l *Library) Add(src string, spec *PCMSpectrum) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spectra[src] = spec
}

// LoadWAV 读取 WAV 文件并注册到 src 名下
func (l *Library) LoadWAV(src string) error {
	path := l.localPath(src)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio %s: %w", path, err)
	}
	defer f.Close()

	samples, rate, err := DecodeWAV(f)
	if err != nil {
		return fmt.Errorf("decode audio %s: %w", path, err)
	}
	l.Add(src, NewPCMSpectrum(samples, rate, DefaultWindow))
	logger.Info("音频频谱已加载",
		logger.String("src", src),
		logger.Int("sampleRate", rate),
		logger.Int("samples", len(samples)))
	return nil
}

func (l *Library) localPath(src string) string {
	if l.served != "" && strings.HasPrefix(src, l.served+"/") {
		src = strings.TrimPrefix(src, l.served)
	} else if filepath.IsAbs(src) || l.root == "" {
		return src
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimLeft(src, "/")))
}

// Spectrum 实现 SpectrumSource；未加载的音频返回 false
func (l *Library) Spectrum(src string, seconds float64) ([]float64, bool) {
	l.mu.RLock()
	spec, ok := l.spectra[src]
	l.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return spec.At(seconds)
}
