package embedding

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// FbankConfig parameterises the filterbank-statistics model.
type FbankConfig struct {
	SampleRate  int     // expected input rate
	WindowSize  int     // analysis window in samples
	HopSize     int     // hop in samples
	FFTSize     int     // power of two >= WindowSize
	NumMels     int     // mel bands
	LowFreq     float64 // Hz
	HighFreq    float64 // Hz
	PreEmphasis float64
}

// DefaultFbankConfig uses 25 ms windows and 10 ms hops at 44.1 kHz.
func DefaultFbankConfig() FbankConfig {
	return FbankConfig{
		SampleRate:  44100,
		WindowSize:  1102,
		HopSize:     441,
		FFTSize:     2048,
		NumMels:     40,
		LowFreq:     20,
		HighFreq:    8000,
		PreEmphasis: 0.97,
	}
}

// Fbank is a deterministic, dependency-light speaker model: the per-band
// mean and standard deviation of log mel energies, each centred across
// bands. It is a development baseline, not a biometric-grade encoder; use the
// sherpa model for real deployments.
//
// Fbank is safe for concurrent use.
type Fbank struct {
	cfg     FbankConfig
	window  []float64
	melBank [][]float64
}

func NewFbank(cfg FbankConfig) (*Fbank, error) {
	switch {
	case cfg.WindowSize <= 1 || cfg.HopSize <= 0:
		return nil, fmt.Errorf("%w: fbank window %d hop %d", ErrInvalidModel, cfg.WindowSize, cfg.HopSize)
	case cfg.FFTSize < cfg.WindowSize:
		return nil, fmt.Errorf("%w: fft size %d smaller than window %d", ErrInvalidModel, cfg.FFTSize, cfg.WindowSize)
	case cfg.NumMels <= 0 || cfg.SampleRate <= 0:
		return nil, fmt.Errorf("%w: fbank mels %d rate %d", ErrInvalidModel, cfg.NumMels, cfg.SampleRate)
	case cfg.HighFreq <= cfg.LowFreq || cfg.HighFreq > float64(cfg.SampleRate)/2:
		return nil, fmt.Errorf("%w: fbank band %.0f-%.0f Hz", ErrInvalidModel, cfg.LowFreq, cfg.HighFreq)
	}
	return &Fbank{
		cfg:     cfg,
		window:  hammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
	}, nil
}

func (f *Fbank) Dimension() int   { return 2 * f.cfg.NumMels }
func (f *Fbank) Concurrent() bool { return true }
func (f *Fbank) Device() string   { return "cpu" }
func (f *Fbank) Close() error     { return nil }

func (f *Fbank) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if sampleRate != f.cfg.SampleRate {
		return nil, fmt.Errorf("fbank: sample rate %d, want %d", sampleRate, f.cfg.SampleRate)
	}
	feats := f.logMel(samples)
	if len(feats) == 0 {
		return nil, fmt.Errorf("fbank: %d samples is shorter than one window", len(samples))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numMels := f.cfg.NumMels
	frames := float64(len(feats))
	mean := make([]float64, numMels)
	std := make([]float64, numMels)
	for _, frame := range feats {
		floats.Add(mean, frame)
	}
	floats.Scale(1/frames, mean)
	for _, frame := range feats {
		for m, v := range frame {
			d := v - mean[m]
			std[m] += d * d
		}
	}
	for m := range std {
		std[m] = math.Sqrt(std[m] / frames)
	}

	// Centre each half so cosine similarity compares spectral shape rather
	// than overall level.
	floats.AddConst(-floats.Sum(mean)/float64(numMels), mean)
	floats.AddConst(-floats.Sum(std)/float64(numMels), std)

	out := make([]float32, 0, 2*numMels)
	for _, v := range mean {
		out = append(out, float32(v))
	}
	for _, v := range std {
		out = append(out, float32(v))
	}
	return out, nil
}

// Project L2-normalises v. A zero vector stays zero.
func (f *Fbank) Project(v []float32) ([]float32, error) {
	x := make([]float64, len(v))
	for i, s := range v {
		x[i] = float64(s)
	}
	norm := floats.Norm(x, 2)
	out := make([]float32, len(v))
	if norm == 0 {
		return out, nil
	}
	for i, s := range x {
		out[i] = float32(s / norm)
	}
	return out, nil
}

// logMel returns [frames][numMels] log mel energies.
func (f *Fbank) logMel(pcm []float32) [][]float64 {
	cfg := f.cfg
	if len(pcm) < cfg.WindowSize {
		return nil
	}
	numFrames := (len(pcm)-cfg.WindowSize)/cfg.HopSize + 1
	halfFFT := cfg.FFTSize/2 + 1

	// fourier.FFT keeps work buffers; one per call keeps Fbank reentrant.
	fft := fourier.NewFFT(cfg.FFTSize)
	frame := make([]float64, cfg.FFTSize)
	coeffs := make([]complex128, halfFFT)
	power := make([]float64, halfFFT)

	features := make([][]float64, numFrames)
	for t := range numFrames {
		start := t * cfg.HopSize
		for i := range cfg.WindowSize {
			s := float64(pcm[start+i])
			if i > 0 {
				s -= cfg.PreEmphasis * float64(pcm[start+i-1])
			}
			frame[i] = s * f.window[i]
		}
		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			frame[i] = 0
		}

		fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			power[k] = real(c)*real(c) + imag(c)*imag(c)
		}

		mel := make([]float64, cfg.NumMels)
		for m, filter := range f.melBank {
			sum := floats.Dot(filter, power)
			if sum < 1e-10 {
				sum = 1e-10
			}
			mel[m] = math.Log(sum)
		}
		features[t] = mel
	}
	return features
}

func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func hzToMel(hz float64) float64 { return 2595.0 * math.Log10(1.0+hz/700.0) }

func melToHz(mel float64) float64 { return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0) }

// melFilterBank returns [numMels][fftSize/2+1] triangular filters.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1
	lowMel, highMel := hzToMel(lowFreq), hzToMel(highFreq)
	step := (highMel - lowMel) / float64(numMels+1)

	bins := make([]int, numMels+2)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bins[i] = min(int(math.Round(hz*float64(fftSize)/float64(sampleRate))), halfFFT-1)
	}
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			bins[i] = bins[i-1] + 1
		}
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		filter := make([]float64, halfFFT)
		left, center, right := bins[m], bins[m+1], bins[m+2]
		for k := left; k < center && k < halfFFT; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k <= right && k < halfFFT; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m] = filter
	}
	return bank
}
