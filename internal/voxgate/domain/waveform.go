package domain

import "time"

// TargetSampleRate is the rate every normalized waveform is delivered at.
const TargetSampleRate = 44100

// Waveform is decoded audio as delivered by a container decoder. Channels are
// stored planar: Channels[c][i] is sample i of channel c.
type Waveform struct {
	Channels   [][]float32
	SampleRate int
}

// Frames reports the number of samples per channel.
func (w Waveform) Frames() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// NormalizedWaveform is mono, peak-normalized audio at TargetSampleRate.
// Peak |sample| is exactly 1.0 unless Degenerate is set, in which case every
// sample is zero.
type NormalizedWaveform struct {
	Samples    []float32
	SampleRate int
	Degenerate bool
}

// Duration of the normalized signal.
func (w NormalizedWaveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}
