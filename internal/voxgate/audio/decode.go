// Package audio turns uploaded recordings into the normalized mono waveform
// the embedding model consumes.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
)

// ErrDecode is returned for any input that cannot be turned into a waveform:
// unknown container, truncated data, missing audio track, no samples, or
// non-finite samples. It is a client input error.
var ErrDecode = errors.New("audio: undecodable input")

var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

// Decoder detects the container from its magic bytes and decodes it. WAV
// (integer PCM) and WebM/Matroska with an Opus track are supported.
type Decoder struct {
	// MaxDuration bounds the decoded length. Zero means unbounded.
	MaxDuration time.Duration
}

// Decode returns a new Waveform. It never panics: a panic raised inside a
// codec is reported as ErrDecode.
func (d *Decoder) Decode(data []byte) (w domain.Waveform, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = domain.Waveform{}, fmt.Errorf("%w: codec panic: %v", ErrDecode, r)
		}
	}()

	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], riffMagic) && bytes.Equal(data[8:12], waveMagic):
		w, err = decodeWAV(data)
	case len(data) >= 4 && bytes.Equal(data[0:4], ebmlMagic):
		w, err = decodeWebM(data)
	case len(data) == 0:
		return domain.Waveform{}, fmt.Errorf("%w: empty payload", ErrDecode)
	default:
		return domain.Waveform{}, fmt.Errorf("%w: unrecognised container", ErrDecode)
	}
	if err != nil {
		return domain.Waveform{}, err
	}

	if err := d.check(w); err != nil {
		return domain.Waveform{}, err
	}
	return w, nil
}

func (d *Decoder) check(w domain.Waveform) error {
	if len(w.Channels) == 0 || w.SampleRate <= 0 {
		return fmt.Errorf("%w: no audio", ErrDecode)
	}
	frames := w.Frames()
	if frames == 0 {
		return fmt.Errorf("%w: zero samples", ErrDecode)
	}
	if d.MaxDuration > 0 && time.Duration(frames)*time.Second/time.Duration(w.SampleRate) > d.MaxDuration {
		return fmt.Errorf("%w: longer than %s", ErrDecode, d.MaxDuration)
	}
	for _, ch := range w.Channels {
		if len(ch) != frames {
			return fmt.Errorf("%w: ragged channels", ErrDecode)
		}
		for _, s := range ch {
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				return fmt.Errorf("%w: non-finite sample", ErrDecode)
			}
		}
	}
	return nil
}
