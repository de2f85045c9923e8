package audio

import (
	"bytes"
	"fmt"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func decodeWAV(data []byte) (domain.Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return domain.Waveform{}, fmt.Errorf("%w: invalid wav header", ErrDecode)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return domain.Waveform{}, fmt.Errorf("%w: unsupported wav format %d", ErrDecode, dec.WavAudioFormat)
	}
	if dec.WavAudioFormat == wavFormatExtensible {
		sub, err := extensibleSubFormat(data)
		if err != nil {
			return domain.Waveform{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if sub != wavFormatPCM {
			return domain.Waveform{}, fmt.Errorf("%w: unsupported wav sub-format %d", ErrDecode, sub)
		}
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return domain.Waveform{}, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return domain.Waveform{}, fmt.Errorf("%w: missing format", ErrDecode)
	}

	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	scale := float32(int64(1) << (bitDepth - 1))

	// 8-bit WAV is unsigned with a 128 midpoint.
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	channels := make([][]float32, numCh)
	for c := range channels {
		channels[c] = make([]float32, frames)
	}
	for i := range frames {
		for c := range numCh {
			channels[c][i] = float32(buf.Data[i*numCh+c]-offset) / scale
		}
	}

	return domain.Waveform{Channels: channels, SampleRate: buf.Format.SampleRate}, nil
}

// extensibleFmt is the leading part of a WAVE_FORMAT_EXTENSIBLE fmt chunk up
// to the first two bytes of the SubFormat GUID, which carry the format code.
type extensibleFmt struct {
	AudioFormat    uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
	ValidBits      uint16
	ChannelMask    uint32
	SubFormat      uint16
}

func extensibleSubFormat(data []byte) (uint16, error) {
	p := riff.New(bytes.NewReader(data))
	if err := p.ParseHeaders(); err != nil {
		return 0, err
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("fmt chunk: %w", err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		var hdr extensibleFmt
		if ch.Size < 40 {
			return 0, fmt.Errorf("extensible fmt chunk is %d bytes", ch.Size)
		}
		if err := ch.ReadLE(&hdr); err != nil {
			return 0, fmt.Errorf("fmt chunk: %w", err)
		}
		return hdr.SubFormat, nil
	}
}
