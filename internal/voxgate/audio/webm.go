package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/at-wat/ebml-go"
	"layeh.com/gopus"
)

const (
	opusSampleRate = 48000
	// opusMaxFrameSize is 120 ms at 48 kHz, the largest Opus packet duration.
	opusMaxFrameSize = 5760
	trackTypeAudio   = 2
	codecOpus        = "A_OPUS"
)

// Only the elements needed to pull Opus packets out of a MediaRecorder
// stream are mapped; everything else is skipped.
type webmFile struct {
	Segment webmSegment `ebml:"Segment"`
}

type webmSegment struct {
	Tracks  webmTracks    `ebml:"Tracks"`
	Cluster []webmCluster `ebml:"Cluster"`
}

type webmTracks struct {
	TrackEntry []webmTrackEntry `ebml:"TrackEntry"`
}

type webmTrackEntry struct {
	TrackNumber  uint64     `ebml:"TrackNumber"`
	TrackType    uint64     `ebml:"TrackType"`
	CodecID      string     `ebml:"CodecID"`
	CodecPrivate []byte     `ebml:"CodecPrivate"`
	Audio        *webmAudio `ebml:"Audio"`
}

type webmAudio struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
}

type webmCluster struct {
	Timecode    uint64           `ebml:"Timecode"`
	SimpleBlock []ebml.Block     `ebml:"SimpleBlock"`
	BlockGroup  []webmBlockGroup `ebml:"BlockGroup"`
}

type webmBlockGroup struct {
	Block ebml.Block `ebml:"Block"`
}

func decodeWebM(data []byte) (domain.Waveform, error) {
	var file webmFile
	if err := ebml.Unmarshal(bytes.NewReader(data), &file, ebml.WithIgnoreUnknown(true)); err != nil {
		return domain.Waveform{}, fmt.Errorf("%w: webm: %v", ErrDecode, err)
	}

	track, ok := findOpusTrack(file.Segment.Tracks.TrackEntry)
	if !ok {
		return domain.Waveform{}, fmt.Errorf("%w: no opus audio track", ErrDecode)
	}

	numCh, preSkip := opusLayout(track)
	if numCh > 2 {
		return domain.Waveform{}, fmt.Errorf("%w: %d-channel opus is not supported", ErrDecode, numCh)
	}

	dec, err := gopus.NewDecoder(opusSampleRate, numCh)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("%w: opus decoder: %v", ErrDecode, err)
	}

	channels := make([][]float32, numCh)
	for _, cluster := range file.Segment.Cluster {
		blocks := cluster.SimpleBlock
		for _, g := range cluster.BlockGroup {
			blocks = append(blocks, g.Block)
		}
		for _, b := range blocks {
			if b.TrackNumber != track.TrackNumber {
				continue
			}
			for _, pkt := range b.Data {
				pcm, err := dec.Decode(pkt, opusMaxFrameSize, false)
				if err != nil {
					return domain.Waveform{}, fmt.Errorf("%w: opus: %v", ErrDecode, err)
				}
				for i, s := range pcm {
					c := i % numCh
					channels[c] = append(channels[c], float32(s)/32768)
				}
			}
		}
	}

	for c := range channels {
		if preSkip >= len(channels[c]) {
			channels[c] = nil
			continue
		}
		channels[c] = channels[c][preSkip:]
	}

	return domain.Waveform{Channels: channels, SampleRate: opusSampleRate}, nil
}

func findOpusTrack(entries []webmTrackEntry) (webmTrackEntry, bool) {
	for _, t := range entries {
		if t.CodecID == codecOpus && (t.TrackType == trackTypeAudio || t.TrackType == 0) {
			return t, true
		}
	}
	return webmTrackEntry{}, false
}

// opusLayout reads the channel count and pre-skip from the OpusHead in
// CodecPrivate, falling back to the track's Audio element.
func opusLayout(t webmTrackEntry) (channels, preSkip int) {
	channels = 1
	if t.Audio != nil && t.Audio.Channels > 0 {
		channels = int(t.Audio.Channels)
	}

	head := t.CodecPrivate
	if len(head) >= 12 && string(head[:8]) == "OpusHead" {
		if head[9] > 0 {
			channels = int(head[9])
		}
		preSkip = int(binary.LittleEndian.Uint16(head[10:12]))
	}
	return channels, preSkip
}
