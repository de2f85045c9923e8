package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// SherpaConfig points at an ONNX speaker-embedding model (for example a
// 3D-Speaker ERes2Net or WeSpeaker ResNet export).
type SherpaConfig struct {
	ModelPath  string
	NumThreads int
	Provider   string // "cpu", "cuda", "coreml"
	Debug      bool
}

// Sherpa runs a speaker-embedding network through sherpa-onnx. The native
// extractor is not reentrant; the Extractor serialises calls into it.
type Sherpa struct {
	impl     *sherpa.SpeakerEmbeddingExtractor
	provider string
}

func NewSherpa(cfg SherpaConfig) (*Sherpa, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: sherpa model path is empty", ErrInvalidModel)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: sherpa model: %v", ErrInvalidModel, err)
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 1
	}
	if cfg.Provider == "" {
		cfg.Provider = "cpu"
	}

	debug := 0
	if cfg.Debug {
		debug = 1
	}

	impl := sherpa.NewSpeakerEmbeddingExtractor(&sherpa.SpeakerEmbeddingExtractorConfig{
		Model:      cfg.ModelPath,
		NumThreads: cfg.NumThreads,
		Debug:      debug,
		Provider:   cfg.Provider,
	})
	if impl == nil {
		return nil, fmt.Errorf("%w: sherpa could not load %s", ErrInvalidModel, cfg.ModelPath)
	}
	return &Sherpa{impl: impl, provider: cfg.Provider}, nil
}

func (s *Sherpa) Dimension() int   { return s.impl.Dim() }
func (s *Sherpa) Concurrent() bool { return false }
func (s *Sherpa) Device() string   { return s.provider }

// Embed feeds the whole waveform through a fresh stream. sherpa-onnx
// resamples internally to the model's rate.
func (s *Sherpa) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream := s.impl.CreateStream()
	if stream == nil {
		return nil, errors.New("sherpa: create stream")
	}
	defer sherpa.DeleteOnlineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	stream.InputFinished()

	if !s.impl.IsReady(stream) {
		return nil, errors.New("sherpa: not enough audio for one embedding")
	}
	return s.impl.Compute(stream), nil
}

func (s *Sherpa) Close() error {
	if s.impl != nil {
		sherpa.DeleteSpeakerEmbeddingExtractor(s.impl)
		s.impl = nil
	}
	return nil
}
