package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

// SecretHasher turns a secret into a salted digest and checks secrets
// against digests in constant time.
type SecretHasher interface {
	Hash(secret []byte) ([]byte, error)
	Verify(secret, digest []byte) (bool, error)
}

type AudioDecoder interface {
	Decode(data []byte) (domain.Waveform, error)
}

type EmbeddingExtractor interface {
	Embed(ctx context.Context, w domain.NormalizedWaveform) (domain.Embedding, error)
	Dimension() int
}

// Pipeline turns an audio payload into an embedding. It is shared by the
// enrollment and verification services so both see identical processing.
type Pipeline struct {
	Decoder   AudioDecoder
	Extractor EmbeddingExtractor
	Metrics   *Metrics

	// MinAudioDuration is the shortest normalized recording that carries a
	// usable voice print. Zero disables the check.
	MinAudioDuration time.Duration
}

// Embed runs decode, normalize and embed. The boolean result is false when
// the audio is silent or too short to compare; the embedding is then nil.
func (p *Pipeline) Embed(ctx context.Context, data []byte) (domain.Embedding, bool, error) {
	start := time.Now()
	w, err := p.Decoder.Decode(data)
	p.Metrics.stage("decode", start)
	if err != nil {
		p.logStage(ctx, "decode", err)
		return nil, false, err
	}

	start = time.Now()
	nw, err := audio.Normalize(w)
	p.Metrics.stage("normalize", start)
	if err != nil {
		p.logStage(ctx, "normalize", err)
		return nil, false, err
	}
	if nw.Degenerate || nw.Duration() < p.MinAudioDuration {
		slogx.FromContext(ctx).Info("insufficient signal",
			"stage", "normalize",
			"duration", nw.Duration(),
			"degenerate", nw.Degenerate,
		)
		return nil, false, nil
	}

	start = time.Now()
	emb, err := p.Extractor.Embed(ctx, nw)
	p.Metrics.stage("embed", start)
	if err != nil {
		p.logStage(ctx, "embed", err)
		return nil, false, fmt.Errorf("embed: %w", err)
	}
	if emb.IsDegenerate() {
		return nil, false, nil
	}
	return emb, true, nil
}

func (p *Pipeline) logStage(ctx context.Context, stage string, err error) {
	level := slog.LevelError
	if IsClientError(err) {
		level = slog.LevelInfo
	}
	slogx.FromContext(ctx).Log(ctx, level, "voice pipeline failed", "stage", stage, "error", err)
}
