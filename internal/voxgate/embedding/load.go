package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

const (
	KindFbank  = "fbank"
	KindSherpa = "sherpa"
)

// LoadConfig selects and configures the model backend.
type LoadConfig struct {
	Kind     string
	Path     string
	Threads  int
	Provider string
	Project  bool
}

// Load builds the model named by cfg.Kind and wraps it in an Extractor. It is
// meant to run once per process.
func Load(ctx context.Context, cfg LoadConfig) (*Extractor, error) {
	log := slogx.FromContext(ctx).With("model", cfg.Kind)
	start := time.Now()

	var (
		model Model
		err   error
	)
	switch cfg.Kind {
	case KindFbank, "":
		model, err = NewFbank(DefaultFbankConfig())
	case KindSherpa:
		model, err = NewSherpa(SherpaConfig{
			ModelPath:  cfg.Path,
			NumThreads: cfg.Threads,
			Provider:   cfg.Provider,
		})
	default:
		err = fmt.Errorf("%w: unknown model kind %q", ErrInvalidModel, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	ext, err := NewExtractor(model, Options{Project: cfg.Project, Logger: log})
	if err != nil {
		_ = model.Close()
		return nil, err
	}

	log.Info("model loaded", slog.Duration("took", time.Since(start)))
	return ext, nil
}
