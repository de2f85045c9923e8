// Package embedding wraps a speaker-embedding model behind the narrow
// capability the enrollment and verification services need.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
)

var (
	// ErrEmbedding marks a failure inside the model: an inference error, an
	// output of the wrong length, or non-finite values. It is a server fault.
	ErrEmbedding = errors.New("embedding: extraction failed")
	// ErrInvalidModel is returned at load time when a model does not satisfy
	// the capability contract.
	ErrInvalidModel = errors.New("embedding: invalid model")
)

// Model maps a mono waveform to a fixed-length vector. Implementations run in
// inference mode only and must not learn from their inputs.
type Model interface {
	Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
	Dimension() int
	Close() error
}

// Projector is implemented by models that expose a projection head.
type Projector interface {
	Project(v []float32) ([]float32, error)
}

// ProjectedDimensioner reports the length of projected vectors when it
// differs from Dimension.
type ProjectedDimensioner interface {
	ProjectedDimension() int
}

// Concurrent is implemented by models that are safe to call from many
// goroutines at once. Models without it are serialised.
type Concurrent interface {
	Concurrent() bool
}

// DevicePlaced is implemented by models that run on a specific device.
type DevicePlaced interface {
	Device() string
}

type Options struct {
	// Project applies the model's projection head when it has one.
	Project bool
	Logger  *slog.Logger
}

// Extractor is the process-wide embedding capability. It is built once at
// start-up and shared by both services.
type Extractor struct {
	model     Model
	projector Projector // nil: raw embeddings
	dim       int
	device    string

	serial bool
	mu     sync.Mutex
}

// NewExtractor validates model and fixes the projection decision for the
// lifetime of the extractor.
func NewExtractor(model Model, opts Options) (*Extractor, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	dim := model.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidModel, dim)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &Extractor{model: model, dim: dim, device: "cpu", serial: true}

	if c, ok := model.(Concurrent); ok && c.Concurrent() {
		e.serial = false
	}
	if d, ok := model.(DevicePlaced); ok && d.Device() != "" {
		e.device = d.Device()
	}

	if opts.Project {
		p, ok := model.(Projector)
		if !ok {
			log.Warn("embedding projection requested but model has no projection head; using raw embeddings")
		} else {
			e.projector = p
			if pd, ok := model.(ProjectedDimensioner); ok {
				if pd.ProjectedDimension() <= 0 {
					return nil, fmt.Errorf("%w: projected dimension %d", ErrInvalidModel, pd.ProjectedDimension())
				}
				e.dim = pd.ProjectedDimension()
			}
		}
	}

	log.Info("embedding extractor ready",
		"dimension", e.dim,
		"projected", e.projector != nil,
		"device", e.device,
		"serialised", e.serial,
	)
	return e, nil
}

// Dimension is the length of every vector Embed returns.
func (e *Extractor) Dimension() int { return e.dim }

// Projected reports whether embeddings pass through the projection head.
func (e *Extractor) Projected() bool { return e.projector != nil }

func (e *Extractor) Device() string { return e.device }

// Embed returns the embedding of w. A degenerate waveform yields a zero
// vector without invoking the model.
func (e *Extractor) Embed(ctx context.Context, w domain.NormalizedWaveform) (domain.Embedding, error) {
	if w.Degenerate {
		return make(domain.Embedding, e.dim), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The model gets its own copy of the input and the caller gets its own
	// copy of the output, so neither side aliases the other's memory.
	in := make([]float32, len(w.Samples))
	copy(in, w.Samples)

	out, err := e.infer(ctx, in, w.SampleRate)
	if err != nil {
		return nil, err
	}

	if len(out) != e.dim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrEmbedding, len(out), e.dim)
	}
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite output", ErrEmbedding)
		}
	}

	emb := make(domain.Embedding, len(out))
	copy(emb, out)
	return emb, nil
}

func (e *Extractor) infer(ctx context.Context, samples []float32, rate int) ([]float32, error) {
	if e.serial {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	raw, err := e.model.Embed(ctx, samples, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if e.projector == nil {
		return raw, nil
	}

	if len(raw) != e.model.Dimension() {
		return nil, fmt.Errorf("%w: got %d values before projection, want %d", ErrEmbedding, len(raw), e.model.Dimension())
	}
	projected, err := e.projector.Project(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: projection: %v", ErrEmbedding, err)
	}
	return projected, nil
}

// Close releases the model.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Close()
}
