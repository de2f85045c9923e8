package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// stubModel returns the first dim samples, scribbling on its input and
// reusing its output buffer to catch aliasing.
type stubModel struct {
	dim      int
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	err      error
	out      []float32
	buf      []float32
}

func (m *stubModel) Embed(_ context.Context, samples []float32, _ int) ([]float32, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(m.delay)

	if m.err != nil {
		return nil, m.err
	}
	if m.out != nil {
		return m.out, nil
	}
	if m.buf == nil {
		m.buf = make([]float32, m.dim)
	}
	copy(m.buf, samples)
	for i := range samples {
		samples[i] = 42
	}
	return m.buf, nil
}

func (m *stubModel) Dimension() int { return m.dim }
func (m *stubModel) Close() error   { return nil }

type concurrentStub struct{ *stubModel }

func (concurrentStub) Concurrent() bool { return true }

type projectingStub struct{ *stubModel }

func (projectingStub) Project(v []float32) ([]float32, error) {
	out := make([]float32, len(v)/2)
	for i := range out {
		out[i] = v[2*i] + v[2*i+1]
	}
	return out, nil
}

func (p projectingStub) ProjectedDimension() int { return p.dim / 2 }

func wave(samples ...float32) domain.NormalizedWaveform {
	return domain.NormalizedWaveform{Samples: samples, SampleRate: domain.TargetSampleRate}
}

func TestNewExtractor_Validates(t *testing.T) {
	_, err := NewExtractor(nil, Options{Logger: slogx.Discard()})
	require.ErrorIs(t, err, ErrInvalidModel)

	_, err = NewExtractor(&stubModel{dim: 0}, Options{Logger: slogx.Discard()})
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestExtractor_DegenerateSkipsModel(t *testing.T) {
	m := &stubModel{dim: 4}
	e, err := NewExtractor(m, Options{Logger: slogx.Discard()})
	require.NoError(t, err)

	emb, err := e.Embed(context.Background(), domain.NormalizedWaveform{
		Samples: make([]float32, 10), SampleRate: domain.TargetSampleRate, Degenerate: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.Embedding{0, 0, 0, 0}, emb)
	require.Zero(t, m.calls.Load())
}

func TestExtractor_NoAliasing(t *testing.T) {
	m := &stubModel{dim: 3}
	e, err := NewExtractor(m, Options{Logger: slogx.Discard()})
	require.NoError(t, err)

	w := wave(1, 0.5, -1, 0.25)
	emb, err := e.Embed(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, domain.Embedding{1, 0.5, -1}, emb)
	require.Equal(t, []float32{1, 0.5, -1, 0.25}, w.Samples, "model must not see the caller's buffer")

	emb[0] = 99
	require.Equal(t, float32(1), m.buf[0], "caller must not see the model's buffer")
}

func TestExtractor_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
	}{
		{"model error", &stubModel{dim: 2, err: errors.New("boom")}},
		{"wrong length", &stubModel{dim: 2, out: []float32{1, 2, 3}}},
		{"nan output", &stubModel{dim: 2, out: []float32{1, float32(math.NaN())}}},
		{"inf output", &stubModel{dim: 2, out: []float32{float32(math.Inf(1)), 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtractor(tt.model, Options{Logger: slogx.Discard()})
			require.NoError(t, err)
			_, err = e.Embed(context.Background(), wave(1, 1, 1))
			require.ErrorIs(t, err, ErrEmbedding)
		})
	}
}

func TestExtractor_ProjectionUnavailableFallsBackToRaw(t *testing.T) {
	e, err := NewExtractor(&stubModel{dim: 2}, Options{Project: true, Logger: slogx.Discard()})
	require.NoError(t, err)
	require.False(t, e.Projected())
	require.Equal(t, 2, e.Dimension())

	emb, err := e.Embed(context.Background(), wave(0.5, 1))
	require.NoError(t, err)
	require.Equal(t, domain.Embedding{0.5, 1}, emb)
}

func TestExtractor_Projection(t *testing.T) {
	e, err := NewExtractor(projectingStub{&stubModel{dim: 4}}, Options{Project: true, Logger: slogx.Discard()})
	require.NoError(t, err)
	require.True(t, e.Projected())
	require.Equal(t, 2, e.Dimension())

	emb, err := e.Embed(context.Background(), wave(1, 2, 3, 4))
	require.NoError(t, err)
	require.Equal(t, domain.Embedding{3, 7}, emb)

	t.Run("disabled uses raw", func(t *testing.T) {
		raw, err := NewExtractor(projectingStub{&stubModel{dim: 4}}, Options{Logger: slogx.Discard()})
		require.NoError(t, err)
		require.False(t, raw.Projected())
		require.Equal(t, 4, raw.Dimension())
	})
}

func TestExtractor_SerialisesNonReentrantModels(t *testing.T) {
	run := func(m Model, inner *stubModel) int32 {
		e, err := NewExtractor(m, Options{Logger: slogx.Discard()})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = e.Embed(context.Background(), wave(1, 1))
			}()
		}
		wg.Wait()
		return inner.maxSeen.Load()
	}

	serial := &stubModel{dim: 1, out: []float32{1}, delay: 5 * time.Millisecond}
	require.Equal(t, int32(1), run(serial, serial))

	parallel := &stubModel{dim: 1, out: []float32{1}, delay: 20 * time.Millisecond}
	require.Greater(t, run(concurrentStub{parallel}, parallel), int32(1))
}

func TestExtractor_CancelledContext(t *testing.T) {
	m := &stubModel{dim: 1}
	e, err := NewExtractor(m, Options{Logger: slogx.Discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, wave(1))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, m.calls.Load())
}
