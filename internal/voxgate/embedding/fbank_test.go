package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func harmonic(n int, f0 float64, weights ...float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		var v float64
		for h, w := range weights {
			v += w * math.Sin(2*math.Pi*f0*float64(h+1)*float64(i)/44100)
		}
		out[i] = float32(v)
	}
	return out
}

func cosine(a, b []float32) float64 {
	x := make([]float64, len(a))
	y := make([]float64, len(b))
	for i := range a {
		x[i], y[i] = float64(a[i]), float64(b[i])
	}
	return floats.Dot(x, y) / (floats.Norm(x, 2) * floats.Norm(y, 2))
}

func newTestFbank(t *testing.T) *Fbank {
	t.Helper()
	f, err := NewFbank(DefaultFbankConfig())
	require.NoError(t, err)
	return f
}

func TestFbank_Deterministic(t *testing.T) {
	f := newTestFbank(t)
	x := harmonic(44100, 150, 1, 0.5, 0.25)

	a, err := f.Embed(context.Background(), x, 44100)
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), x, 44100)
	require.NoError(t, err)

	require.Len(t, a, f.Dimension())
	require.Equal(t, a, b)
	require.InDelta(t, 1.0, cosine(a, b), 1e-9)
}

func TestFbank_SeparatesTimbres(t *testing.T) {
	f := newTestFbank(t)

	low1, err := f.Embed(context.Background(), harmonic(44100, 120, 1, 0.6, 0.3), 44100)
	require.NoError(t, err)
	low2, err := f.Embed(context.Background(), harmonic(44100, 125, 1, 0.6, 0.3), 44100)
	require.NoError(t, err)
	high, err := f.Embed(context.Background(), harmonic(44100, 900, 0.2, 1, 0.1), 44100)
	require.NoError(t, err)

	require.Greater(t, cosine(low1, low2), cosine(low1, high))
}

func TestFbank_Rejects(t *testing.T) {
	f := newTestFbank(t)

	_, err := f.Embed(context.Background(), make([]float32, 44100), 16000)
	require.Error(t, err)

	_, err = f.Embed(context.Background(), make([]float32, 100), 44100)
	require.Error(t, err)
}

func TestFbank_ProjectUnitNorm(t *testing.T) {
	f := newTestFbank(t)

	p, err := f.Project([]float32{3, 4})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float32{0.6, 0.8}, p, 1e-6)

	z, err := f.Project([]float32{0, 0})
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0}, z)
}

func TestNewFbank_InvalidConfig(t *testing.T) {
	cfg := DefaultFbankConfig()
	cfg.FFTSize = 512
	_, err := NewFbank(cfg)
	require.ErrorIs(t, err, ErrInvalidModel)

	cfg = DefaultFbankConfig()
	cfg.HighFreq = 30000
	_, err = NewFbank(cfg)
	require.ErrorIs(t, err, ErrInvalidModel)
}
