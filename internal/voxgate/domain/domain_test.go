package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbedding_IsDegenerate(t *testing.T) {
	require.True(t, Embedding{}.IsDegenerate())
	require.True(t, Embedding{0, 0, 0}.IsDegenerate())
	require.False(t, Embedding{0, 1e-30, 0}.IsDegenerate())
}

func TestEmbedding_Clone(t *testing.T) {
	e := Embedding{1, 2, 3}
	c := e.Clone()
	c[0] = 9
	require.Equal(t, float32(1), e[0])
	require.Nil(t, Embedding(nil).Clone())
}

func TestNormalizedWaveform_Duration(t *testing.T) {
	w := NormalizedWaveform{Samples: make([]float32, TargetSampleRate*2), SampleRate: TargetSampleRate}
	require.Equal(t, 2*time.Second, w.Duration())
	require.Zero(t, NormalizedWaveform{}.Duration())
}

func TestWaveform_Frames(t *testing.T) {
	require.Zero(t, Waveform{}.Frames())
	require.Equal(t, 3, Waveform{Channels: [][]float32{{1, 2, 3}, {4, 5, 6}}}.Frames())
}
