// Package audiotest synthesises recordings for tests outside the audio
// package.
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Harmonic returns seconds of a mono tone at f0 with the given harmonic
// weights, scaled to 16-bit PCM at rate. Different weights give different
// spectral envelopes, which is enough to tell two "speakers" apart.
func Harmonic(rate int, seconds, f0 float64, weights ...float64) []int {
	n := int(float64(rate) * seconds)
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}
	if total == 0 {
		total = 1
	}

	out := make([]int, n)
	for i := range out {
		var v float64
		for h, w := range weights {
			v += w * math.Sin(2*math.Pi*f0*float64(h+1)*float64(i)/float64(rate))
		}
		out[i] = int(math.Round(v / total * 0.8 * 32767))
	}
	return out
}

// Silence returns seconds of zero samples.
func Silence(rate int, seconds float64) []int {
	return make([]int, int(float64(rate)*seconds))
}

// WAV encodes mono 16-bit PCM samples as a WAV file and returns its bytes.
func WAV(t testing.TB, rate int, samples []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "recording.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}
