package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/embedding"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store/drivers/badger"
	"github.com/aussiebroadwan/voxgate/pkg/cryptox"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

// Recordings are identified by their length in samples at 44.1 kHz so the
// fake extractor can map them back to a voice after normalization.
var recordings = map[string]struct {
	frames int
	voice  []float32
}{
	"alice-1": {88200, []float32{1, 0, 0}},
	"alice-2": {88201, []float32{0.95, 0.3, 0.05}},
	"bob-1":   {132300, []float32{0, 1, 0}},
	"short":   {22050, []float32{1, 0, 0}},
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(data []byte) (domain.Waveform, error) {
	key := string(data)
	if key == "silence" {
		return domain.Waveform{Channels: [][]float32{make([]float32, 88200)}, SampleRate: 44100}, nil
	}
	r, ok := recordings[key]
	if !ok {
		return domain.Waveform{}, audio.ErrDecode
	}
	pcm := make([]float32, r.frames)
	for i := range pcm {
		pcm[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/44100))
	}
	return domain.Waveform{Channels: [][]float32{pcm}, SampleRate: 44100}, nil
}

type fakeExtractor struct {
	calls atomic.Int32
	fail  error
}

func (f *fakeExtractor) Dimension() int { return 3 }

func (f *fakeExtractor) Embed(_ context.Context, w domain.NormalizedWaveform) (domain.Embedding, error) {
	f.calls.Add(1)
	if f.fail != nil {
		return nil, f.fail
	}
	if w.Degenerate {
		return make(domain.Embedding, 3), nil
	}
	for _, r := range recordings {
		if r.frames == len(w.Samples) {
			return domain.Embedding(r.voice).Clone(), nil
		}
	}
	return nil, errors.New("unknown recording")
}

// countingHasher records how many digests were checked.
type countingHasher struct {
	SecretHasher
	verifies atomic.Int32
}

func (c *countingHasher) Verify(secret, digest []byte) (bool, error) {
	c.verifies.Add(1)
	return c.SecretHasher.Verify(secret, digest)
}

type fixture struct {
	store     store.Store
	hasher    *countingHasher
	extractor *fakeExtractor
	enroll    *EnrollmentService
	verify    *VerificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := badger.NewStore(badger.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	hasher := &countingHasher{SecretHasher: cryptox.NewArgon2id("pepper", cryptox.Params{
		Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16,
	})}
	ext := &fakeExtractor{}
	metrics := NewMetrics(prometheus.NewRegistry())
	p := &Pipeline{Decoder: fakeDecoder{}, Extractor: ext, Metrics: metrics, MinAudioDuration: time.Second}

	return &fixture{
		store:     s,
		hasher:    hasher,
		extractor: ext,
		enroll:    &EnrollmentService{Store: s, Hasher: hasher, Pipeline: p, Metrics: metrics},
		verify:    &VerificationService{Store: s, Hasher: hasher, Pipeline: p, Metrics: metrics, Threshold: DefaultThreshold},
	}
}

func TestAliceBobScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	t.Run("same speaker accepted", func(t *testing.T) {
		d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("alice-2"))
		require.NoError(t, err)
		require.True(t, d.Accepted)
		require.Equal(t, domain.ReasonMatch, d.Reason)
		require.GreaterOrEqual(t, d.Similarity, DefaultThreshold)
	})

	t.Run("other speaker rejected", func(t *testing.T) {
		d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("bob-1"))
		require.NoError(t, err)
		require.False(t, d.Accepted)
		require.Equal(t, domain.ReasonVoiceMismatch, d.Reason)
		require.InDelta(t, 0, d.Similarity, 1e-9)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := f.verify.Verify(ctx, "alice", []byte("nope"), []byte("alice-2"))
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("silence", func(t *testing.T) {
		before := f.extractor.calls.Load()
		d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("silence"))
		require.NoError(t, err)
		require.False(t, d.Accepted)
		require.Equal(t, domain.ReasonInsufficientSignal, d.Reason)
		require.Zero(t, d.Similarity)
		require.Equal(t, before, f.extractor.calls.Load(), "model must not run on silence")
	})

	t.Run("too short", func(t *testing.T) {
		d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("short"))
		require.NoError(t, err)
		require.Equal(t, domain.ReasonInsufficientSignal, d.Reason)
	})

	t.Run("undecodable audio", func(t *testing.T) {
		_, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("garbage"))
		require.ErrorIs(t, err, audio.ErrDecode)
		require.True(t, IsClientError(err))
	})
}

func TestEnroll_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name     string
		username string
		secret   string
		audio    string
		want     error
	}{
		{"empty username", "", "pw", "alice-1", ErrInvalidUsername},
		{"padded username", " alice", "pw", "alice-1", ErrInvalidUsername},
		{"empty secret", "alice", "", "alice-1", ErrInvalidSecret},
		{"silence", "alice", "pw", "silence", ErrInsufficientSignal},
		{"too short", "alice", "pw", "short", ErrInsufficientSignal},
		{"bad audio", "alice", "pw", "garbage", audio.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.enroll.Enroll(ctx, tt.username, []byte(tt.secret), []byte(tt.audio))
			require.ErrorIs(t, err, tt.want)
			require.True(t, IsClientError(err))
		})
	}

	ok, err := f.store.Credentials().Exists(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok, "failed enrollments must not persist anything")
}

func TestEnroll_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))
	require.ErrorIs(t, f.enroll.Enroll(ctx, "alice", []byte("other"), []byte("bob-1")), ErrUsernameTaken)

	// The original secret still works.
	d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("alice-2"))
	require.NoError(t, err)
	require.True(t, d.Accepted)
}

func TestEnroll_ConcurrentSameUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 12
	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		taken atomic.Int32
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.enroll.Enroll(ctx, "racer", []byte("pw"), []byte("alice-1"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrUsernameTaken):
				taken.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, n-1, taken.Load())
}

func TestVerify_EnumerationResistance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	f.hasher.verifies.Store(0)
	_, unknownErr := f.verify.Verify(ctx, "mallory", []byte("pw"), []byte("alice-2"))
	unknownWork := f.hasher.verifies.Load()

	f.hasher.verifies.Store(0)
	_, wrongErr := f.verify.Verify(ctx, "alice", []byte("wrong"), []byte("alice-2"))
	wrongWork := f.hasher.verifies.Load()

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
	require.Equal(t, wrongWork, unknownWork, "both paths must hash exactly once")
}

func TestVerify_ThresholdMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	for _, probe := range []string{"alice-2", "bob-1"} {
		t.Run(probe, func(t *testing.T) {
			seenAccept := false
			for th := 1.0; th >= -1.0; th -= 0.05 {
				f.verify.Threshold = th
				d, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte(probe))
				require.NoError(t, err)

				if seenAccept {
					require.True(t, d.Accepted, "accepted at a higher threshold but rejected at %.2f", th)
				}
				seenAccept = seenAccept || d.Accepted
				require.Equal(t, d.Similarity >= th, d.Accepted)
			}
			require.True(t, seenAccept)
		})
	}
}

func TestVerify_DimensionMismatchIsServerFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	digest, err := f.hasher.Hash([]byte("pw"))
	require.NoError(t, err)
	require.NoError(t, f.store.Credentials().Create(ctx, domain.EnrollmentRecord{
		Username:     "legacy",
		SecretDigest: digest,
		Embedding:    domain.Embedding{1, 0, 0, 0, 0},
		CreatedAt:    time.Now(),
	}))

	_, err = f.verify.Verify(ctx, "legacy", []byte("pw"), []byte("alice-2"))
	require.ErrorIs(t, err, ErrEmbeddingMismatch)
	require.False(t, IsClientError(err))
}

func TestVerify_ModelFailureIsServerFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	f.extractor.fail = embedding.ErrEmbedding
	_, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("alice-2"))
	require.ErrorIs(t, err, embedding.ErrEmbedding)
	require.False(t, IsClientError(err))
}

func TestEnroll_RecordTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.enroll.RecordTTL = time.Hour
	f.enroll.now = func() time.Time { return now }

	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	// The fixed clock is in the past, so the record has already expired.
	_, err := f.verify.Verify(ctx, "alice", []byte("pw"), []byte("alice-2"))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	hk := NewHousekeepingService(f.store, slogx.Discard(), time.Minute)
	require.Equal(t, 1, hk.Purge(ctx))
}

func TestEnrollmentService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))

	require.NoError(t, f.enroll.Delete(ctx, "alice"))
	require.ErrorIs(t, f.enroll.Delete(ctx, "alice"), store.ErrNotFound)
	require.ErrorIs(t, f.enroll.Delete(ctx, ""), ErrInvalidUsername)
}

func TestMetrics_CountOutcomes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f.enroll.Metrics, f.verify.Metrics = m, m

	require.NoError(t, f.enroll.Enroll(ctx, "alice", []byte("pw"), []byte("alice-1")))
	_, _ = f.verify.Verify(ctx, "alice", []byte("pw"), []byte("alice-2"))
	_, _ = f.verify.Verify(ctx, "alice", []byte("bad"), []byte("alice-2"))

	require.Equal(t, 1.0, counterValue(t, m.enrollments.WithLabelValues("ok")))
	require.Equal(t, 1.0, counterValue(t, m.verifications.WithLabelValues("match")))
	require.Equal(t, 1.0, counterValue(t, m.verifications.WithLabelValues("invalid_credentials")))

	// A second registration against the same registry reuses the collectors.
	again := NewMetrics(reg)
	require.Equal(t, 1.0, counterValue(t, again.enrollments.WithLabelValues("ok")))
}

func TestCosine(t *testing.T) {
	sim, ok := Cosine(domain.Embedding{1, 0}, domain.Embedding{1, 0})
	require.True(t, ok)
	require.Equal(t, 1.0, sim)

	sim, ok = Cosine(domain.Embedding{1, 0}, domain.Embedding{-2, 0})
	require.True(t, ok)
	require.Equal(t, -1.0, sim)

	_, ok = Cosine(domain.Embedding{0, 0}, domain.Embedding{1, 0})
	require.False(t, ok)

	_, ok = Cosine(domain.Embedding{1}, domain.Embedding{1, 0})
	require.False(t, ok)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
