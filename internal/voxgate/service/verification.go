package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

const DefaultThreshold = 0.85

type VerificationService struct {
	Store    store.Store
	Hasher   SecretHasher
	Pipeline *Pipeline
	Metrics  *Metrics

	// Threshold is the minimum cosine similarity that is accepted. Callers
	// normally start from DefaultThreshold.
	Threshold float64

	dummyOnce   sync.Once
	dummyDigest []byte
}

// Verify checks the secret then compares a fresh voice print against the
// enrolled one. An unknown username and a wrong secret both return
// ErrInvalidCredentials after the same amount of hashing work.
func (s *VerificationService) Verify(ctx context.Context, username string, secret, audioData []byte) (d domain.Decision, err error) {
	defer func() {
		switch {
		case err != nil:
			s.Metrics.verification(outcome(err))
		default:
			s.Metrics.verification(string(d.Reason))
		}
	}()

	ctx = slogx.With(ctx, "username", username, "op", "verify")
	logger := slogx.FromContext(ctx)

	rec, err := s.Store.Credentials().Get(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.burnHash(secret)
		logger.Info("verification rejected", "stage", "lookup")
		return domain.Decision{}, ErrInvalidCredentials
	case err != nil:
		logger.Error("load enrollment", "stage", "store", "error", err)
		return domain.Decision{}, fmt.Errorf("load enrollment: %w", err)
	}

	ok, err := s.Hasher.Verify(secret, rec.SecretDigest)
	if err != nil {
		logger.Error("verify secret", "stage", "hash", "error", err)
		return domain.Decision{}, fmt.Errorf("verify secret: %w", err)
	}
	if !ok {
		logger.Info("verification rejected", "stage", "hash")
		return domain.Decision{}, ErrInvalidCredentials
	}

	fresh, usable, err := s.Pipeline.Embed(ctx, audioData)
	if err != nil {
		return domain.Decision{}, err
	}
	if !usable || rec.Embedding.IsDegenerate() {
		return domain.Decision{Reason: domain.ReasonInsufficientSignal}, nil
	}
	if len(fresh) != len(rec.Embedding) {
		logger.Error("embedding dimension changed",
			"stage", "compare",
			"stored", len(rec.Embedding),
			"fresh", len(fresh),
		)
		return domain.Decision{}, fmt.Errorf("%w: stored %d, fresh %d", ErrEmbeddingMismatch, len(rec.Embedding), len(fresh))
	}

	sim, ok := Cosine(rec.Embedding, fresh)
	if !ok {
		return domain.Decision{Reason: domain.ReasonInsufficientSignal}, nil
	}
	s.Metrics.observeSimilarity(sim)

	d = domain.Decision{Similarity: sim, Reason: domain.ReasonVoiceMismatch}
	if sim >= s.Threshold {
		d.Accepted = true
		d.Reason = domain.ReasonMatch
	}
	logger.Info("verification decided", "accepted", d.Accepted, "similarity", sim)
	return d, nil
}

// burnHash performs one hash verification against a throwaway digest.
func (s *VerificationService) burnHash(secret []byte) {
	s.dummyOnce.Do(func() {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		s.dummyDigest, _ = s.Hasher.Hash(buf)
	})
	if s.dummyDigest != nil {
		_, _ = s.Hasher.Verify(secret, s.dummyDigest)
	}
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1]. The
// boolean is false when either vector has zero norm or the lengths differ.
func Cosine(a, b domain.Embedding) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	x := make([]float64, len(a))
	y := make([]float64, len(b))
	for i := range a {
		x[i] = float64(a[i])
		y[i] = float64(b[i])
	}

	nx, ny := floats.Norm(x, 2), floats.Norm(y, 2)
	if nx == 0 || ny == 0 || math.IsNaN(nx) || math.IsNaN(ny) {
		return 0, false
	}
	sim := floats.Dot(x, y) / (nx * ny)
	return math.Max(-1, math.Min(1, sim)), true
}
