package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

type EnrollmentService struct {
	Store    store.Store
	Hasher   SecretHasher
	Pipeline *Pipeline
	Metrics  *Metrics

	// RecordTTL sets an expiry on new records. Zero means records never
	// expire.
	RecordTTL time.Duration

	now func() time.Time
}

// Enroll stores a voice print and secret digest for a new username.
func (s *EnrollmentService) Enroll(ctx context.Context, username string, secret, audioData []byte) (err error) {
	defer func() { s.Metrics.enrollment(outcome(err)) }()

	if err := ValidateUsername(username); err != nil {
		return err
	}
	if len(secret) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSecret)
	}

	ctx = slogx.With(ctx, "username", username, "op", "enroll")
	logger := slogx.FromContext(ctx)

	// Early reject only; Create below is the source of truth.
	taken, err := s.Store.Credentials().Exists(ctx, username)
	if err != nil {
		logger.Error("check username", "stage", "store", "error", err)
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return ErrUsernameTaken
	}

	emb, ok, err := s.Pipeline.Embed(ctx, audioData)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientSignal
	}

	digest, err := s.Hasher.Hash(secret)
	if err != nil {
		logger.Error("hash secret", "stage", "hash", "error", err)
		return fmt.Errorf("hash secret: %w", err)
	}

	now := s.clock()
	rec := domain.EnrollmentRecord{
		Username:     username,
		SecretDigest: digest,
		Embedding:    emb,
		CreatedAt:    now,
	}
	if s.RecordTTL > 0 {
		exp := now.Add(s.RecordTTL)
		rec.ExpiresAt = &exp
	}

	if err := s.Store.Credentials().Create(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrUsernameTaken
		}
		logger.Error("create enrollment", "stage", "store", "error", err)
		return fmt.Errorf("create enrollment: %w", err)
	}

	logger.Info("enrolled", "dimension", len(emb))
	return nil
}

// Delete removes an enrollment. It is an administrative operation with no
// secret check.
func (s *EnrollmentService) Delete(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := s.Store.Credentials().Delete(ctx, username); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	slogx.FromContext(ctx).Info("enrollment deleted", "username", username)
	return nil
}

func (s *EnrollmentService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}
