// Package storetest is a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

func Record(username string) domain.EnrollmentRecord {
	return domain.EnrollmentRecord{
		Username:     username,
		SecretDigest: []byte("digest-of-" + username),
		Embedding:    domain.Embedding{0.1, -0.2, 0.3, math.Float32frombits(0x7fc00042)},
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Run exercises the Credentials contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	open := func(t *testing.T) store.Credentials {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.Ping(context.Background()))
		return s.Credentials()
	}

	t.Run("CreateThenGetRoundTrips", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)
		rec := Record("alice")

		require.NoError(t, creds.Create(ctx, rec))

		got, err := creds.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, rec.Username, got.Username)
		require.Equal(t, rec.SecretDigest, got.SecretDigest)
		require.Len(t, got.Embedding, len(rec.Embedding))
		for i := range rec.Embedding {
			require.Equal(t, math.Float32bits(rec.Embedding[i]), math.Float32bits(got.Embedding[i]), "element %d", i)
		}
		require.True(t, rec.CreatedAt.Equal(got.CreatedAt))
		require.Nil(t, got.ExpiresAt)
	})

	t.Run("Exists", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		ok, err := creds.Exists(ctx, "alice")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, creds.Create(ctx, Record("alice")))

		ok, err = creds.Exists(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := open(t).Get(context.Background(), "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("DuplicateCreateFails", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		first := Record("alice")
		require.NoError(t, creds.Create(ctx, first))

		second := Record("alice")
		second.SecretDigest = []byte("other")
		require.ErrorIs(t, creds.Create(ctx, second), store.ErrAlreadyExists)

		got, err := creds.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, first.SecretDigest, got.SecretDigest, "first writer wins")
	})

	t.Run("UsernamesAreCaseSensitive", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		require.NoError(t, creds.Create(ctx, Record("Alice")))
		require.NoError(t, creds.Create(ctx, Record("alice")))

		_, err := creds.Get(ctx, "ALICE")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ConcurrentCreatesHaveOneWinner", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		const n = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			wins     int
			dupes    int
			failures []error
		)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := Record("racer")
				rec.SecretDigest = fmt.Appendf(nil, "writer-%d", i)
				err := creds.Create(ctx, rec)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, store.ErrAlreadyExists):
					dupes++
				default:
					failures = append(failures, err)
				}
			}()
		}
		wg.Wait()

		require.Empty(t, failures)
		require.Equal(t, 1, wins)
		require.Equal(t, n-1, dupes)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		require.ErrorIs(t, creds.Delete(ctx, "alice"), store.ErrNotFound)
		require.NoError(t, creds.Create(ctx, Record("alice")))
		require.NoError(t, creds.Delete(ctx, "alice"))

		_, err := creds.Get(ctx, "alice")
		require.ErrorIs(t, err, store.ErrNotFound)

		// The name is free again.
		require.NoError(t, creds.Create(ctx, Record("alice")))
	})

	t.Run("ExpiredRecordsAreInvisible", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		past := time.Now().Add(-time.Hour)
		rec := Record("ghost")
		rec.ExpiresAt = &past
		require.NoError(t, creds.Create(ctx, rec))

		_, err := creds.Get(ctx, "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
		ok, err := creds.Exists(ctx, "ghost")
		require.NoError(t, err)
		require.False(t, ok)

		_, err = creds.PurgeExpired(ctx)
		require.NoError(t, err)

		// An expired name can be enrolled again.
		require.NoError(t, creds.Create(ctx, Record("ghost")))
	})

	t.Run("UnexpiredRecordsKeepExpiry", func(t *testing.T) {
		ctx := context.Background()
		creds := open(t)

		future := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		rec := Record("temp")
		rec.ExpiresAt = &future
		require.NoError(t, creds.Create(ctx, rec))

		n, err := creds.PurgeExpired(ctx)
		require.NoError(t, err)
		require.Zero(t, n)

		got, err := creds.Get(ctx, "temp")
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
		require.True(t, future.Equal(*got.ExpiresAt))
	})
}

// CorruptRecord checks how a driver treats a stored record that no longer
// decodes. The caller writes the corrupt value for username first. The
// username stays occupied until the record is deleted.
func CorruptRecord(t *testing.T, creds store.Credentials, username string) {
	t.Helper()
	ctx := context.Background()

	ok, err := creds.Exists(ctx, username)
	require.NoError(t, err)
	require.True(t, ok, "a corrupt record still occupies its username")

	_, err = creds.Get(ctx, username)
	require.ErrorIs(t, err, store.ErrCorrupt)

	err = creds.Create(ctx, Record(username))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, creds.Delete(ctx, username))
	require.NoError(t, creds.Create(ctx, Record(username)))

	_, err = creds.Get(ctx, username)
	require.NoError(t, err)
}
