package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
)

const keyPrefix = "enrollment:"

func key(username string) []byte { return []byte(keyPrefix + username) }

type credentialsRepo struct {
	s *Store
}

// load reads and decodes the live record under k. Expired records read as
// badger.ErrKeyNotFound.
func load(txn *badger.Txn, k []byte, now time.Time) (domain.EnrollmentRecord, error) {
	item, err := txn.Get(k)
	if err != nil {
		return domain.EnrollmentRecord{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return domain.EnrollmentRecord{}, err
	}
	rec, err := store.UnmarshalRecord(raw)
	if err != nil {
		return domain.EnrollmentRecord{}, err
	}
	if store.Expired(rec, now) {
		return domain.EnrollmentRecord{}, badger.ErrKeyNotFound
	}
	return rec, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return store.ErrNotFound
	case errors.Is(err, store.ErrCorrupt), errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
}

func (r *credentialsRepo) Exists(ctx context.Context, username string) (bool, error) {
	_, err := r.Get(ctx, username)
	switch {
	case err == nil, errors.Is(err, store.ErrCorrupt):
		// A corrupt record still occupies its username.
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *credentialsRepo) Create(_ context.Context, rec domain.EnrollmentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	raw, err := store.MarshalRecord(rec)
	if err != nil {
		return err
	}

	k := key(rec.Username)
	err = r.s.db.Update(func(txn *badger.Txn) error {
		_, err := load(txn, k, time.Now())
		switch {
		case err == nil, errors.Is(err, store.ErrCorrupt):
			return store.ErrAlreadyExists
		case errors.Is(err, badger.ErrKeyNotFound):
			// An expired record is overwritten like an absent one.
		default:
			return err
		}
		return txn.Set(k, raw)
	})
	// The read above registers k in the conflict set, so a racing writer
	// that committed first surfaces here.
	if errors.Is(err, badger.ErrConflict) {
		return store.ErrAlreadyExists
	}
	return mapErr(err)
}

func (r *credentialsRepo) Get(_ context.Context, username string) (domain.EnrollmentRecord, error) {
	var rec domain.EnrollmentRecord
	err := r.s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = load(txn, key(username), time.Now())
		return err
	})
	if err != nil {
		return domain.EnrollmentRecord{}, mapErr(err)
	}
	return rec, nil
}

func (r *credentialsRepo) Delete(_ context.Context, username string) error {
	k := key(username)
	err := r.s.db.Update(func(txn *badger.Txn) error {
		if _, err := load(txn, k, time.Now()); err != nil && !errors.Is(err, store.ErrCorrupt) {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrConflict) {
		return store.ErrNotFound
	}
	return mapErr(err)
}

// PurgeExpired deletes expired records then asks badger to rewrite value
// log files that are mostly garbage.
func (r *credentialsRepo) PurgeExpired(ctx context.Context) (int, error) {
	now := time.Now()
	var expired [][]byte

	err := r.s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := store.UnmarshalRecord(raw)
			if err != nil {
				continue
			}
			if store.Expired(rec, now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, mapErr(err)
	}

	removed := 0
	for _, k := range expired {
		err := r.s.db.Update(func(txn *badger.Txn) error {
			// Re-check: the name may have been re-enrolled since the scan.
			_, err := load(txn, k, now)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				if _, gerr := txn.Get(k); gerr != nil {
					return gerr
				}
				return txn.Delete(k)
			case err == nil, errors.Is(err, store.ErrCorrupt):
				return errSkip
			default:
				return err
			}
		})
		switch {
		case err == nil:
			removed++
		case errors.Is(err, errSkip), errors.Is(err, badger.ErrKeyNotFound), errors.Is(err, badger.ErrConflict):
		default:
			return removed, mapErr(err)
		}
	}

	if !r.s.inMemory {
		if err := r.s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			return removed, mapErr(err)
		}
	}
	return removed, nil
}

var errSkip = errors.New("skip")
