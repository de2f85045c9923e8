package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
)

const (
	liveClause = `(expires_at IS NULL OR expires_at > ?)`

	existsQuery = `SELECT 1 FROM enrollments WHERE username = ? AND ` + liveClause

	// A conflicting row only gives way when it has expired, so the insert is
	// atomic and the loser of a race sees zero affected rows.
	createQuery = `
INSERT INTO enrollments (username, password, embedding, embedding_shape, embedding_dtype, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(username) DO UPDATE SET
    password        = excluded.password,
    embedding       = excluded.embedding,
    embedding_shape = excluded.embedding_shape,
    embedding_dtype = excluded.embedding_dtype,
    created_at      = excluded.created_at,
    expires_at      = excluded.expires_at
WHERE enrollments.expires_at IS NOT NULL AND enrollments.expires_at <= ?`

	getQuery = `
SELECT username, password, embedding, embedding_shape, embedding_dtype, created_at, expires_at
FROM enrollments WHERE username = ? AND ` + liveClause

	deleteQuery = `DELETE FROM enrollments WHERE username = ? AND ` + liveClause

	purgeQuery = `DELETE FROM enrollments WHERE expires_at IS NOT NULL AND expires_at <= ?`
)

type credentialsRepo struct {
	db *sql.DB
}

func nowMilli() int64 { return time.Now().UnixMilli() }

func (r *credentialsRepo) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, existsQuery, username, nowMilli()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (r *credentialsRepo) Create(ctx context.Context, rec domain.EnrollmentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	p := store.EncodeRecord(rec)

	shape, err := json.Marshal(p.EmbeddingShape)
	if err != nil {
		return fmt.Errorf("encode shape: %w", err)
	}

	var expires sql.NullInt64
	if p.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: *p.ExpiresAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, createQuery,
		p.Username, p.Password, p.Embedding, string(shape), p.EmbeddingDType, p.CreatedAt, expires,
		nowMilli(),
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *credentialsRepo) Get(ctx context.Context, username string) (domain.EnrollmentRecord, error) {
	var (
		p       store.PersistedRecord
		shape   string
		expires sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, getQuery, username, nowMilli()).Scan(
		&p.Username, &p.Password, &p.Embedding, &shape, &p.EmbeddingDType, &p.CreatedAt, &expires,
	)
	if err != nil {
		return domain.EnrollmentRecord{}, mapErr(err)
	}

	if err := json.Unmarshal([]byte(shape), &p.EmbeddingShape); err != nil {
		return domain.EnrollmentRecord{}, fmt.Errorf("%w: embedding_shape: %v", store.ErrCorrupt, err)
	}
	if expires.Valid {
		p.ExpiresAt = &expires.Int64
	}
	return p.Decode()
}

func (r *credentialsRepo) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, deleteQuery, username, nowMilli())
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *credentialsRepo) PurgeExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, purgeQuery, nowMilli())
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr(err)
	}
	return int(n), nil
}
