// Package badger stores enrollments in an embedded BadgerDB. It suits
// single-node deployments that do not want a SQL file.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
)

type Options struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// Logger receives badger's internal log lines. Nil silences them.
	Logger *slog.Logger
}

type Store struct {
	db       *badger.DB
	inMemory bool
}

func NewStore(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(slogLogger{l: opts.Logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", store.ErrUnavailable, err)
	}
	return &Store{db: db, inMemory: opts.InMemory}, nil
}

// ApplyMigrations is a no-op; records are self-describing JSON.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("%w: database closed", store.ErrUnavailable)
	}
	return nil
}

func (s *Store) Credentials() store.Credentials { return &credentialsRepo{s: s} }

// slogLogger adapts badger's printf-style logger onto slog.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) log(level slog.Level, format string, args ...any) {
	if s.l == nil {
		return
	}
	s.l.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (s slogLogger) Errorf(f string, v ...any)   { s.log(slog.LevelError, f, v...) }
func (s slogLogger) Warningf(f string, v ...any) { s.log(slog.LevelWarn, f, v...) }
func (s slogLogger) Infof(f string, v ...any)    { s.log(slog.LevelInfo, f, v...) }
func (s slogLogger) Debugf(f string, v ...any)   { s.log(slog.LevelDebug, f, v...) }
