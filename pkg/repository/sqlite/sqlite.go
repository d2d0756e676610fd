package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
)

// SQLite is a repository backed by a single SQLite database file
type SQLite struct {
	db          *sql.DB
	path        string
	maxConns    int
	busyTimeout time.Duration
	risk        *riskRepository
}

var _ interfaces.Repository = &SQLite{}

type Option func(*SQLite)

// WithMaxConnections sets the maximum number of open connections
func WithMaxConnections(n int) Option {
	return func(s *SQLite) {
		s.maxConns = n
	}
}

// WithBusyTimeout sets how long a writer waits for the database lock
func WithBusyTimeout(timeout time.Duration) Option {
	return func(s *SQLite) {
		s.busyTimeout = timeout
	}
}

// New opens the database at path and applies the schema. Writes run in
// BEGIN IMMEDIATE transactions so concurrent writers queue on the file lock.
func New(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is required")
	}

	s := &SQLite{
		path:        path,
		maxConns:    4,
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	// every connection to :memory: opens a separate database
	if isMemoryPath(path) {
		s.maxConns = 1
	}

	db, err := sql.Open("sqlite3", dsn(path, s.busyTimeout))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(s.maxConns)
	db.SetMaxIdleConns(s.maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if !isMemoryPath(path) {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to enable WAL", goerr.V("path", path))
		}
	}

	s.db = db
	s.risk = newRiskRepository(db)

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func dsn(path string, busyTimeout time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_foreign_keys=on&_txlock=immediate&_busy_timeout=%d", path, sep, busyTimeout.Milliseconds())
}

func (s *SQLite) Risk() interfaces.RiskRepository {
	return s.risk
}

// Migrate creates the tables and indexes if they do not exist
func (s *SQLite) Migrate(ctx context.Context) error {
	return execTx(ctx, s.db, func(tx *sql.Tx) error {
		for i, stmt := range Schema() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return goerr.Wrap(err, "failed to apply schema statement", goerr.V("index", i))
			}
		}
		return nil
	})
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// execTx runs fn in a transaction, committing on success and rolling back otherwise
func execTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}
