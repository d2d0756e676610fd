package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
)

// Postgres is a repository backed by a PostgreSQL connection pool
type Postgres struct {
	pool *pgxpool.Pool
	risk *riskRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*pgxpool.Config)

// WithMaxConns sets the maximum number of pooled connections
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// WithConnMaxLifetime sets how long a pooled connection is reused
func WithConnMaxLifetime(d time.Duration) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConnLifetime = d
	}
}

// New connects to the database at connString and verifies the connection
func New(ctx context.Context, connString string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres connection string")
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	return &Postgres{
		pool: pool,
		risk: newRiskRepository(pool),
	}, nil
}

func (p *Postgres) Risk() interfaces.RiskRepository {
	return p.risk
}

// Migrate creates the tables and indexes if they do not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	return execTx(ctx, p.pool, func(tx pgx.Tx) error {
		for i, stmt := range Schema() {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return goerr.Wrap(err, "failed to apply schema statement", goerr.V("index", i))
			}
		}
		return nil
	})
}

// Truncate removes every risk and task and restarts the id sequences
func (p *Postgres) Truncate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "TRUNCATE risk_tasks, risks RESTART IDENTITY CASCADE"); err != nil {
		return goerr.Wrap(err, "failed to truncate tables")
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// execTx runs fn in a transaction, committing on success and rolling back otherwise
func execTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}
