package config

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/repository/firestore"
	"github.com/secmon-lab/complytrack/pkg/repository/memory"
	"github.com/secmon-lab/complytrack/pkg/repository/postgres"
	"github.com/secmon-lab/complytrack/pkg/repository/sqlite"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository backend names
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend                 string
	postgresURL             string
	postgresMaxConns        int
	postgresConnMaxLifetime time.Duration
	sqlitePath              string
	sqliteMaxConns          int
	sqliteBusyTimeout       time.Duration
	projectID               string
	databaseID              string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (memory, postgres, sqlite or firestore)",
			Category:    "Repository",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("COMPLYTRACK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "postgres-url",
			Usage:       "PostgreSQL connection URL (required when using postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COMPLYTRACK_POSTGRES_URL", "DATABASE_URL"),
			Destination: &r.postgresURL,
		},
		&cli.IntFlag{
			Name:        "postgres-max-conns",
			Usage:       "Maximum number of PostgreSQL pool connections",
			Category:    "Repository",
			Value:       10,
			Sources:     cli.EnvVars("COMPLYTRACK_POSTGRES_MAX_CONNS"),
			Destination: &r.postgresMaxConns,
		},
		&cli.DurationFlag{
			Name:        "postgres-conn-max-lifetime",
			Usage:       "How long a pooled PostgreSQL connection is reused",
			Category:    "Repository",
			Value:       30 * time.Minute,
			Sources:     cli.EnvVars("COMPLYTRACK_POSTGRES_CONN_MAX_LIFETIME"),
			Destination: &r.postgresConnMaxLifetime,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file (required when using sqlite backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COMPLYTRACK_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
		&cli.IntFlag{
			Name:        "sqlite-max-conns",
			Usage:       "Maximum number of open SQLite connections",
			Category:    "Repository",
			Value:       4,
			Sources:     cli.EnvVars("COMPLYTRACK_SQLITE_MAX_CONNS"),
			Destination: &r.sqliteMaxConns,
		},
		&cli.DurationFlag{
			Name:        "sqlite-busy-timeout",
			Usage:       "How long a SQLite writer waits for the database lock",
			Category:    "Repository",
			Value:       5 * time.Second,
			Sources:     cli.EnvVars("COMPLYTRACK_SQLITE_BUSY_TIMEOUT"),
			Destination: &r.sqliteBusyTimeout,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COMPLYTRACK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("COMPLYTRACK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// LogValue omits the credentials of the postgres URL
func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("postgres_url", redactURL(r.postgresURL)),
		slog.String("sqlite_path", r.sqlitePath),
		slog.String("firestore_project_id", r.projectID),
		slog.String("firestore_database_id", r.databaseID),
	)
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid)"
	}
	return u.Redacted()
}

func (r *Repository) newPostgres(ctx context.Context) (*postgres.Postgres, error) {
	if r.postgresURL == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "postgres-url is required when using postgres backend", goerr.V(BackendKey, r.backend))
	}
	var opts []postgres.Option
	if r.postgresMaxConns > 0 {
		opts = append(opts, postgres.WithMaxConns(int32(r.postgresMaxConns))) // #nosec G115 - bounded by flag
	}
	if r.postgresConnMaxLifetime > 0 {
		opts = append(opts, postgres.WithConnMaxLifetime(r.postgresConnMaxLifetime))
	}
	repo, err := postgres.New(ctx, r.postgresURL, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize postgres repository")
	}
	return repo, nil
}

func (r *Repository) newSQLite(ctx context.Context) (*sqlite.SQLite, error) {
	if r.sqlitePath == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "sqlite-path is required when using sqlite backend", goerr.V(BackendKey, r.backend))
	}
	var opts []sqlite.Option
	if r.sqliteMaxConns > 0 {
		opts = append(opts, sqlite.WithMaxConnections(r.sqliteMaxConns))
	}
	if r.sqliteBusyTimeout > 0 {
		opts = append(opts, sqlite.WithBusyTimeout(r.sqliteBusyTimeout))
	}
	repo, err := sqlite.New(ctx, r.sqlitePath, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sqlite repository", goerr.V("path", r.sqlitePath))
	}
	return repo, nil
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend", goerr.V(BackendKey, r.backend))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendPostgres:
		repo, err := r.newPostgres(ctx)
		if err != nil {
			return nil, err
		}
		logging.Default().Info("Using PostgreSQL repository", "url", redactURL(r.postgresURL))
		return repo, nil

	case BackendSQLite:
		repo, err := r.newSQLite(ctx)
		if err != nil {
			return nil, err
		}
		logging.Default().Info("Using SQLite repository", "path", r.sqlitePath)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}

// Migrator is a repository whose schema can be applied on demand
type Migrator interface {
	Migrate(ctx context.Context) error
	Close() error
}

// ConfigureMigrator opens the configured SQL backend for schema migration
func (r *Repository) ConfigureMigrator(ctx context.Context) (Migrator, error) {
	switch r.backend {
	case BackendPostgres:
		return r.newPostgres(ctx)
	case BackendSQLite:
		return r.newSQLite(ctx)
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "migration requires postgres or sqlite backend", goerr.V(BackendKey, r.backend))
	}
}

// Schema returns the DDL statements of the configured SQL backend
func (r *Repository) Schema() ([]string, error) {
	switch r.backend {
	case BackendPostgres:
		return postgres.Schema(), nil
	case BackendSQLite:
		return sqlite.Schema(), nil
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "schema is only defined for postgres or sqlite backend", goerr.V(BackendKey, r.backend))
	}
}
