package config

import "time"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channel string) *Slack {
	return &Slack{
		botToken: botToken,
		channel:  channel,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, postgresURL, sqlitePath, projectID string) *Repository {
	return &Repository{
		backend:     backend,
		postgresURL: postgresURL,
		sqlitePath:  sqlitePath,
		projectID:   projectID,
	}
}

// NewCatalogForTest creates a Catalog config for testing purposes
func NewCatalogForTest(path string) *Catalog {
	return &Catalog{path: path}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

var (
	RedactURL  = redactURL
	ParseLevel = parseLevel
)

// WithSQLiteTuningForTest sets the SQLite pool size and lock wait
func (r *Repository) WithSQLiteTuningForTest(maxConns int, busyTimeout time.Duration) *Repository {
	r.sqliteMaxConns = maxConns
	r.sqliteBusyTimeout = busyTimeout
	return r
}
