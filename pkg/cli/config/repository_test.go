package config_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/cli/config"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "", "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		risks, err := repo.Risk().List(ctx)
		gt.NoError(t, err)
		gt.Array(t, risks).Length(0)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "complytrack.db")
		repo, err := config.NewRepositoryForTest("sqlite", "", path, "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		risks, err := repo.Risk().List(ctx)
		gt.NoError(t, err)
		gt.Array(t, risks).Length(0)
	})

	t.Run("sqlite with tuning", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tuned.db")
		cfg := config.NewRepositoryForTest("sqlite", "", path, "").WithSQLiteTuningForTest(2, 250*time.Millisecond)
		repo, err := cfg.Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		id, err := repo.Risk().Create(ctx, &model.Risk{
			Title:      "Tuned",
			ReviewDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}, []model.TaskTemplate{{Label: "a", Weight: 100}})
		gt.NoError(t, err).Required()
		got, err := repo.Risk().Get(ctx, id)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Tasks).Length(1)
	})

	tests := []struct {
		name string
		cfg  *config.Repository
	}{
		{name: "unknown backend", cfg: config.NewRepositoryForTest("mysql", "", "", "")},
		{name: "postgres without url", cfg: config.NewRepositoryForTest("postgres", "", "", "")},
		{name: "sqlite without path", cfg: config.NewRepositoryForTest("sqlite", "", "", "")},
		{name: "firestore without project", cfg: config.NewRepositoryForTest("firestore", "", "", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Configure(ctx)
			gt.Error(t, err).Is(config.ErrInvalidConfig)
		})
	}
}

func TestRepositoryMigrator(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "complytrack.db")
		m, err := config.NewRepositoryForTest("sqlite", "", path, "").ConfigureMigrator(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, m.Close()) }()
		gt.NoError(t, m.Migrate(ctx))
	})

	t.Run("memory has no schema", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("memory", "", "", "")
		_, err := cfg.ConfigureMigrator(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
		_, err = cfg.Schema()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("schema statements", func(t *testing.T) {
		stmts, err := config.NewRepositoryForTest("postgres", "", "", "").Schema()
		gt.NoError(t, err).Required()
		gt.Bool(t, len(stmts) > 0).True()
	})
}

func TestRedactURL(t *testing.T) {
	gt.String(t, config.RedactURL("postgres://user:hunter2@db:5432/app")).Equal("postgres://user:xxxxx@db:5432/app")
	gt.String(t, config.RedactURL("")).Equal("")
}
