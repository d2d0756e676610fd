package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/cli/config"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func outputWriter(c *cli.Command) io.Writer {
	if root := c.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Print schema statements without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Apply the database schema to a postgres or sqlite backend",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"repository", repoCfg,
				"dryRun", dryRun)

			if dryRun {
				stmts, err := repoCfg.Schema()
				if err != nil {
					return goerr.Wrap(err, "failed to get schema")
				}
				w := outputWriter(c)
				for _, stmt := range stmts {
					if _, err := fmt.Fprintf(w, "%s;\n\n", strings.TrimSpace(stmt)); err != nil {
						return goerr.Wrap(err, "failed to print schema")
					}
				}
				return nil
			}

			migrator, err := repoCfg.ConfigureMigrator(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository for migration")
			}
			defer func() {
				if err := migrator.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			logger.Info("Applying migrations", "backend", repoCfg.Backend())
			if err := migrator.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")

			return nil
		},
	}
}
