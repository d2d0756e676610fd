package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/cli/config"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var catalogPath string
	var title string

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a seed catalog file and print its categories",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "seed-catalog",
				Usage:       "TOML seed catalog file to validate",
				Required:    true,
				Sources:     cli.EnvVars("COMPLYTRACK_SEED_CATALOG"),
				Destination: &catalogPath,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "Print the tasks that would be seeded for this risk title",
				Destination: &title,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			catalog, err := config.LoadCatalog(catalogPath)
			if err != nil {
				return goerr.Wrap(err, "seed catalog validation failed")
			}

			logger.Info("Seed catalog validation passed",
				"path", catalogPath,
				"entry_count", len(catalog.Entries),
			)

			w := outputWriter(c)
			for _, e := range catalog.Entries {
				if _, err := fmt.Fprintf(w, "%s\t%d tasks\tkeywords=%v\n", e.Name, len(e.Tasks), e.Keywords); err != nil {
					return goerr.Wrap(err, "failed to print catalog")
				}
			}
			if _, err := fmt.Fprintf(w, "default\t%d tasks\n", len(catalog.Default)); err != nil {
				return goerr.Wrap(err, "failed to print catalog")
			}

			if title != "" {
				return printSeedPreview(c, catalog, title)
			}
			return nil
		},
	}
}

func printSeedPreview(c *cli.Command, catalog *model.Catalog, title string) error {
	w := outputWriter(c)
	if _, err := fmt.Fprintf(w, "\n%q matches %s\n", title, catalog.EntryName(title)); err != nil {
		return goerr.Wrap(err, "failed to print preview")
	}
	for _, t := range catalog.Tasks(title) {
		if _, err := fmt.Fprintf(w, "  [%3d] %s\n", t.Weight, t.Label); err != nil {
			return goerr.Wrap(err, "failed to print preview")
		}
	}
	return nil
}
