package cli

import (
	"context"

	"github.com/secmon-lab/complytrack/pkg/cli/config"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const description = `complytrack serves a REST API over a risk register. Each risk carries a
checklist of weighted tasks seeded from a keyword catalog. Progress is the done share of
the total weight and maps to the statuses Ahead, on track and At risk.`

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var closer func()

	app := &cli.Command{
		Name:        "complytrack",
		Usage:       "Track compliance risks and the weighted progress of their remediation tasks",
		Description: description,
		Version:     version,
		Flags:       loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Info("Starting complytrack risk tracker",
				"command", c.Args().First(),
				"logger", loggerCfg,
				"version", version,
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdMigrate(),
			cmdValidate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
