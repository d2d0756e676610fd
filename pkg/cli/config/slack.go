package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/service/slack"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken string
	channel  string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for status change notifications)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("COMPLYTRACK_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID that receives status change notifications",
			Category:    "Slack",
			Destination: &x.channel,
			Sources:     cli.EnvVars("COMPLYTRACK_SLACK_CHANNEL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// Configure returns a Slack notifier, or nil if notifications are disabled.
// Setting only one of the token and the channel is an error.
func (x *Slack) Configure() (interfaces.Notifier, error) {
	if x.botToken == "" && x.channel == "" {
		logging.Default().Info("Slack notification is disabled")
		return nil, nil
	}
	if x.botToken == "" || x.channel == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "both slack-bot-token and slack-channel are required",
			goerr.V("bot_token.len", len(x.botToken)),
			goerr.V("channel", x.channel),
		)
	}

	notifier, err := slack.New(x.botToken, x.channel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack notifier")
	}
	logging.Default().Info("Slack notification is enabled", "channel", x.channel)
	return notifier, nil
}
