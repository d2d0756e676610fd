package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// Notifier posts risk status transitions to one Slack channel
type Notifier struct {
	api     *slack.Client
	channel string
}

var _ interfaces.Notifier = &Notifier{}

// Option is a functional option for Notifier configuration
type Option func(*options)

type options struct {
	apiURL string
}

// WithAPIURL overrides the Slack Web API endpoint, e.g. for a test server.
// The URL must end with a slash.
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// New creates a Notifier with the provided bot token and channel ID or name
func New(token, channel string, opts ...Option) (*Notifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channel == "" {
		return nil, goerr.New("Slack channel is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []slack.Option
	if o.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &Notifier{
		api:     slack.New(token, apiOpts...),
		channel: channel,
	}, nil
}

// NotifyStatusChange posts a message describing the move from result.Previous to result.Current
func (n *Notifier) NotifyStatusChange(ctx context.Context, risk *model.Risk, result *model.TaskUpdateResult) error {
	if risk == nil || result == nil {
		return goerr.New("risk and result are required")
	}

	text, blocks := buildStatusChangeMessage(risk, result)
	channelID, ts, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post status change",
			goerr.V("channel", n.channel),
			goerr.V("risk_id", risk.ID),
		)
	}

	logging.From(ctx).Debug("posted status change",
		"channel", channelID,
		"ts", ts,
		"risk_id", risk.ID,
		"status", result.Current.Status(),
	)
	return nil
}
