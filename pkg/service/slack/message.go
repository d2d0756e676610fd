package slack

import (
	"fmt"
	"unicode/utf8"

	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
	"github.com/slack-go/slack"
)

// maxTitleBytes keeps the header block under Slack's 150 character limit
const maxTitleBytes = 120

func statusEmoji(s types.RiskStatus) string {
	switch s {
	case types.RiskStatusAhead:
		return ":large_green_circle:"
	case types.RiskStatusAtRisk:
		return ":red_circle:"
	default:
		return ":large_yellow_circle:"
	}
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildStatusChangeMessage(risk *model.Risk, result *model.TaskUpdateResult) (string, []slack.Block) {
	prev, cur := result.Previous.Status(), result.Current.Status()
	title := truncateToMaxBytes(risk.Title, maxTitleBytes)

	text := fmt.Sprintf("Risk #%d %q moved from %s to %s (%d%%)",
		risk.ID, title, prev, cur, result.Current.Percent())

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
		fmt.Sprintf("Risk #%d: %s", risk.ID, title), false, false))

	body := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("%s *%s* → %s *%s*\nProgress: %d%% → *%d%%*",
				statusEmoji(prev), prev, statusEmoji(cur), cur,
				result.Previous.Percent(), result.Current.Percent()),
			false, false),
		[]*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, "*Department*\n"+risk.DisplayDept(), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Review date*\n"+risk.ReviewDate.Format(model.DateLayout), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Level*\n"+risk.Level.Normalize().String(), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Owner*\n"+ownerOf(risk), false, false),
		},
		nil,
	)

	return text, []slack.Block{header, body}
}

func ownerOf(risk *model.Risk) string {
	if risk.Owner == "" {
		return risk.DisplayDept()
	}
	return risk.Owner
}
