package slackbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

// Notifier posts classification summaries to one Slack channel.
type Notifier struct {
	api       *slack.Client
	channelID string
}

func NewNotifier(token, channelID string, opts ...slack.Option) *Notifier {
	return &Notifier{
		api:       slack.New(token, opts...),
		channelID: channelID,
	}
}

func (n *Notifier) PostText(ctx context.Context, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting to slack channel %s: %w", n.channelID, err)
	}
	return nil
}

func (n *Notifier) NotifyClassification(ctx context.Context, rec domain.ClassificationRecord) error {
	return n.PostText(ctx, FormatClassificationMessage(rec))
}

func FormatClassificationMessage(rec domain.ClassificationRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s) → *%s* %s\n", rec.Product, rec.Manufacturer, rec.CategoryCode, rec.CategoryCode.Label())
	fmt.Fprintf(&b, "Envase: %s | Envase secundario: %s | Riesgo de merma: %s\n",
		rec.PackagingType, rec.HasSecondaryPackaging, rec.ShrinkageRisk)
	if reasoning := strings.TrimSpace(rec.Reasoning); reasoning != "" {
		fmt.Fprintf(&b, "> %s", reasoning)
	}
	return strings.TrimRight(b.String(), "\n")
}
