package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/pkg/telegram"
)

// Notifier sends Telegram alerts about scan outcomes. Delivery is best
// effort: failures are logged and never propagate, so a Telegram outage
// cannot fail a scan that already persisted.
type Notifier struct {
	tg     telegram.Client
	chatID string
}

func New(tg telegram.Client, chatID string) *Notifier {
	return &Notifier{tg: tg, chatID: chatID}
}

func (n *Notifier) send(ctx context.Context, text string) {
	if n.tg == nil || n.chatID == "" {
		return
	}
	_, err := n.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdownV2,
	})
	if err != nil {
		zap.L().Warn("telegram notification failed", zap.Error(err))
	}
}

// NewContact announces a freshly created contact.
func (n *Notifier) NewContact(ctx context.Context, c *model.Contact, insights *model.ResearchInsights) {
	n.send(ctx, NewContactMessage(c, insights))
}

// RepeatContact announces a scan of an already-known contact.
func (n *Notifier) RepeatContact(ctx context.Context, c *model.Contact, history []model.Touchpoint) {
	n.send(ctx, RepeatContactMessage(c, history))
}

// Failure alerts the operator channel that a scan died at the given stage.
func (n *Notifier) Failure(ctx context.Context, stage, detail string) {
	n.send(ctx, ErrorMessage(stage, detail))
}
