package notify

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/pkg/telegram"
)

type fakeTelegram struct {
	sent []telegram.SendMessageRequest
	err  error
}

func (f *fakeTelegram) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.SendMessageResponse, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	return &telegram.SendMessageResponse{OK: true}, nil
}

func TestNotifier_SendsMarkdownV2(t *testing.T) {
	tg := &fakeTelegram{}
	n := New(tg, "chat-1")

	n.NewContact(context.Background(), &model.Contact{Name: "Jane Doe", PrimaryEmail: "jane@acme.com", PrimaryPhone: "5551234567"}, nil)

	if assert.Len(t, tg.sent, 1) {
		assert.Equal(t, "chat-1", tg.sent[0].ChatID)
		assert.Equal(t, telegram.ParseModeMarkdownV2, tg.sent[0].ParseMode)
	}
}

func TestNotifier_SwallowsSendErrors(t *testing.T) {
	tg := &fakeTelegram{err: eris.New("telegram down")}
	n := New(tg, "chat-1")

	// Must not panic or propagate.
	n.Failure(context.Background(), "FETCHED", "timeout")
	assert.Len(t, tg.sent, 1)
}

func TestNotifier_NoopWithoutChat(t *testing.T) {
	tg := &fakeTelegram{}
	n := New(tg, "")

	n.NewContact(context.Background(), &model.Contact{Name: "Jane Doe"}, nil)
	assert.Empty(t, tg.sent)
}
