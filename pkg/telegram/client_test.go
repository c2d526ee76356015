package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_OK(t *testing.T) {
	var gotPath string
	var gotReq SendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	c := NewClient("bot-token", WithBaseURL(srv.URL))
	resp, err := c.SendMessage(context.Background(), SendMessageRequest{
		ChatID:    "chat-1",
		Text:      "hello",
		ParseMode: ParseModeMarkdownV2,
	})
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "chat-1", gotReq.ChatID)
	assert.Equal(t, ParseModeMarkdownV2, gotReq.ParseMode)
	assert.Equal(t, int64(42), resp.Result.MessageID)
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	}))
	defer srv.Close()

	c := NewClient("bot-token", WithBaseURL(srv.URL))
	_, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: "chat-1", Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse entities")
}

func TestSendMessage_MissingToken(t *testing.T) {
	c := NewClient("")
	_, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: "chat-1", Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `Jane\_Doe`, EscapeMarkdownV2("Jane_Doe"))
	assert.Equal(t, `jane@acme\.com`, EscapeMarkdownV2("jane@acme.com"))
	assert.Equal(t, `\(555\) 123\-4567\!`, EscapeMarkdownV2("(555) 123-4567!"))
	assert.Equal(t, "plain text", EscapeMarkdownV2("plain text"))
}
