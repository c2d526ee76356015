package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ResponseBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", resp.Text())
}

func TestContentBlockConstructors(t *testing.T) {
	txt := TextBlock("prompt")
	assert.Equal(t, "text", txt.Type)
	assert.Equal(t, "prompt", txt.Text)

	img := ImageBlock("image/png", "base64data")
	assert.Equal(t, "image", img.Type)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "base64data", img.Data)
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 18.00, cost, 0.001)

	assert.Zero(t, u.EstimateCost("unknown-model"))
}

func TestTokenUsage_EstimateCost_Cache(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}

	// Cache writes bill at 1.25x input, reads at 0.1x.
	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 3.00*1.25+3.00*0.1, cost, 0.001)
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: []ContentBlock{ImageBlock("image/jpeg", "abc"), TextBlock("extract")}},
		{Role: "assistant", Content: []ContentBlock{TextBlock("{")}},
	})
	assert.Len(t, msgs, 2)
	assert.Len(t, msgs[0].Content, 2)
}
