// Package extract turns a card image into a normalized, validated contact.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cardscan/internal/config"
	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/pkg/anthropic"
)

// RawExtraction is the model's output before normalization: the contact
// fields as a loose map (aliases not yet canonicalized) plus any insights.
type RawExtraction struct {
	ContactData map[string]any
	Insights    *model.ResearchInsights
}

// TransportError marks a failure reaching the vision model, as opposed to
// a response whose body could not be used.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Extractor sends card images to the vision model and parses the response.
type Extractor struct {
	ai  anthropic.Client
	cfg config.AnthropicConfig
}

// New creates an Extractor.
func New(ai anthropic.Client, cfg config.AnthropicConfig) *Extractor {
	return &Extractor{ai: ai, cfg: cfg}
}

// ExtractCard sends the image and returns the raw extraction. A response
// with no JSON object or without a contact_data key is an error, never an
// empty object.
func (e *Extractor) ExtractCard(ctx context.Context, image []byte, contentType string) (*RawExtraction, error) {
	mediaType := normalizeMediaType(contentType)

	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.VisionModel,
		MaxTokens: e.cfg.MaxTokens,
		System:    []anthropic.SystemBlock{{Text: systemText}},
		Messages: []anthropic.Message{
			{Role: "user", Content: []anthropic.ContentBlock{
				anthropic.ImageBlock(mediaType, base64.StdEncoding.EncodeToString(image)),
				anthropic.TextBlock(cardPrompt),
			}},
		},
	})
	if err != nil {
		return nil, &TransportError{Err: eris.Wrap(err, "extract: vision call")}
	}
	resp.Usage.LogCost(e.cfg.VisionModel, "card_extraction")

	return ParseResponse(resp.Text())
}

// ParseResponse locates and decodes the JSON object in the model's free
// text.
func ParseResponse(text string) (*RawExtraction, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("extract: no JSON object in model response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "extract: parse model JSON")
	}

	contactData, ok := raw["contact_data"].(map[string]any)
	if !ok {
		return nil, eris.New("extract: model response missing contact_data")
	}

	out := &RawExtraction{ContactData: contactData}
	if insights, ok := raw["research_insights"].(map[string]any); ok {
		out.Insights = parseInsights(insights)
	}
	return out, nil
}

// parseInsights reads the research bundle tolerantly: opportunities may be
// a single string or a list, and any field may be absent.
func parseInsights(m map[string]any) *model.ResearchInsights {
	ins := &model.ResearchInsights{}

	if s, ok := m["about_person"].(string); ok {
		ins.AboutPerson = strings.TrimSpace(s)
	}
	if s, ok := m["challenges"].(string); ok {
		ins.Challenges = strings.TrimSpace(s)
	}
	ins.Opportunities = toStringList(m["opportunities"])
	ins.ConversationStarters = toStringList(m["conversation_starters"])

	if ins.Empty() {
		return nil
	}
	return ins
}

func toStringList(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// cleanJSON strips markdown code fences, then extracts the first balanced
// {...} span. Balanced scanning (rather than first-{ to last-}) keeps stray
// braces in surrounding explanatory text from corrupting the object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return balancedObject(text)
}

// balancedObject returns the first brace-balanced JSON object span in text,
// or "" when none closes. String literals and escapes are honored so braces
// inside values don't affect the depth count.
func balancedObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	zap.L().Warn("extract: unbalanced JSON object in model response",
		zap.Int("start", start),
		zap.Int("len", len(text)),
	)
	return ""
}

// normalizeMediaType maps a fetched Content-Type onto the media types the
// vision API accepts.
func normalizeMediaType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return ct
	case "image/jpg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
