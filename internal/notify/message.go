package notify

import (
	"fmt"
	"strings"

	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/pkg/telegram"
)

const (
	// maxHistoryLines caps how many prior touchpoints a repeat-contact
	// message lists.
	maxHistoryLines = 5

	// maxNoteLen is the longest touchpoint note shown inline. Longer notes
	// are research text, not meeting notes, so they are left out.
	maxNoteLen = 50
)

func esc(s string) string {
	return telegram.EscapeMarkdownV2(s)
}

// NewContactMessage renders the notification for a first-time contact.
func NewContactMessage(c *model.Contact, insights *model.ResearchInsights) string {
	var b strings.Builder

	b.WriteString("🆕 *New contact scanned*\n\n")
	fmt.Fprintf(&b, "*%s*", esc(c.Name))
	if c.Company != "" {
		fmt.Fprintf(&b, " — %s", esc(c.Company))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "📧 %s\n", esc(c.PrimaryEmail))
	fmt.Fprintf(&b, "📞 %s\n", esc(c.PrimaryPhone))

	if insights.Empty() {
		b.WriteString("\n_Research unavailable for this contact\\._")
		return b.String()
	}

	if insights.AboutPerson != "" {
		fmt.Fprintf(&b, "\n*About*\n%s\n", esc(insights.AboutPerson))
	}
	if len(insights.Opportunities) > 0 {
		b.WriteString("\n*Opportunities*\n")
		for _, o := range insights.Opportunities {
			fmt.Fprintf(&b, "• %s\n", esc(o))
		}
	}
	if insights.Challenges != "" {
		fmt.Fprintf(&b, "\n*Challenges*\n%s\n", esc(insights.Challenges))
	}
	if len(insights.ConversationStarters) > 0 {
		b.WriteString("\n*Conversation starters*\n")
		for _, cs := range insights.ConversationStarters {
			fmt.Fprintf(&b, "• %s\n", esc(cs))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RepeatContactMessage renders the notification for a contact that already
// exists, listing recent touchpoints. history is ordered newest first, so
// its head names whoever met the contact last.
func RepeatContactMessage(c *model.Contact, history []model.Touchpoint) string {
	var b strings.Builder

	b.WriteString("🔁 *You've already met this contact*\n\n")
	fmt.Fprintf(&b, "*%s*", esc(c.Name))
	if c.Company != "" {
		fmt.Fprintf(&b, " — %s", esc(c.Company))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "📧 %s\n", esc(c.PrimaryEmail))
	if len(history) > 0 && history[0].AddedBy != "" {
		fmt.Fprintf(&b, "\nPreviously met by %s\\.\n", esc(history[0].AddedBy))
	}

	if len(history) == 0 {
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("\n*Previous touchpoints*\n")
	shown := history
	if len(shown) > maxHistoryLines {
		shown = shown[:maxHistoryLines]
	}
	for _, tp := range shown {
		fmt.Fprintf(&b, "• %s: %s", esc(tp.CreatedAt.Format("2006-01-02")), esc(tp.Source))
		if tp.AddedBy != "" {
			fmt.Fprintf(&b, " \\(by %s\\)", esc(tp.AddedBy))
		}
		if tp.Note != "" && len(tp.Note) <= maxNoteLen {
			fmt.Fprintf(&b, " \\- %s", esc(tp.Note))
		}
		b.WriteString("\n")
	}
	if extra := len(history) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\\+%d more\n", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ErrorMessage renders the operator alert sent when a scan fails partway
// through the pipeline.
func ErrorMessage(stage, detail string) string {
	var b strings.Builder
	b.WriteString("⚠️ *Card scan failed*\n\n")
	fmt.Fprintf(&b, "Stage: %s\n", esc(stage))
	fmt.Fprintf(&b, "Error: %s", esc(detail))
	return b.String()
}
