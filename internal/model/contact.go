package model

import "time"

// ContactStatus represents where a contact sits in the follow-up funnel.
type ContactStatus string

const (
	ContactStatusNew       ContactStatus = "new"
	ContactStatusContacted ContactStatus = "contacted"
	ContactStatusQualified ContactStatus = "qualified"
	ContactStatusArchived  ContactStatus = "archived"
)

// Sentinel fallback values substituted for unreadable required fields so
// downstream code never sees an empty required scalar.
const (
	FallbackName    = "Unknown Person"
	FallbackEmail   = "unknown@unknown.com"
	FallbackPhone   = "0000000000"
	FallbackWebsite = "https://unknown.com"
	FallbackAddress = "Unknown"
)

// SocialProfiles holds up to seven social URLs read off a card.
type SocialProfiles struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	GitHub    string `json:"github,omitempty"`
}

// ExtractedContact is the canonical shape produced by the normalizer.
// PrimaryEmail and PrimaryPhone are never empty: they carry the sentinel
// fallback values when the card was unreadable. Secondary fields stay empty
// rather than defaulting to a sentinel.
type ExtractedContact struct {
	Name           string         `json:"name"`
	Company        string         `json:"company"`
	Industry       string         `json:"industry"`
	PrimaryEmail   string         `json:"primary_email"`
	SecondaryEmail string         `json:"secondary_email,omitempty"`
	PrimaryPhone   string         `json:"primary_phone"`
	SecondaryPhone string         `json:"secondary_phone,omitempty"`
	Website        string         `json:"website"`
	Address        string         `json:"address"`
	Social         SocialProfiles `json:"social"`
}

// ResearchInsights is the optional research bundle returned alongside the
// contact data. Absence of any or all fields is a valid state.
type ResearchInsights struct {
	AboutPerson          string   `json:"about_person,omitempty"`
	Opportunities        []string `json:"opportunities,omitempty"`
	Challenges           string   `json:"challenges,omitempty"`
	ConversationStarters []string `json:"conversation_starters,omitempty"`
}

// Empty reports whether the insights carry no usable research text.
func (r *ResearchInsights) Empty() bool {
	return r == nil || (r.AboutPerson == "" && len(r.Opportunities) == 0 &&
		r.Challenges == "" && len(r.ConversationStarters) == 0)
}

// OpportunitiesText joins the opportunity lines with blank-line separators.
func (r *ResearchInsights) OpportunitiesText() string {
	if r == nil || len(r.Opportunities) == 0 {
		return ""
	}
	out := r.Opportunities[0]
	for _, o := range r.Opportunities[1:] {
		out += "\n\n" + o
	}
	return out
}

// Contact is the persisted contact row. At most one contact exists per
// primary email; the store enforces this with a unique index.
type Contact struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Company        string         `json:"company"`
	Industry       string         `json:"industry"`
	PrimaryEmail   string         `json:"primary_email"`
	SecondaryEmail string         `json:"secondary_email,omitempty"`
	PrimaryPhone   string         `json:"primary_phone"`
	SecondaryPhone string         `json:"secondary_phone,omitempty"`
	Website        string         `json:"website"`
	Address        string         `json:"address"`
	Social         SocialProfiles `json:"social"`
	Source         string         `json:"source"`
	Status         ContactStatus  `json:"status"`
	UserID         string         `json:"user_id"`
	Notes          string         `json:"notes"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Touchpoint is one append-only interaction record against a contact.
type Touchpoint struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Note      string    `json:"note"`
	Source    string    `json:"source"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the owning account for scanned contacts.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
