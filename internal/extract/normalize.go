package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/cardscan/internal/model"
)

// emailPattern is the acceptance rule for both email slots.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9-.]+$`)

var nonDigits = regexp.MustCompile(`\D`)

// minPhoneDigits is the minimum digit count for a phone to be kept.
const minPhoneDigits = 10

// Normalize maps a loosely-keyed contact_data map onto the canonical
// ExtractedContact, substituting sentinel fallbacks for missing or invalid
// required fields. Each rule is independent, and the whole transform is
// idempotent: normalizing its own output changes nothing.
func Normalize(raw map[string]any) model.ExtractedContact {
	fields := AdaptFields(raw)

	c := model.ExtractedContact{
		Name:           fallback(norm.NFC.String(stringField(fields, "name")), model.FallbackName),
		Company:        norm.NFC.String(stringField(fields, "company")),
		Industry:       stringField(fields, "industry"),
		PrimaryEmail:   normalizeEmail(stringField(fields, "primary_email"), model.FallbackEmail),
		SecondaryEmail: normalizeEmail(stringField(fields, "secondary_email"), ""),
		PrimaryPhone:   normalizePhone(stringField(fields, "primary_phone"), model.FallbackPhone),
		SecondaryPhone: normalizePhone(stringField(fields, "secondary_phone"), ""),
		Website:        normalizeWebsite(stringField(fields, "website")),
		Address:        fallback(stringField(fields, "address"), model.FallbackAddress),
		Social: model.SocialProfiles{
			LinkedIn:  stringField(fields, "linkedin"),
			Twitter:   stringField(fields, "twitter"),
			Facebook:  stringField(fields, "facebook"),
			Instagram: stringField(fields, "instagram"),
			YouTube:   stringField(fields, "youtube"),
			TikTok:    stringField(fields, "tiktok"),
			GitHub:    stringField(fields, "github"),
		},
	}
	return c
}

// Renormalize re-applies the field rules to an already-shaped contact.
// Used by tests to assert the fixed-point property.
func Renormalize(c model.ExtractedContact) model.ExtractedContact {
	raw := map[string]any{
		"name":            c.Name,
		"company":         c.Company,
		"industry":        c.Industry,
		"primary_email":   c.PrimaryEmail,
		"secondary_email": c.SecondaryEmail,
		"primary_phone":   c.PrimaryPhone,
		"secondary_phone": c.SecondaryPhone,
		"website":         c.Website,
		"address":         c.Address,
		"linkedin":        c.Social.LinkedIn,
		"twitter":         c.Social.Twitter,
		"facebook":        c.Social.Facebook,
		"instagram":       c.Social.Instagram,
		"youtube":         c.Social.YouTube,
		"tiktok":          c.Social.TikTok,
		"github":          c.Social.GitHub,
	}
	return Normalize(raw)
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// normalizeEmail validates against the email pattern. An invalid or empty
// value becomes def, which is the sentinel for the primary slot and ""
// for the optional secondary slot.
func normalizeEmail(email, def string) string {
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return def
	}
	return email
}

// normalizePhone strips everything but digits. Fewer than ten digits
// resets the value to def (zero-sentinel for primary, "" for secondary).
func normalizePhone(phone, def string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < minPhoneDigits {
		return def
	}
	return digits
}

// normalizeWebsite ensures an http(s) scheme, falling back to the unknown
// sentinel when no website was read.
func normalizeWebsite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return model.FallbackWebsite
	}
	if !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
		return "https://" + site
	}
	return site
}
