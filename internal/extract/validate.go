package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/cardscan/internal/model"
)

var phoneChars = regexp.MustCompile(`[^0-9+]`)

// ValidationError carries every rule violation found in one pass so the
// caller can report all problems at once instead of the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extract: contact validation failed: %s", strings.Join(e.Violations, "; "))
}

// Validate checks a normalized contact against the acceptance rules and
// returns a ValidationError listing every violation, or nil when clean.
// When acceptPlaceholders is false the sentinel fallback values themselves
// count as violations, so fully-unreadable cards are rejected.
func Validate(c model.ExtractedContact, acceptPlaceholders bool) error {
	var violations []string

	if strings.TrimSpace(c.Name) == "" {
		violations = append(violations, "name is required")
	}
	if !emailPattern.MatchString(c.PrimaryEmail) {
		violations = append(violations, fmt.Sprintf("primary email %q is not a valid address", c.PrimaryEmail))
	}
	if c.SecondaryEmail != "" && !emailPattern.MatchString(c.SecondaryEmail) {
		violations = append(violations, fmt.Sprintf("secondary email %q is not a valid address", c.SecondaryEmail))
	}
	if n := len(phoneChars.ReplaceAllString(c.PrimaryPhone, "")); n < minPhoneDigits {
		violations = append(violations, fmt.Sprintf("primary phone %q has fewer than %d digits", c.PrimaryPhone, minPhoneDigits))
	}
	if c.SecondaryPhone != "" {
		if n := len(phoneChars.ReplaceAllString(c.SecondaryPhone, "")); n < minPhoneDigits {
			violations = append(violations, fmt.Sprintf("secondary phone %q has fewer than %d digits", c.SecondaryPhone, minPhoneDigits))
		}
	}

	if !acceptPlaceholders {
		if c.Name == model.FallbackName {
			violations = append(violations, "name is the unreadable-card placeholder")
		}
		if c.PrimaryEmail == model.FallbackEmail {
			violations = append(violations, "primary email is the unreadable-card placeholder")
		}
		if c.PrimaryPhone == model.FallbackPhone {
			violations = append(violations, "primary phone is the unreadable-card placeholder")
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// CleanWebsite strips the scheme, a leading www., and any trailing slash
// so stored websites compare equal regardless of how the card printed them.
func CleanWebsite(site string) string {
	site = strings.TrimSpace(site)
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	site = strings.TrimPrefix(site, "www.")
	return strings.TrimSuffix(site, "/")
}
