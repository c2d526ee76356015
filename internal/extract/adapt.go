package extract

import "strings"

// fieldAliases maps the alternate key spellings models emit onto the
// canonical contact_data keys. Lookup is case-insensitive, so this table
// only lists aliases whose lowercase form differs from the canonical key.
var fieldAliases = map[string]string{
	"full_name":    "name",
	"fullname":     "name",
	"email":        "primary_email",
	"email_1":      "primary_email",
	"email_2":      "secondary_email",
	"phone":        "primary_phone",
	"phone_1":      "primary_phone",
	"phone_2":      "secondary_phone",
	"mobile":       "secondary_phone",
	"company_name": "company",
	"url":          "website",
	"web":          "website",
	"x":            "twitter",
}

// AdaptFields produces one canonical key set from a loosely-keyed
// contact_data map: keys are lowercased, known aliases are folded onto
// canonical names, and single nested wrappers keyed by "" or "contact" are
// unwrapped. A canonical key already present wins over an alias; first
// alias in map order wins otherwise. A surname value is appended to the
// name rather than mapped to a key of its own.
func AdaptFields(raw map[string]any) map[string]any {
	raw = unwrap(raw)

	out := make(map[string]any, len(raw))
	var surname string
	// Canonical keys first so no alias can clobber a direct value.
	for key, val := range raw {
		k := strings.ToLower(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		if k == "surname" || k == "last_name" || k == "lastname" {
			if s, ok := val.(string); ok && surname == "" {
				surname = strings.TrimSpace(s)
			}
			continue
		}
		if _, isAlias := fieldAliases[k]; !isAlias {
			out[k] = val
		}
	}
	for key, val := range raw {
		k := strings.ToLower(strings.TrimSpace(key))
		canonical, isAlias := fieldAliases[k]
		if !isAlias {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = val
		}
	}
	if surname != "" {
		if name := stringField(out, "name"); name != "" {
			out["name"] = name + " " + surname
		} else {
			out["name"] = surname
		}
	}
	return out
}

// unwrap descends through single-entry wrapper objects keyed by "" or
// "contact", which some model responses nest around the real fields.
func unwrap(raw map[string]any) map[string]any {
	for {
		if len(raw) != 1 {
			return raw
		}
		for key, val := range raw {
			k := strings.ToLower(strings.TrimSpace(key))
			inner, ok := val.(map[string]any)
			if !ok || (k != "" && k != "contact" && k != "contact_data") {
				return raw
			}
			raw = inner
		}
	}
}

// stringField reads a trimmed string value from an adapted map; missing,
// null, and non-string values all read as "".
func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
