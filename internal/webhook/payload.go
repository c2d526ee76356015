package webhook

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cardscan/internal/model"
)

// imageExtensions is the set of file extensions treated as card images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ParsePushEvent decodes a push payload. GitHub delivers either raw JSON or
// application/x-www-form-urlencoded with the JSON in a payload field; both
// are supported.
func ParsePushEvent(body []byte, contentType string) (*model.PushEvent, error) {
	raw := body
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, eris.Wrap(err, "webhook: parse form body")
		}
		payload := values.Get("payload")
		if payload == "" {
			return nil, eris.New("webhook: form body missing payload field")
		}
		raw = []byte(payload)
	}

	var event model.PushEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, eris.Wrap(err, "webhook: parse push payload")
	}
	return &event, nil
}

// ResolveImagePath selects the card image from a push event. It rejects
// pushes to any ref but the configured branch, flattens every commit's
// added-file list in delivery order, filters by image extension and the
// optional path prefix, and returns the first match. Additional images in
// the same push are ignored.
func ResolveImagePath(event *model.PushEvent, branch, pathPrefix string) (string, error) {
	if event.Ref != "refs/heads/"+branch {
		return "", eris.Errorf("webhook: not a push to %s", branch)
	}

	for _, commit := range event.Commits {
		for _, added := range commit.Added {
			if !isImagePath(added) {
				continue
			}
			if pathPrefix != "" && !strings.HasPrefix(added, pathPrefix) {
				continue
			}
			return added, nil
		}
	}
	return "", eris.New("webhook: no image files found")
}

func isImagePath(p string) bool {
	return imageExtensions[strings.ToLower(path.Ext(p))]
}

// AddedBy extracts the scanner attribution from an image filename. The
// convention is a trailing underscore token before the extension, e.g.
// cards/2025-01-01_Anton.jpg -> "Anton". Returns "" when the filename does
// not follow the convention; attribution is best-effort metadata.
func AddedBy(imagePath string) string {
	base := path.Base(imagePath)
	base = strings.TrimSuffix(base, path.Ext(base))

	idx := strings.LastIndex(base, "_")
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return base[idx+1:]
}
