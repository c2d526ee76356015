package webhook

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cardscan/internal/model"
)

func pushJSON(ref string, added ...string) []byte {
	raw, _ := json.Marshal(model.PushEvent{Ref: ref, Commits: []model.Commit{{ID: "abc123", Added: added}}})
	return raw
}

func TestParsePushEvent_JSON(t *testing.T) {
	event, err := ParsePushEvent(pushJSON("refs/heads/main", "cards/card.jpg"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", event.Ref)
	require.Len(t, event.Commits, 1)
	assert.Equal(t, []string{"cards/card.jpg"}, event.Commits[0].Added)
}

func TestParsePushEvent_FormEncoded(t *testing.T) {
	form := url.Values{"payload": {string(pushJSON("refs/heads/main", "cards/card.jpg"))}}

	event, err := ParsePushEvent([]byte(form.Encode()), "application/x-www-form-urlencoded")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", event.Ref)
}

func TestParsePushEvent_FormMissingPayload(t *testing.T) {
	_, err := ParsePushEvent([]byte("other=1"), "application/x-www-form-urlencoded")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing payload")
}

func TestParsePushEvent_BadJSON(t *testing.T) {
	_, err := ParsePushEvent([]byte("{not json"), "application/json")
	require.Error(t, err)
}

func TestResolveImagePath_WrongBranch(t *testing.T) {
	event := &model.PushEvent{Ref: "refs/heads/feature", Commits: []model.Commit{{Added: []string{"card.jpg"}}}}

	_, err := ResolveImagePath(event, "main", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a push to main")
}

func TestResolveImagePath_FirstImageWins(t *testing.T) {
	event := &model.PushEvent{Ref: "refs/heads/main", Commits: []model.Commit{
		{Added: []string{"README.md", "cards/first.png", "cards/second.jpg"}},
		{Added: []string{"cards/third.webp"}},
	}}

	got, err := ResolveImagePath(event, "main", "")
	require.NoError(t, err)
	assert.Equal(t, "cards/first.png", got)
}

func TestResolveImagePath_ExtensionFilter(t *testing.T) {
	event := &model.PushEvent{Ref: "refs/heads/main", Commits: []model.Commit{
		{Added: []string{"card.txt", "card.pdf", "CARD.JPG"}},
	}}

	got, err := ResolveImagePath(event, "main", "")
	require.NoError(t, err)
	assert.Equal(t, "CARD.JPG", got)
}

func TestResolveImagePath_PathPrefix(t *testing.T) {
	event := &model.PushEvent{Ref: "refs/heads/main", Commits: []model.Commit{
		{Added: []string{"misc/photo.jpg", "cards/card.jpg"}},
	}}

	got, err := ResolveImagePath(event, "main", "cards/")
	require.NoError(t, err)
	assert.Equal(t, "cards/card.jpg", got)
}

func TestResolveImagePath_ModifiedFilesIgnored(t *testing.T) {
	event := &model.PushEvent{Ref: "refs/heads/main", Commits: []model.Commit{
		{Modified: []string{"cards/old.jpg"}},
	}}

	_, err := ResolveImagePath(event, "main", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")
}

func TestAddedBy(t *testing.T) {
	assert.Equal(t, "Anton", AddedBy("cards/2025-01-01_Anton.jpg"))
	assert.Equal(t, "Maria", AddedBy("scan_batch_Maria.png"))
	assert.Equal(t, "", AddedBy("cards/card.jpg"))
	assert.Equal(t, "", AddedBy("cards/card_.jpg"))
}
