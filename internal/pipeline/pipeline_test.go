package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cardscan/internal/config"
	"github.com/sells-group/cardscan/internal/extract"
	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/internal/notify"
	"github.com/sells-group/cardscan/internal/reconcile"
	"github.com/sells-group/cardscan/internal/webhook"
	"github.com/sells-group/cardscan/pkg/github"
	"github.com/sells-group/cardscan/pkg/telegram"
)

const testSecret = "topsecret"

type fakeFetcher struct {
	calls int
	file  *github.RawFile
	err   error
}

func (f *fakeFetcher) FetchRaw(_ context.Context, path string) (*github.RawFile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	file := *f.file
	file.Path = path
	return &file, nil
}

type fakeExtractor struct {
	calls int
	raw   *extract.RawExtraction
	err   error
}

func (f *fakeExtractor) ExtractCard(context.Context, []byte, string) (*extract.RawExtraction, error) {
	f.calls++
	return f.raw, f.err
}

type fakeReconciler struct {
	calls   int
	addedBy string
	result  *reconcile.Result
	err     error
}

func (f *fakeReconciler) Reconcile(_ context.Context, _ model.ExtractedContact, _ *model.ResearchInsights, addedBy string) (*reconcile.Result, error) {
	f.calls++
	f.addedBy = addedBy
	return f.result, f.err
}

type fakeTelegram struct {
	sent []telegram.SendMessageRequest
}

func (f *fakeTelegram) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.SendMessageResponse, error) {
	f.sent = append(f.sent, req)
	return &telegram.SendMessageResponse{OK: true}, nil
}

type env struct {
	pipeline   *Pipeline
	fetcher    *fakeFetcher
	extractor  *fakeExtractor
	reconciler *fakeReconciler
	telegram   *fakeTelegram
}

func newTestEnv() *env {
	cfg := &config.Config{
		GitHub:   config.GitHubConfig{Branch: "main", WebhookSecret: testSecret},
		Pipeline: config.PipelineConfig{AdminUser: "Admin", AcceptPlaceholderContacts: true},
	}

	fetcher := &fakeFetcher{file: &github.RawFile{Data: []byte("image-bytes"), ContentType: "image/jpeg"}}
	extractor := &fakeExtractor{raw: &extract.RawExtraction{
		ContactData: map[string]any{
			"name":          "Jane Doe",
			"company":       "Acme Corp",
			"primary_email": "jane@acme.com",
			"primary_phone": "(555) 123-4567",
		},
		Insights: &model.ResearchInsights{AboutPerson: "CEO of Acme"},
	}}
	reconciler := &fakeReconciler{result: &reconcile.Result{
		Contact:      &model.Contact{ID: "c-1", Name: "Jane Doe", Company: "Acme Corp"},
		IsNewContact: true,
	}}
	tg := &fakeTelegram{}

	p := New(cfg, fetcher, extractor, reconciler, notify.New(tg, "chat-1"))
	return &env{pipeline: p, fetcher: fetcher, extractor: extractor, reconciler: reconciler, telegram: tg}
}

func pushRequest(t *testing.T, added ...string) *Request {
	t.Helper()
	body, err := json.Marshal(model.PushEvent{
		Ref:     "refs/heads/main",
		Commits: []model.Commit{{ID: "abc123", Added: added}},
	})
	require.NoError(t, err)
	return &Request{
		Event:       "push",
		Signature:   webhook.Sign(testSecret, body),
		ContentType: "application/json",
		Body:        body,
	}
}

func TestRun_NewContact(t *testing.T) {
	e := newTestEnv()

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/2026-08-31_Anton.jpg"))

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, "Jane Doe", resp.Body["contact"])
	assert.Equal(t, "Acme Corp", resp.Body["company"])
	assert.Equal(t, true, resp.Body["isNewContact"])
	assert.Equal(t, true, resp.Body["researchCompleted"])

	assert.Equal(t, "Anton", e.reconciler.addedBy)
	// One new-contact notification.
	require.Len(t, e.telegram.sent, 1)
	assert.Contains(t, e.telegram.sent[0].Text, "New contact scanned")
}

func TestRun_RepeatContact(t *testing.T) {
	e := newTestEnv()
	e.extractor.raw.Insights = nil
	e.reconciler.result = &reconcile.Result{
		Contact:      &model.Contact{ID: "c-1", Name: "Jane Doe", Company: "Acme Corp", PrimaryEmail: "jane@acme.com"},
		IsNewContact: false,
		History:      []model.Touchpoint{{ID: "t-1", ContactID: "c-1", Source: "business_card", AddedBy: "Maria"}},
	}

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, false, resp.Body["isNewContact"])
	assert.Equal(t, false, resp.Body["researchCompleted"])
	require.Len(t, e.telegram.sent, 1)
	assert.Contains(t, e.telegram.sent[0].Text, "already met")
	assert.Contains(t, e.telegram.sent[0].Text, `Previously met by Maria\.`)
}

func TestRun_TamperedSignature(t *testing.T) {
	e := newTestEnv()

	req := pushRequest(t, "cards/card.jpg")
	req.Body = append(req.Body, '\n')

	resp := e.pipeline.Run(context.Background(), req)

	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Invalid webhook signature", resp.Body["error"])
	// Nothing downstream ran and nothing was notified.
	assert.Zero(t, e.fetcher.calls)
	assert.Zero(t, e.extractor.calls)
	assert.Zero(t, e.reconciler.calls)
	assert.Empty(t, e.telegram.sent)
}

func TestRun_NonMainBranch(t *testing.T) {
	e := newTestEnv()

	body, err := json.Marshal(model.PushEvent{
		Ref:     "refs/heads/feature",
		Commits: []model.Commit{{Added: []string{"cards/card.jpg"}}},
	})
	require.NoError(t, err)

	resp := e.pipeline.Run(context.Background(), &Request{
		Event:       "push",
		Signature:   webhook.Sign(testSecret, body),
		ContentType: "application/json",
		Body:        body,
	})

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, e.fetcher.calls)
	// Payload rejections do not alert the operator channel.
	assert.Empty(t, e.telegram.sent)
}

func TestRun_NonPushEvent(t *testing.T) {
	e := newTestEnv()

	body, err := json.Marshal(model.PushEvent{
		Ref:     "refs/heads/main",
		Commits: []model.Commit{{Added: []string{"cards/card.jpg"}}},
	})
	require.NoError(t, err)

	resp := e.pipeline.Run(context.Background(), &Request{
		Event:       "ping",
		Signature:   webhook.Sign(testSecret, body),
		ContentType: "application/json",
		Body:        body,
	})

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Malformed webhook payload", resp.Body["error"])
	assert.Zero(t, e.fetcher.calls)
	assert.Empty(t, e.telegram.sent)
}

func TestRun_ExtractionFailure(t *testing.T) {
	e := newTestEnv()
	e.extractor.raw = nil
	e.extractor.err = eris.New("extract: no JSON object in model response")

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Data extraction failed", resp.Body["error"])
	assert.Contains(t, resp.Body["details"], "no JSON object")
	assert.Zero(t, e.reconciler.calls)
	// Exactly one failure alert.
	require.Len(t, e.telegram.sent, 1)
	assert.Contains(t, e.telegram.sent[0].Text, "Card scan failed")
}

func TestRun_ExtractionTransportFailure(t *testing.T) {
	e := newTestEnv()
	e.extractor.raw = nil
	e.extractor.err = &extract.TransportError{
		Err: eris.New("extract: vision call: connection refused"),
	}

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	// Not reaching the model is a server-side failure, not a bad payload.
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Data extraction failed", resp.Body["error"])
	assert.Zero(t, e.reconciler.calls)
	require.Len(t, e.telegram.sent, 1)
	assert.Contains(t, e.telegram.sent[0].Text, "Card scan failed")
}

func TestRun_FetchFailure(t *testing.T) {
	e := newTestEnv()
	e.fetcher.err = eris.New("github: fetch cards/card.jpg: status 404")

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Failed to fetch card image", resp.Body["error"])
	require.Len(t, e.telegram.sent, 1)
}

func TestRun_ReconcileFailure(t *testing.T) {
	e := newTestEnv()
	e.reconciler.result = nil
	e.reconciler.err = eris.New("postgres: insert contact")

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Failed to save contact", resp.Body["error"])
	require.Len(t, e.telegram.sent, 1)
}

func TestRun_ValidationFailure(t *testing.T) {
	e := newTestEnv()
	e.pipeline.cfg.Pipeline.AcceptPlaceholderContacts = false
	// An unreadable card normalizes to all placeholders.
	e.extractor.raw = &extract.RawExtraction{ContactData: map[string]any{}}

	resp := e.pipeline.Run(context.Background(), pushRequest(t, "cards/card.jpg"))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Contact validation failed", resp.Body["error"])
	assert.Zero(t, e.reconciler.calls)
	require.Len(t, e.telegram.sent, 1)
}

func TestProcessImage_BypassesWebhookStages(t *testing.T) {
	e := newTestEnv()

	resp := e.pipeline.ProcessImage(context.Background(), "cards/2026-08-31_Maria.jpg")

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Maria", e.reconciler.addedBy)
	assert.Equal(t, 1, e.fetcher.calls)
}
