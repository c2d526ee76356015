// Package pipeline runs a webhook delivery through the card-scan stages,
// from signature check to Telegram notification.
package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cardscan/internal/config"
	"github.com/sells-group/cardscan/internal/extract"
	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/internal/notify"
	"github.com/sells-group/cardscan/internal/reconcile"
	"github.com/sells-group/cardscan/internal/webhook"
	"github.com/sells-group/cardscan/pkg/github"
)

// Stage labels one step of the delivery lifecycle. A delivery moves through
// the stages in order and stops at ERROR, which has no outgoing transition.
type Stage string

const (
	StageReceived      Stage = "RECEIVED"
	StageAuthenticated Stage = "AUTHENTICATED"
	StageParsed        Stage = "PARSED"
	StageFetched       Stage = "FETCHED"
	StageExtracted     Stage = "EXTRACTED"
	StageNormalized    Stage = "NORMALIZED"
	StageValidated     Stage = "VALIDATED"
	StageReconciled    Stage = "RECONCILED"
	StageNotified      Stage = "NOTIFIED"
	StageDone          Stage = "DONE"
	StageError         Stage = "ERROR"
)

// Request is one webhook delivery as received over HTTP.
type Request struct {
	Event       string
	Signature   string
	ContentType string
	Body        []byte
}

// Response is the HTTP outcome of a delivery.
type Response struct {
	Status int
	Body   map[string]any
}

// stageError pins a failure to the stage it happened in and carries the
// HTTP mapping for it. alert controls whether the operator channel hears
// about it; signature and payload rejections stay quiet.
type stageError struct {
	stage   Stage
	status  int
	message string
	err     error
	alert   bool
}

func (e *stageError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.message
}

// Extractor is the vision-extraction dependency of the pipeline.
type Extractor interface {
	ExtractCard(ctx context.Context, image []byte, contentType string) (*extract.RawExtraction, error)
}

// Reconciler is the persistence dependency of the pipeline.
type Reconciler interface {
	Reconcile(ctx context.Context, contact model.ExtractedContact, insights *model.ResearchInsights, addedBy string) (*reconcile.Result, error)
}

// Pipeline wires the delivery stages together. All dependencies are
// injected so tests can run a delivery end to end with fakes.
type Pipeline struct {
	cfg        *config.Config
	fetcher    github.Client
	extractor  Extractor
	reconciler Reconciler
	notifier   *notify.Notifier
}

func New(cfg *config.Config, fetcher github.Client, ex Extractor, rec Reconciler, n *notify.Notifier) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher, extractor: ex, reconciler: rec, notifier: n}
}

// Run executes one delivery and returns the HTTP response to send. It
// never returns an error: every failure is folded into the response, and
// failures past the payload stage additionally alert the operator channel.
func (p *Pipeline) Run(ctx context.Context, req *Request) *Response {
	resp, serr := p.run(ctx, req)
	if serr == nil {
		return resp
	}

	zap.L().Error("delivery failed",
		zap.String("stage", string(serr.stage)),
		zap.Int("status", serr.status),
		zap.Error(serr.err))

	if serr.alert {
		p.notifier.Failure(ctx, string(serr.stage), serr.message)
	}

	body := map[string]any{"error": serr.message}
	if serr.err != nil {
		body["details"] = eris.Cause(serr.err).Error()
	}
	return &Response{Status: serr.status, Body: body}
}

// ProcessImage runs one repository image path through the pipeline,
// skipping the webhook stages. Used by the process and backfill commands.
func (p *Pipeline) ProcessImage(ctx context.Context, imagePath string) *Response {
	resp, serr := p.processImage(ctx, StageParsed, imagePath, webhook.AddedBy(imagePath))
	if serr == nil {
		return resp
	}

	zap.L().Error("image processing failed",
		zap.String("path", imagePath),
		zap.String("stage", string(serr.stage)),
		zap.Error(serr.err))

	if serr.alert {
		p.notifier.Failure(ctx, string(serr.stage), serr.message)
	}

	body := map[string]any{"error": serr.message}
	if serr.err != nil {
		body["details"] = eris.Cause(serr.err).Error()
	}
	return &Response{Status: serr.status, Body: body}
}

func (p *Pipeline) run(ctx context.Context, req *Request) (*Response, *stageError) {
	stage := StageReceived
	zap.L().Info("delivery received",
		zap.String("event", req.Event),
		zap.Int("bytes", len(req.Body)))

	// Signature first, on the raw body, before any parsing.
	ok, reason := webhook.VerifySignature(p.cfg.GitHub.WebhookSecret, req.Body, req.Signature)
	if !ok {
		return nil, &stageError{
			stage:   stage,
			status:  http.StatusUnauthorized,
			message: "Invalid webhook signature",
			err:     eris.Errorf("pipeline: signature rejected: %s", reason),
		}
	}
	stage = StageAuthenticated

	if req.Event != "push" {
		return nil, &stageError{
			stage:   stage,
			status:  http.StatusBadRequest,
			message: "Malformed webhook payload",
			err:     eris.Errorf("pipeline: unsupported event type %q", req.Event),
		}
	}

	event, err := webhook.ParsePushEvent(req.Body, req.ContentType)
	if err != nil {
		return nil, &stageError{stage: stage, status: http.StatusBadRequest, message: "Malformed webhook payload", err: err}
	}
	imagePath, err := webhook.ResolveImagePath(event, p.cfg.GitHub.Branch, p.cfg.GitHub.PathPrefix)
	if err != nil {
		return nil, &stageError{stage: stage, status: http.StatusBadRequest, message: "No card image in push", err: err}
	}
	addedBy := webhook.AddedBy(imagePath)
	stage = StageParsed
	zap.L().Info("resolved card image",
		zap.String("path", imagePath),
		zap.String("added_by", addedBy))

	return p.processImage(ctx, stage, imagePath, addedBy)
}

// processImage runs the stages from fetch onward.
func (p *Pipeline) processImage(ctx context.Context, stage Stage, imagePath, addedBy string) (*Response, *stageError) {
	file, err := p.fetcher.FetchRaw(ctx, imagePath)
	if err != nil {
		return nil, &stageError{stage: stage, status: http.StatusInternalServerError, message: "Failed to fetch card image", err: err, alert: true}
	}
	stage = StageFetched

	raw, err := p.extractor.ExtractCard(ctx, file.Data, file.ContentType)
	if err != nil {
		// Failing to reach the model is a server-side fault; an unusable
		// response body is a bad extraction.
		status := http.StatusBadRequest
		var terr *extract.TransportError
		if errors.As(err, &terr) {
			status = http.StatusInternalServerError
		}
		return nil, &stageError{stage: stage, status: status, message: "Data extraction failed", err: err, alert: true}
	}
	stage = StageExtracted

	contact := extract.Normalize(raw.ContactData)
	stage = StageNormalized

	if err := extract.Validate(contact, p.cfg.Pipeline.AcceptPlaceholderContacts); err != nil {
		return nil, &stageError{stage: stage, status: http.StatusBadRequest, message: "Contact validation failed", err: err, alert: true}
	}
	stage = StageValidated

	result, err := p.reconciler.Reconcile(ctx, contact, raw.Insights, addedBy)
	if err != nil {
		return nil, &stageError{stage: stage, status: http.StatusInternalServerError, message: "Failed to save contact", err: err, alert: true}
	}
	stage = StageReconciled

	if result.IsNewContact {
		p.notifier.NewContact(ctx, result.Contact, raw.Insights)
	} else {
		p.notifier.RepeatContact(ctx, result.Contact, result.History)
	}
	stage = StageNotified

	stage = StageDone
	zap.L().Info("delivery complete",
		zap.String("stage", string(stage)),
		zap.String("contact_id", result.Contact.ID),
		zap.Bool("is_new", result.IsNewContact))

	return &Response{
		Status: http.StatusOK,
		Body: map[string]any{
			"success":           true,
			"contact":           result.Contact.Name,
			"company":           result.Contact.Company,
			"isNewContact":      result.IsNewContact,
			"researchCompleted": !raw.Insights.Empty(),
		},
	}, nil
}
