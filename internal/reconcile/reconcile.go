package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cardscan/internal/config"
	"github.com/sells-group/cardscan/internal/extract"
	"github.com/sells-group/cardscan/internal/model"
	"github.com/sells-group/cardscan/internal/store"
)

const (
	// Source recorded on contacts and touchpoints created by card scans.
	Source = "business_card"

	// historyLimit caps how many prior touchpoints are loaded for a
	// repeat contact.
	historyLimit = 10
)

// Result describes what reconciliation did with a scanned contact.
type Result struct {
	Contact      *model.Contact
	IsNewContact bool
	History      []model.Touchpoint
}

// Reconciler folds an extracted contact into the database: new primary
// emails become contact rows, known ones get a touchpoint appended.
type Reconciler struct {
	store store.Store
	cfg   *config.Config
}

func New(st store.Store, cfg *config.Config) *Reconciler {
	return &Reconciler{store: st, cfg: cfg}
}

// Reconcile looks the contact up by primary email and either creates it
// with its first touchpoint or appends a touchpoint to the existing row.
// addedBy attributes the touchpoint to whoever uploaded the card; empty
// means unattributed.
func (r *Reconciler) Reconcile(ctx context.Context, contact model.ExtractedContact, insights *model.ResearchInsights, addedBy string) (*Result, error) {
	admin, err := r.store.GetUserByName(ctx, r.cfg.Pipeline.AdminUser)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: look up admin user")
	}
	if admin == nil {
		return nil, eris.Errorf("reconcile: admin user %q not found, run migrate first", r.cfg.Pipeline.AdminUser)
	}

	existing, err := r.store.GetContactByEmail(ctx, contact.PrimaryEmail)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: look up contact")
	}
	if existing != nil {
		return r.repeatContact(ctx, existing, addedBy)
	}

	row := &model.Contact{
		Name:           contact.Name,
		Company:        contact.Company,
		Industry:       contact.Industry,
		PrimaryEmail:   contact.PrimaryEmail,
		SecondaryEmail: contact.SecondaryEmail,
		PrimaryPhone:   contact.PrimaryPhone,
		SecondaryPhone: contact.SecondaryPhone,
		Website:        extract.CleanWebsite(contact.Website),
		Address:        contact.Address,
		Social:         contact.Social,
		Source:         Source,
		Status:         model.ContactStatusNew,
		UserID:         admin.ID,
		Notes:          seedNotes(insights),
	}
	tp := &model.Touchpoint{
		Note:    scanNote(),
		Source:  Source,
		AddedBy: addedBy,
	}

	inserted, err := r.store.CreateContactWithTouchpoint(ctx, row, tp)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: create contact")
	}
	if !inserted {
		// Lost a race with a concurrent scan of the same card. Re-read the
		// winner's row and record this scan as a repeat touchpoint.
		zap.L().Info("contact insert lost race, treating as repeat",
			zap.String("primary_email", contact.PrimaryEmail))
		existing, err = r.store.GetContactByEmail(ctx, contact.PrimaryEmail)
		if err != nil {
			return nil, eris.Wrap(err, "reconcile: re-read contact after conflict")
		}
		if existing == nil {
			return nil, eris.Errorf("reconcile: contact %s vanished after insert conflict", contact.PrimaryEmail)
		}
		return r.repeatContact(ctx, existing, addedBy)
	}

	zap.L().Info("created contact",
		zap.String("contact_id", row.ID),
		zap.String("primary_email", row.PrimaryEmail),
		zap.String("added_by", addedBy))

	return &Result{Contact: row, IsNewContact: true}, nil
}

func (r *Reconciler) repeatContact(ctx context.Context, existing *model.Contact, addedBy string) (*Result, error) {
	history, err := r.store.RecentTouchpoints(ctx, existing.ID, historyLimit)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: load touchpoint history")
	}

	tp := &model.Touchpoint{
		ContactID: existing.ID,
		Note:      scanNote(),
		Source:    Source,
		AddedBy:   addedBy,
	}
	if err := r.store.AppendTouchpoint(ctx, tp); err != nil {
		return nil, eris.Wrap(err, "reconcile: append touchpoint")
	}

	zap.L().Info("appended touchpoint",
		zap.String("contact_id", existing.ID),
		zap.Int("history", len(history)),
		zap.String("added_by", addedBy))

	return &Result{Contact: existing, IsNewContact: false, History: history}, nil
}

// seedNotes prefers the research opportunities text for the initial notes
// field, falling back to a dated scan marker.
func seedNotes(insights *model.ResearchInsights) string {
	if text := insights.OpportunitiesText(); text != "" {
		return text
	}
	return scanNote()
}

func scanNote() string {
	return fmt.Sprintf("Added via business card scan on %s", time.Now().UTC().Format("2006-01-02"))
}
