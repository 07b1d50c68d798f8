package services

import (
	"context"
	"strings"
	"time"

	"govportal/internal/auth"
	"govportal/internal/models"
	"govportal/internal/store"
	"govportal/internal/utils"

	"go.uber.org/zap"
)

type ComplaintInput struct {
	Type        string `json:"complaintType"`
	Area        string `json:"area"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

// Notifier tells a complainant their complaint changed status.
type Notifier interface {
	ComplaintReviewed(c *models.Complaint)
}

type ComplaintRegister struct {
	stores   *store.Selector
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewComplaintRegister(stores *store.Selector, notifier Notifier, log *zap.Logger) *ComplaintRegister {
	return &ComplaintRegister{stores: stores, notifier: notifier, log: log, now: time.Now}
}

func (r *ComplaintRegister) File(ctx context.Context, caller *auth.Identity, in ComplaintInput) (*models.Complaint, error) {
	c := &models.Complaint{
		RequesterID: caller.ID,
		Type:        utils.PlainText(in.Type),
		Area:        utils.PlainText(in.Area),
		Description: utils.PlainText(in.Description),
		Contact:     utils.PlainText(in.Contact),
		Name:        caller.Name,
		Email:       caller.Email,
		Status:      models.StatusPending,
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"complaintType", c.Type},
		{"area", c.Area},
		{"description", c.Description},
		{"contact", c.Contact},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("all fields are required (missing: %s)", strings.Join(missing, ", "))
	}

	primary := r.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}
	if err := primary.CreateComplaint(ctx, c); err != nil {
		return nil, unavailable(r.log, "create complaint", err)
	}
	r.log.Info("complaint filed", zap.String("complaint_id", c.ID), zap.String("type", c.Type))
	return c, nil
}

// List returns complaints visible to caller, newest first. Admins see all.
func (r *ComplaintRegister) List(ctx context.Context, caller *auth.Identity) ([]models.Complaint, store.Source, error) {
	scope := caller.Scope()
	s, src := r.stores.Select(ctx)
	list, err := s.ListComplaints(ctx, scope)
	if src == store.SourceLive && (err != nil || len(list) == 0) {
		if err != nil {
			r.log.Warn("live complaint list failed, using fallback dataset", zap.Error(err))
		}
		list, err = r.stores.Fallback().ListComplaints(ctx, scope)
		src = store.SourceFallback
	}
	if err != nil {
		return nil, "", unavailable(r.log, "list complaints", err)
	}
	return list, src, nil
}

// Review sets an admin decision. Terminal statuses may be reviewed again.
func (r *ComplaintRegister) Review(ctx context.Context, admin *auth.Identity, id string, status models.ComplaintStatus, notes string) (*models.Complaint, error) {
	if !status.Valid() {
		return nil, invalid("invalid status")
	}
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}

	now := r.now()
	review := models.ComplaintReview{
		Status:     status,
		AdminNotes: strings.TrimSpace(notes),
		ResolvedBy: admin.ID,
		UpdatedAt:  now,
	}
	if status == models.StatusResolved {
		review.ResolvedAt = &now
	}
	if err := primary.ReviewComplaint(ctx, id, review); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, unavailable(r.log, "review complaint", err)
	}

	c, err := primary.FindComplaint(ctx, id)
	if err != nil {
		return nil, unavailable(r.log, "find complaint", err)
	}
	if r.notifier != nil && c.Email != "" {
		r.notifier.ComplaintReviewed(c)
	}
	r.log.Info("complaint reviewed", zap.String("complaint_id", id), zap.String("status", string(status)))
	return c, nil
}

// Delete removes a complaint. Admins may delete any; others only their own.
func (r *ComplaintRegister) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return ErrStoreUnavailable
	}
	c, err := primary.FindComplaint(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return unavailable(r.log, "find complaint", err)
	}
	if !caller.Can(auth.CapWriteAll) && c.RequesterID != caller.ID {
		return auth.ErrForbidden
	}
	if err := primary.DeleteComplaint(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return unavailable(r.log, "delete complaint", err)
	}
	return nil
}
