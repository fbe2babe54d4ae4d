package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// Auditor is a best-effort audit sink. Failures are logged and swallowed so
// they never block the operation being audited.
type Auditor struct {
	store AuditStore
	now   func() time.Time
}

func NewAuditor(store AuditStore) *Auditor {
	return &Auditor{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Record writes e, filling in the time when unset.
func (a *Auditor) Record(ctx context.Context, e models.AuditEntry) {
	if a == nil || a.store == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = a.now()
	}
	if err := a.store.AddAudit(ctx, e); err != nil {
		log.Printf("audit: %s by %s: %v", e.Action, e.Actor, err)
	}
}

// AuditRequest is the client-facing audit payload.
type AuditRequest struct {
	Action    string
	Details   string
	Structure string
}

// Log records a client-reported action for the calling user.
func (a *Auditor) Log(ctx context.Context, sess models.Session, req AuditRequest) error {
	if strings.TrimSpace(req.Action) == "" {
		return NewInvalidError("action required")
	}
	a.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: req.Action, Note: req.Details, Structure: req.Structure})
	return nil
}

// List returns recent audit entries; administrators only.
func (a *Auditor) List(ctx context.Context, sess models.Session, limit int) ([]models.AuditEntry, error) {
	if sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("forbidden")
	}
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	entries, err := a.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, persistErr("list audit", err)
	}
	return entries, nil
}

// Purge drops entries older than retention.
func (a *Auditor) Purge(ctx context.Context, retention time.Duration) (int, error) {
	n, err := a.store.PurgeAuditBefore(ctx, a.now().Add(-retention))
	if err != nil {
		return 0, persistErr("purge audit", err)
	}
	return n, nil
}
