package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

type CreateInviteRequest struct {
	GranteeID    string
	Structure    models.StructureKey
	TemplateCode string
}

// InviteService manages grantor to grantee invites.
type InviteService struct {
	store InviteStore
	audit *Auditor
	now   func() time.Time
	idGen func() string
}

func NewInviteService(store InviteStore, audit *Auditor) *InviteService {
	return &InviteService{
		store: store,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

// Create invites a grantee to a structure. A grantor may hold only one
// active invite per grantee and structure.
func (s *InviteService) Create(ctx context.Context, sess models.Session, req CreateInviteRequest) (*models.Invite, error) {
	if sess.Role != models.RoleGrantor && sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only grantors can invite")
	}
	granteeID := strings.TrimSpace(req.GranteeID)
	if granteeID == "" {
		return nil, NewInvalidError("granteeId required")
	}
	if err := req.Structure.Validate(); err != nil {
		return nil, NewInvalidError(err.Error())
	}
	active := true
	existing, err := s.store.ListInvites(ctx, InviteFilter{GrantorID: sess.UserID, GranteeID: granteeID, Active: &active})
	if err != nil {
		return nil, persistErr("list invites", err)
	}
	for _, inv := range existing {
		if inv.Structure == req.Structure && inv.TemplateCode == req.TemplateCode {
			return nil, NewConflictError("grantee already invited")
		}
	}
	inv := &models.Invite{
		ID:           s.idGen(),
		GrantorID:    sess.UserID,
		GranteeID:    granteeID,
		Structure:    req.Structure,
		TemplateCode: req.TemplateCode,
		DateInvited:  s.now(),
		InvitedBy:    firstNonBlank(sess.Email, sess.UserID),
		Active:       true,
	}
	if err := s.store.AddInvite(ctx, inv); err != nil {
		return nil, persistErr("add invite", err)
	}
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: "invite_create", Target: inv.ID, Note: granteeID, Structure: inv.Structure.String()})
	return inv, nil
}

// Deactivate marks an invite inactive. The inviting grantor, the invited
// grantee and administrators may do so; repeating it is harmless.
func (s *InviteService) Deactivate(ctx context.Context, sess models.Session, id string) (*models.Invite, error) {
	if id == "" {
		return nil, NewInvalidError("invite id required")
	}
	inv, err := s.store.GetInvite(ctx, id)
	if err != nil {
		return nil, persistErr("get invite", err)
	}
	if inv == nil {
		return nil, NewNotFoundError("invite not found")
	}
	if sess.Role != models.RoleAdmin && sess.UserID != inv.GrantorID && sess.UserID != inv.GranteeID {
		return nil, NewForbiddenError("forbidden")
	}
	if !inv.Active {
		return inv, nil
	}
	if _, err := s.store.SetInviteActive(ctx, id, false); err != nil {
		return nil, persistErr("deactivate invite", err)
	}
	inv.Active = false
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: "invite_deactivate", Target: id, Structure: inv.Structure.String()})
	return inv, nil
}

// List returns the invites the caller is party to; administrators see all.
func (s *InviteService) List(ctx context.Context, sess models.Session, activeOnly bool) ([]*models.Invite, error) {
	var f InviteFilter
	switch sess.Role {
	case models.RoleGrantor:
		f.GrantorID = sess.UserID
	case models.RoleGrantee:
		f.GranteeID = sess.UserID
	case models.RoleAdmin:
	default:
		return nil, NewForbiddenError("forbidden")
	}
	if activeOnly {
		active := true
		f.Active = &active
	}
	invs, err := s.store.ListInvites(ctx, f)
	if err != nil {
		return nil, persistErr("list invites", err)
	}
	return invs, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
