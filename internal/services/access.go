package services

import (
	"context"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// reviewScope is the assessment slot a grantor asks to read. The zero scope
// matches any invite to the grantee.
type reviewScope struct {
	Structure    models.StructureKey
	TemplateCode string
}

func scopeOf(rec *models.ResponseRecord) reviewScope {
	return reviewScope{Structure: rec.Structure, TemplateCode: rec.TemplateCode}
}

// covers reports whether inv grants access to the scope. An invite without a
// template code covers every template of its structure.
func (sc reviewScope) covers(inv *models.Invite) bool {
	if sc.Structure == (models.StructureKey{}) {
		return true
	}
	if inv.Structure != sc.Structure {
		return false
	}
	return inv.TemplateCode == "" || inv.TemplateCode == sc.TemplateCode
}

// canReview reports whether sess may read or review granteeID's responses
// within scope. Grantors need an invite to the grantee covering the scope,
// active or not.
func canReview(ctx context.Context, invites InviteStore, sess models.Session, granteeID string, scope reviewScope) (bool, error) {
	switch sess.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleGrantee:
		return sess.UserID == granteeID, nil
	case models.RoleGrantor:
		if invites == nil {
			return false, nil
		}
		invs, err := invites.ListInvites(ctx, InviteFilter{GrantorID: sess.UserID, GranteeID: granteeID})
		if err != nil {
			return false, persistErr("list invites", err)
		}
		return anyCovers(invs, scope), nil
	}
	return false, nil
}
