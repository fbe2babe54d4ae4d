package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// ReturnRequest is a grantor's return-for-fixes action.
type ReturnRequest struct {
	ResponseID string
	GranteeID  string // optional cross-check against the record owner
	Feedback   map[string]string
}

// ReturnResult reports the outcome. AlreadyReturned is not an error.
type ReturnResult struct {
	Record          *models.ResponseRecord `json:"record"`
	AlreadyReturned bool                   `json:"alreadyReturned"`
	Updated         int                    `json:"updated"`
}

// ReviewService covers grantor actions on submitted responses.
type ReviewService struct {
	responses ResponseStore
	templates TemplateProvider
	invites   InviteStore
	audit     *Auditor
	now       func() time.Time
}

func NewReviewService(responses ResponseStore, templates TemplateProvider, invites InviteStore, audit *Auditor) *ReviewService {
	return &ReviewService{
		responses: responses,
		templates: templates,
		invites:   invites,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ReturnForFixes attaches funder feedback and reopens a submitted record.
func (s *ReviewService) ReturnForFixes(ctx context.Context, sess models.Session, req ReturnRequest) (*ReturnResult, error) {
	if sess.Role != models.RoleGrantor && sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only grantors can return submissions")
	}
	if req.ResponseID == "" {
		return nil, NewInvalidError("response id required")
	}
	rec, err := s.responses.GetResponseByID(ctx, req.ResponseID)
	if err != nil {
		return nil, persistErr("get response", err)
	}
	if rec == nil {
		return nil, NewNotFoundError("response not found")
	}
	if req.GranteeID != "" && req.GranteeID != rec.UserID {
		return nil, NewInvalidError("grantee does not own response")
	}
	ok, err := canReview(ctx, s.invites, sess, rec.UserID, scopeOf(rec))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewForbiddenError("forbidden")
	}
	t, err := templateForRecord(ctx, s.templates, rec)
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	out, err := engine.ApplyReturnForFixes(next, t, req.Feedback, sess.UserID, s.now())
	if err != nil {
		if errors.Is(err, engine.ErrUnknownQuestion) {
			return nil, NewInvalidError(err.Error())
		}
		return nil, err
	}
	if out.AlreadyReturned {
		return &ReturnResult{Record: rec, AlreadyReturned: true}, nil
	}
	if err := s.responses.SaveResponse(ctx, next); err != nil {
		return nil, persistErr("save response", err)
	}
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: "response_return", Target: next.ID, Structure: next.Structure.String()})
	return &ReturnResult{Record: next, Updated: out.Updated}, nil
}

// Submissions lists the records visible to a reviewer, newest first.
// Grantors see records in the slots their invites cover; drafts are never listed.
func (s *ReviewService) Submissions(ctx context.Context, sess models.Session) ([]*models.ResponseRecord, error) {
	if sess.Role != models.RoleGrantor && sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("forbidden")
	}
	filter := InviteFilter{GrantorID: sess.UserID}
	if sess.Role == models.RoleAdmin {
		filter = InviteFilter{}
	}
	invs, err := s.invites.ListInvites(ctx, filter)
	if err != nil {
		return nil, persistErr("list invites", err)
	}
	byGrantee := map[string][]*models.Invite{}
	var order []string
	for _, inv := range invs {
		if _, ok := byGrantee[inv.GranteeID]; !ok {
			order = append(order, inv.GranteeID)
		}
		byGrantee[inv.GranteeID] = append(byGrantee[inv.GranteeID], inv)
	}
	var out []*models.ResponseRecord
	for _, gid := range order {
		recs, err := s.responses.ListResponsesByUser(ctx, gid)
		if err != nil {
			return nil, persistErr("list responses", err)
		}
		for _, r := range recs {
			if r.Status == models.StatusSaved {
				continue
			}
			if sess.Role == models.RoleAdmin || anyCovers(byGrantee[gid], scopeOf(r)) {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

func anyCovers(invs []*models.Invite, scope reviewScope) bool {
	for _, inv := range invs {
		if scope.covers(inv) {
			return true
		}
	}
	return false
}

func templateForRecord(ctx context.Context, templates TemplateProvider, rec *models.ResponseRecord) (*models.Template, error) {
	if rec.TemplateID == "" {
		return nil, NewNotFoundError("response has no template")
	}
	return templates.Get(ctx, rec.TemplateID)
}
