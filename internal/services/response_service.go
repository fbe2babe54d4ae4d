package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// SaveDraftRequest carries a grantee's flat answer snapshot.
type SaveDraftRequest struct {
	Structure  models.StructureKey
	TemplateID string // empty selects the latest template for Structure
	InviteID   string
	Answers    models.FlatAnswers
}

// SubmitRequest has the same shape as a draft save.
type SubmitRequest = SaveDraftRequest

// SubmitResult is returned by Submit. Gaps lists visible required questions
// left unanswered; they never block submission.
type SubmitResult struct {
	Record   *models.ResponseRecord `json:"record"`
	Report   engine.Report          `json:"report"`
	Progress engine.Progress        `json:"progress"`
	Gaps     []string               `json:"validationGaps"`
}

// StatusResult answers the submission status query.
type StatusResult struct {
	ID          string        `json:"id,omitempty"`
	Status      models.Status `json:"status,omitempty"`
	Locked      bool          `json:"locked"`
	LastUpdated *time.Time    `json:"lastUpdated,omitempty"`
}

// ResponseService hosts the grantee save/submit workflow.
type ResponseService struct {
	responses ResponseStore
	templates TemplateProvider
	invites   InviteStore
	audit     *Auditor
	now       func() time.Time
	idGen     func() string
}

func NewResponseService(responses ResponseStore, templates TemplateProvider, invites InviteStore, audit *Auditor) *ResponseService {
	return &ResponseService{
		responses: responses,
		templates: templates,
		invites:   invites,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     uuid.NewString,
	}
}

// LoadDraftOrSubmission returns the grantee's most recent record for a structure.
func (s *ResponseService) LoadDraftOrSubmission(ctx context.Context, sess models.Session, key models.StructureKey) (*models.ResponseRecord, error) {
	if sess.UserID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	if err := key.Validate(); err != nil {
		return nil, NewInvalidError(err.Error())
	}
	rec, err := s.responses.LatestResponse(ctx, sess.UserID, key)
	if err != nil {
		return nil, persistErr("load response", err)
	}
	if rec == nil {
		return nil, NewNotFoundError("no saved response")
	}
	return rec, nil
}

// Status reports the lifecycle state of the grantee's record for a structure.
func (s *ResponseService) Status(ctx context.Context, sess models.Session, key models.StructureKey) (*StatusResult, error) {
	rec, err := s.LoadDraftOrSubmission(ctx, sess, key)
	if err != nil {
		if IsNotFound(err) {
			return &StatusResult{}, nil
		}
		return nil, err
	}
	lu := rec.LastUpdated
	return &StatusResult{ID: rec.ID, Status: rec.Status, Locked: engine.IsLocked(rec.Status), LastUpdated: &lu}, nil
}

// SaveDraft upserts the grantee's draft. Locked records are rejected with an
// InvalidTransitionError and left unchanged.
func (s *ResponseService) SaveDraft(ctx context.Context, sess models.Session, req SaveDraftRequest) (*models.ResponseRecord, error) {
	rec, _, err := s.write(ctx, sess, req, engine.EventSave)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Submit transitions the record to SUBMITTED and scores it. Unanswered
// required questions are reported in Gaps only.
func (s *ResponseService) Submit(ctx context.Context, sess models.Session, req SubmitRequest) (*SubmitResult, error) {
	rec, t, err := s.write(ctx, sess, req, engine.EventSubmit)
	if err != nil {
		return nil, err
	}
	flat := engine.Unstructure(rec.Answers)
	return &SubmitResult{
		Record:   rec,
		Report:   engine.ScoreTemplate(t, flat),
		Progress: engine.ComputeProgress(t, flat),
		Gaps:     engine.ValidationGaps(t, flat),
	}, nil
}

func (s *ResponseService) write(ctx context.Context, sess models.Session, req SaveDraftRequest, ev engine.Event) (*models.ResponseRecord, *models.Template, error) {
	if sess.UserID == "" {
		return nil, nil, NewUnauthorizedError("unauthorized")
	}
	if sess.Role != models.RoleGrantee {
		return nil, nil, NewForbiddenError("only grantees can edit responses")
	}
	t, err := s.resolveTemplate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	flat, err := normalizeAnswers(t, req.Answers)
	if err != nil {
		return nil, nil, err
	}

	key := models.ResponseKey{UserID: sess.UserID, Structure: t.Key(), TemplateCode: t.TemplateCode, Version: t.Version}
	existing, err := s.responses.GetResponse(ctx, key)
	if err != nil {
		return nil, nil, persistErr("load response", err)
	}
	var from models.Status
	if existing != nil {
		from = existing.Status
	}
	next, err := engine.Transition(from, ev)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	rec := existing.Clone()
	if rec == nil {
		rec = &models.ResponseRecord{
			ID:           s.idGen(),
			UserID:       sess.UserID,
			Structure:    t.Key(),
			TemplateCode: t.TemplateCode,
			Version:      t.Version,
		}
	}
	if existing != nil {
		keepFeedback(flat, engine.Unstructure(existing.Answers))
	}
	rec.TemplateID = t.ID
	rec.Answers = engine.Structure(flat, t)
	rec.Status = next
	rec.LastUpdated = now

	var inv *models.Invite
	if rec.InviteID == "" {
		inv, err = s.findInvite(ctx, sess.UserID, t, req.InviteID)
		if err != nil {
			return nil, nil, err
		}
		if inv != nil {
			rec.InviteID = inv.ID
		}
	}

	if ev == engine.EventSubmit {
		report := engine.ScoreTemplate(t, flat)
		completeness, compliance := report.Overall.Completeness, report.Overall.Compliance
		rec.Completeness = &completeness
		rec.Compliance = &compliance
		rec.SubmittedAt = &now
	}

	if err := s.responses.SaveResponse(ctx, rec); err != nil {
		return nil, nil, persistErr("save response", err)
	}

	if ev == engine.EventSubmit && rec.InviteID != "" {
		s.deactivateInvite(ctx, rec.InviteID)
	} else if inv != nil {
		s.deactivateInvite(ctx, inv.ID)
	}

	action := "response_save"
	if ev == engine.EventSubmit {
		action = "response_submit"
	}
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: action, Target: rec.ID, Structure: rec.Structure.String()})
	return rec, t, nil
}

func (s *ResponseService) resolveTemplate(ctx context.Context, req SaveDraftRequest) (*models.Template, error) {
	if req.TemplateID != "" {
		t, err := s.templates.Get(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		if req.Structure.StructureType != "" && t.Key() != req.Structure {
			return nil, NewInvalidError("template does not match structure")
		}
		return t, nil
	}
	return s.templates.Latest(ctx, req.Structure)
}

// findInvite returns the active invite the record originates from, if any.
func (s *ResponseService) findInvite(ctx context.Context, granteeID string, t *models.Template, inviteID string) (*models.Invite, error) {
	if s.invites == nil {
		return nil, nil
	}
	if inviteID != "" {
		inv, err := s.invites.GetInvite(ctx, inviteID)
		if err != nil {
			return nil, persistErr("get invite", err)
		}
		if inv == nil || inv.GranteeID != granteeID || !inv.Active {
			return nil, nil
		}
		return inv, nil
	}
	active := true
	invs, err := s.invites.ListInvites(ctx, InviteFilter{GranteeID: granteeID, Active: &active})
	if err != nil {
		return nil, persistErr("list invites", err)
	}
	for _, inv := range invs {
		if inv.Structure != t.Key() {
			continue
		}
		if inv.TemplateCode != "" && inv.TemplateCode != t.TemplateCode {
			continue
		}
		return inv, nil
	}
	return nil, nil
}

func (s *ResponseService) deactivateInvite(ctx context.Context, id string) {
	if s.invites == nil {
		return
	}
	if _, err := s.invites.SetInviteActive(ctx, id, false); err != nil {
		log.Printf("response service: deactivate invite %s: %v", id, err)
	}
}

// normalizeAnswers validates answer values against t and enforces the
// answer field invariants. Client supplied funder feedback is discarded.
func normalizeAnswers(t *models.Template, in models.FlatAnswers) (models.FlatAnswers, error) {
	idx := engine.QuestionIndex(t)
	out := make(models.FlatAnswers, len(in))
	for qid, a := range in {
		loc, ok := idx[qid]
		if !ok {
			return nil, NewInvalidError("unknown question " + qid)
		}
		if a.Answer != "" && !a.Answer.Valid() {
			return nil, NewInvalidError("invalid answer for " + qid)
		}
		a = a.WithValue(a.Answer)
		if !loc.Question.UploadEvidence {
			a.Evidence = ""
		}
		a.FunderFeedback = ""
		out[qid] = a
	}
	return out, nil
}

func keepFeedback(flat, prev models.FlatAnswers) {
	for qid, p := range prev {
		if p.FunderFeedback == "" {
			continue
		}
		if a, ok := flat[qid]; ok {
			a.FunderFeedback = p.FunderFeedback
			flat[qid] = a
		}
	}
}

// IsNotFound reports whether err is a not_found ServiceError.
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == ErrorNotFound
}
