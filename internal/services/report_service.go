package services

import (
	"context"
	"strings"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// ResponseReport is the scored view of one response.
type ResponseReport struct {
	Record   *models.ResponseRecord `json:"record"`
	Title    string                 `json:"title"`
	Report   engine.Report          `json:"report"`
	Progress engine.Progress        `json:"progress"`
	Gaps     []string               `json:"validationGaps"`
	HighRisk []string               `json:"highRisk"`
	Labels   map[string]string      `json:"labels"`
}

type CompareRequest struct {
	TemplateID string
	GranteeIDs []string
}

type CompareQuestion struct {
	ID        string `json:"id"`
	SectionID string `json:"sectionId"`
	Text      string `json:"questionText"`
	Risky     bool   `json:"hasRiskAnswers"`
}

type CompareGrantee struct {
	GranteeID  string            `json:"granteeId"`
	ResponseID string            `json:"responseId,omitempty"`
	Status     models.Status     `json:"status,omitempty"`
	Overall    *engine.Score     `json:"overall,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	HighRisk   []string          `json:"highRisk,omitempty"`
}

// Comparison lays grantees side by side on one template.
type Comparison struct {
	TemplateID string            `json:"templateId"`
	Questions  []CompareQuestion `json:"questions"`
	Grantees   []CompareGrantee  `json:"grantees"`
}

type ReportService struct {
	responses ResponseStore
	templates TemplateProvider
	invites   InviteStore
}

func NewReportService(responses ResponseStore, templates TemplateProvider, invites InviteStore) *ReportService {
	return &ReportService{responses: responses, templates: templates, invites: invites}
}

// Report scores a response for its owner, an inviting grantor or an admin.
func (s *ReportService) Report(ctx context.Context, sess models.Session, responseID string) (*ResponseReport, error) {
	rec, err := s.responses.GetResponseByID(ctx, responseID)
	if err != nil {
		return nil, persistErr("get response", err)
	}
	if rec == nil {
		return nil, NewNotFoundError("response not found")
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
	flat := engine.Unstructure(rec.Answers)
	return &ResponseReport{
		Record:   rec,
		Title:    t.Title,
		Report:   engine.ScoreTemplate(t, flat),
		Progress: engine.ComputeProgress(t, flat),
		Gaps:     engine.ValidationGaps(t, flat),
		HighRisk: engine.HighRiskQuestions(t, flat),
		Labels:   labelsFor(t, flat),
	}, nil
}

// Compare reports each grantee's submitted answers on one template. Grantees
// without a submitted or returned record are listed with no scores.
func (s *ReportService) Compare(ctx context.Context, sess models.Session, req CompareRequest) (*Comparison, error) {
	if sess.Role != models.RoleGrantor && sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only grantors can compare grantees")
	}
	if len(req.GranteeIDs) == 0 {
		return nil, NewInvalidError("granteeIds required")
	}
	t, err := s.templates.Get(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	cmp := &Comparison{TemplateID: t.ID}
	for _, loc := range engine.AllQuestions(t) {
		cmp.Questions = append(cmp.Questions, CompareQuestion{
			ID:        loc.Question.ID,
			SectionID: loc.Section.SectionID,
			Text:      loc.Question.QuestionText,
			Risky:     len(loc.Question.RiskAnswers) > 0,
		})
	}
	seen := map[string]bool{}
	for _, gid := range req.GranteeIDs {
		gid = strings.TrimSpace(gid)
		if gid == "" || seen[gid] {
			continue
		}
		seen[gid] = true
		ok, err := canReview(ctx, s.invites, sess, gid, reviewScope{Structure: t.Key(), TemplateCode: t.TemplateCode})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewForbiddenError("grantee " + gid + " not invited")
		}
		row := CompareGrantee{GranteeID: gid}
		rec, err := s.responses.GetResponse(ctx, models.ResponseKey{UserID: gid, Structure: t.Key(), TemplateCode: t.TemplateCode, Version: t.Version})
		if err != nil {
			return nil, persistErr("get response", err)
		}
		if rec != nil && rec.Status != models.StatusSaved {
			flat := engine.Unstructure(rec.Answers)
			overall := engine.ScoreTemplate(t, flat).Overall
			row.ResponseID = rec.ID
			row.Status = rec.Status
			row.Overall = &overall
			row.Labels = labelsFor(t, flat)
			row.HighRisk = engine.HighRiskQuestions(t, flat)
		}
		cmp.Grantees = append(cmp.Grantees, row)
	}
	return cmp, nil
}

func labelsFor(t *models.Template, flat models.FlatAnswers) map[string]string {
	out := map[string]string{}
	for _, loc := range engine.AllQuestions(t) {
		out[loc.Question.ID] = engine.StatusLabel(flat[loc.Question.ID].Answer)
	}
	return out
}
