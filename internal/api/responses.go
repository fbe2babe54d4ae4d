package api

import (
	"net/http"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/utils"
)

type writePayload struct {
	structurePayload
	TemplateID string             `json:"templateId,omitempty"`
	InviteID   string             `json:"inviteId,omitempty"`
	Answers    models.FlatAnswers `json:"answers"`
}

func (p writePayload) request() services.SaveDraftRequest {
	return services.SaveDraftRequest{Structure: p.key(), TemplateID: p.TemplateID, InviteID: p.InviteID, Answers: p.Answers}
}

// GET /api/responses?structureType=&tieredLevel=
func (rt *Router) handleLoadResponse(w http.ResponseWriter, r *http.Request, sess models.Session) {
	rec, err := rt.svc.Responses.LoadDraftOrSubmission(r.Context(), sess, structureFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/responses/status?structureType=&tieredLevel=
func (rt *Router) handleResponseStatus(w http.ResponseWriter, r *http.Request, sess models.Session) {
	st, err := rt.svc.Responses.Status(r.Context(), sess, structureFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /api/responses/draft
func (rt *Router) handleSaveDraft(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p writePayload
	if !decodeJSON(w, r, &p) {
		return
	}
	rec, err := rt.svc.Responses.SaveDraft(r.Context(), sess, p.request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/responses/submit
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p writePayload
	if !decodeJSON(w, r, &p) {
		return
	}
	res, err := rt.svc.Responses.Submit(r.Context(), sess, p.request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Gaps == nil {
		res.Gaps = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/responses/submissions lists records from invited grantees.
func (rt *Router) handleSubmissions(w http.ResponseWriter, r *http.Request, sess models.Session) {
	recs, err := rt.svc.Review.Submissions(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*models.ResponseRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// PUT /api/responses/{id}/return
func (rt *Router) handleReturn(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		GranteeID string            `json:"granteeId"`
		Feedback  map[string]string `json:"feedback"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	res, err := rt.svc.Review.ReturnForFixes(r.Context(), sess, services.ReturnRequest{
		ResponseID: r.PathValue("id"),
		GranteeID:  p.GranteeID,
		Feedback:   p.Feedback,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type localizedReport struct {
	*services.ResponseReport
	Locale      string            `json:"locale"`
	StatusText  string            `json:"statusText"`
	LabelText   map[string]string `json:"labelText"`
	CountLabels map[string]string `json:"countLabels"`
}

// GET /api/responses/{id}/report?lang=
func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request, sess models.Session) {
	rep, err := rt.svc.Reports.Report(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	out := localizedReport{
		ResponseReport: rep,
		Locale:         locale,
		StatusText:     utils.T(locale, "status."+string(rep.Record.Status)),
		LabelText:      make(map[string]string, len(rep.Labels)),
		CountLabels:    map[string]string{},
	}
	for qid, label := range rep.Labels {
		out.LabelText[qid] = utils.Label(locale, label)
	}
	for label := range rep.Report.Overall.Counts {
		out.CountLabels[label] = utils.Label(locale, label)
	}
	writeJSON(w, http.StatusOK, out)
}
