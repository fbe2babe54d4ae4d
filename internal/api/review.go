package api

import (
	"net/http"
	"strconv"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/utils"
)

// POST /api/invites
func (rt *Router) handleCreateInvite(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		structurePayload
		GranteeID    string `json:"granteeId"`
		TemplateCode string `json:"templateCode,omitempty"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	inv, err := rt.svc.Invites.Create(r.Context(), sess, services.CreateInviteRequest{
		GranteeID:    p.GranteeID,
		Structure:    p.key(),
		TemplateCode: p.TemplateCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// GET /api/invites?active=true
func (rt *Router) handleListInvites(w http.ResponseWriter, r *http.Request, sess models.Session) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	invs, err := rt.svc.Invites.List(r.Context(), sess, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if invs == nil {
		invs = []*models.Invite{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// PUT /api/invites/{id}/deactivate
func (rt *Router) handleDeactivateInvite(w http.ResponseWriter, r *http.Request, sess models.Session) {
	inv, err := rt.svc.Invites.Deactivate(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// POST /api/compare { templateId, granteeIds }
func (rt *Router) handleCompare(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		TemplateID string   `json:"templateId"`
		GranteeIDs []string `json:"granteeIds"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	cmp, err := rt.svc.Reports.Compare(r.Context(), sess, services.CompareRequest{TemplateID: p.TemplateID, GranteeIDs: p.GranteeIDs})
	if err != nil {
		writeError(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	for i := range cmp.Grantees {
		for qid, label := range cmp.Grantees[i].Labels {
			cmp.Grantees[i].Labels[qid] = utils.Label(locale, label)
		}
	}
	writeJSON(w, http.StatusOK, cmp)
}
