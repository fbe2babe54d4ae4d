package api

import (
	"net/http"
	"strconv"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// POST /api/sessions
func (rt *Router) handleOpenSession(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		structurePayload
		TemplateID string `json:"templateId,omitempty"`
		InviteID   string `json:"inviteId,omitempty"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	view, err := rt.svc.Sessions.Open(r.Context(), sess, services.OpenSessionRequest{
		Structure:  p.key(),
		TemplateID: p.TemplateID,
		InviteID:   p.InviteID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GET /api/sessions/{id}
func (rt *Router) handleViewSession(w http.ResponseWriter, r *http.Request, sess models.Session) {
	view, err := rt.svc.Sessions.View(sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /api/sessions/{id}/edits
// { edits: { questionId: {answer?, justification?, evidence?} } }
func (rt *Router) handleEditSession(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		Edits map[string]services.AnswerEdit `json:"edits"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	if len(p.Edits) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "edits required"})
		return
	}
	view, err := rt.svc.Sessions.Edit(r.Context(), sess, r.PathValue("id"), p.Edits)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DELETE /api/sessions/{id}?flush=false drops a pending autosave; the
// default flushes it.
func (rt *Router) handleCloseSession(w http.ResponseWriter, r *http.Request, sess models.Session) {
	flush := true
	if v := r.URL.Query().Get("flush"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "flush must be a boolean"})
			return
		}
		flush = b
	}
	res, err := rt.svc.Sessions.Close(sess, r.PathValue("id"), flush)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
