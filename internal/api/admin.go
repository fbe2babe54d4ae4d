package api

import (
	"net/http"
	"strconv"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// GET /api/analytics/reliability?templateId=
func (rt *Router) handleReliability(w http.ResponseWriter, r *http.Request, sess models.Session) {
	sum, err := rt.svc.Analytics.Reliability(r.Context(), sess, r.URL.Query().Get("templateId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// POST /api/audit is fire-and-forget: store failures never reach the client.
func (rt *Router) handleLogAudit(w http.ResponseWriter, r *http.Request, sess models.Session) {
	var p struct {
		Action    string `json:"action"`
		Details   string `json:"details"`
		Structure string `json:"structure"`
	}
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := rt.svc.Audit.Log(r.Context(), sess, services.AuditRequest{Action: p.Action, Details: p.Details, Structure: p.Structure}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// GET /api/audit?limit=
func (rt *Router) handleListAudit(w http.ResponseWriter, r *http.Request, sess models.Session) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := rt.svc.Audit.List(r.Context(), sess, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
