package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/richtext"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// GET /api/templates?structureType=&tieredLevel=
func (rt *Router) handleLatestTemplate(w http.ResponseWriter, r *http.Request, _ models.Session) {
	t, err := rt.svc.Templates.Latest(r.Context(), structureFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.writeTemplate(w, r, t)
}

// GET /api/templates/{id}?render=html
func (rt *Router) handleGetTemplate(w http.ResponseWriter, r *http.Request, _ models.Session) {
	t, err := rt.svc.Templates.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.writeTemplate(w, r, t)
}

func (rt *Router) writeTemplate(w http.ResponseWriter, r *http.Request, t *models.Template) {
	if r.URL.Query().Get("render") == "html" {
		rendered, err := richtext.RenderTemplate(t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		t = rendered
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /api/templates/all
func (rt *Router) handleListTemplates(w http.ResponseWriter, r *http.Request, _ models.Session) {
	ts, err := rt.svc.Templates.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ts == nil {
		ts = []*models.Template{}
	}
	writeJSON(w, http.StatusOK, ts)
}

// POST /api/templates accepts the JSON envelope or its YAML form.
func (rt *Router) handlePublishTemplate(w http.ResponseWriter, r *http.Request, sess models.Session) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "template too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format := services.DetectFormat("", raw)
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = services.FormatYAML
	}
	t, err := rt.svc.Templates.Publish(r.Context(), sess, raw, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
