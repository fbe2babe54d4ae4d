package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

const maxJSONBody = 2 << 20

type Router struct {
	svc *Services
}

func NewRouter(svc *Services) *Router {
	return &Router{svc: svc}
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess models.Session)

func (rt *Router) Register(mux *http.ServeMux) {
	routes := map[string]sessionHandler{
		"GET /api/templates":         rt.handleLatestTemplate,
		"GET /api/templates/all":     rt.handleListTemplates,
		"GET /api/templates/{id}":    rt.handleGetTemplate,
		"POST /api/templates":        rt.handlePublishTemplate,
		"GET /api/responses":         rt.handleLoadResponse,
		"GET /api/responses/status":  rt.handleResponseStatus,
		"POST /api/responses/draft":  rt.handleSaveDraft,
		"POST /api/responses/submit": rt.handleSubmit,

		"GET /api/responses/submissions":   rt.handleSubmissions,
		"PUT /api/responses/{id}/return":   rt.handleReturn,
		"GET /api/responses/{id}/report":   rt.handleReport,
		"POST /api/sessions":               rt.handleOpenSession,
		"GET /api/sessions/{id}":           rt.handleViewSession,
		"POST /api/sessions/{id}/edits":    rt.handleEditSession,
		"DELETE /api/sessions/{id}":        rt.handleCloseSession,
		"POST /api/evidence":               rt.handleUploadEvidence,
		"GET /api/evidence/{id}":           rt.handleDownloadEvidence,
		"POST /api/invites":                rt.handleCreateInvite,
		"GET /api/invites":                 rt.handleListInvites,
		"PUT /api/invites/{id}/deactivate": rt.handleDeactivateInvite,
		"POST /api/compare":                rt.handleCompare,
		"GET /api/analytics/reliability":   rt.handleReliability,
		"POST /api/audit":                  rt.handleLogAudit,
		"GET /api/audit":                   rt.handleListAudit,
	}
	for pattern, h := range routes {
		mux.Handle(pattern, authed(h))
	}
}

// authed rejects requests without a session before h runs.
func authed(h sessionHandler) http.Handler {
	return middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.SessionFromContext(r.Context())
		h(w, r, sess)
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

var statusByCode = map[services.ErrorCode]int{
	services.ErrorInvalid:         http.StatusBadRequest,
	services.ErrorForbidden:       http.StatusForbidden,
	services.ErrorNotFound:        http.StatusNotFound,
	services.ErrorConflict:        http.StatusConflict,
	services.ErrorUnauthorized:    http.StatusUnauthorized,
	services.ErrorTooManyRequests: http.StatusTooManyRequests,
	services.ErrorPayloadTooLarge: http.StatusRequestEntityTooLarge,
}

// writeError maps core and service errors to HTTP responses. An invalid
// lifecycle transition is a warning for the client, not a failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		malformed  *engine.MalformedTemplateError
		transition *engine.InvalidTransitionError
		persist    *services.PersistenceError
	)
	switch {
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": malformed.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, map[string]string{"warning": transitionWarning(transition)})
	case errors.As(err, &persist):
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable, try again"})
	default:
		if se, ok := services.AsServiceError(err); ok {
			status, known := statusByCode[se.Code]
			if !known {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
			return
		}
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func transitionWarning(e *engine.InvalidTransitionError) string {
	if engine.IsLocked(e.From) {
		return "This response has been submitted and is locked. It can be edited again once it is returned for fixes."
	}
	return e.Error()
}

type structurePayload struct {
	StructureType models.StructureType `json:"structureType"`
	TieredLevel   models.TieredLevel   `json:"tieredLevel,omitempty"`
}

func (p structurePayload) key() models.StructureKey {
	return models.StructureKey{StructureType: p.StructureType, TieredLevel: p.TieredLevel}
}

func structureFromQuery(r *http.Request) models.StructureKey {
	q := r.URL.Query()
	return models.StructureKey{
		StructureType: models.StructureType(strings.TrimSpace(q.Get("structureType"))),
		TieredLevel:   models.TieredLevel(strings.TrimSpace(q.Get("tieredLevel"))),
	}
}
