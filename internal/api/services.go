package api

import (
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// Services bundles the orchestration layer the router dispatches to.
type Services struct {
	Audit     *services.Auditor
	Templates *services.TemplateService
	Responses *services.ResponseService
	Review    *services.ReviewService
	Invites   *services.InviteService
	Reports   *services.ReportService
	Analytics *services.AnalyticsService
	Evidence  *services.EvidenceService
	Sessions  *services.SessionManager
}

type Options struct {
	Evidence services.EvidenceOptions
	Sessions services.SessionOptions
}

// NewServices wires every service over one store. cache may be nil.
func NewServices(store Store, cache services.TemplateCache, blobs services.BlobStore, opts Options) *Services {
	audit := services.NewAuditor(store)
	templates := services.NewTemplateService(store, cache, audit)
	responses := services.NewResponseService(store, templates, store, audit)
	return &Services{
		Audit:     audit,
		Templates: templates,
		Responses: responses,
		Review:    services.NewReviewService(store, templates, store, audit),
		Invites:   services.NewInviteService(store, audit),
		Reports:   services.NewReportService(store, templates, store),
		Analytics: services.NewAnalyticsService(store, templates),
		Evidence:  services.NewEvidenceService(store, blobs, store, audit, opts.Evidence),
		Sessions:  services.NewSessionManager(responses, opts.Sessions),
	}
}
