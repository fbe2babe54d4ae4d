package api

import (
	"context"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// Store is everything the services need from persistence. Both the
// in-memory store and db.SQLiteStore satisfy it.
type Store interface {
	services.TemplateStore
	services.ResponseStore
	services.InviteStore
	services.EvidenceStore
	services.AuditStore
	Ping(ctx context.Context) error
}

var _ Store = (*memoryStore)(nil)
