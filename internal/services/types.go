package services

import (
	"context"
	"io"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// Store lookups return (nil, nil) when the entity does not exist.

// TemplateStore persists published templates.
type TemplateStore interface {
	InsertTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	GetTemplateByCode(ctx context.Context, code, version string) (*models.Template, error)
	LatestTemplate(ctx context.Context, key models.StructureKey) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]*models.Template, error)
}

// TemplateCache holds parsed templates; versions are immutable so entries never go stale.
type TemplateCache interface {
	Get(ctx context.Context, id string) (*models.Template, bool)
	Set(ctx context.Context, t *models.Template)
}

// ResponseStore persists response records keyed by models.ResponseKey.
type ResponseStore interface {
	GetResponse(ctx context.Context, key models.ResponseKey) (*models.ResponseRecord, error)
	GetResponseByID(ctx context.Context, id string) (*models.ResponseRecord, error)
	LatestResponse(ctx context.Context, userID string, key models.StructureKey) (*models.ResponseRecord, error)
	SaveResponse(ctx context.Context, rec *models.ResponseRecord) error
	ListResponsesByTemplate(ctx context.Context, code, version string) ([]*models.ResponseRecord, error)
	ListResponsesByUser(ctx context.Context, userID string) ([]*models.ResponseRecord, error)
}

// InviteFilter narrows ListInvites; empty fields match everything.
type InviteFilter struct {
	GrantorID string
	GranteeID string
	Active    *bool
}

type InviteStore interface {
	AddInvite(ctx context.Context, inv *models.Invite) error
	GetInvite(ctx context.Context, id string) (*models.Invite, error)
	SetInviteActive(ctx context.Context, id string, active bool) (bool, error)
	ListInvites(ctx context.Context, f InviteFilter) ([]*models.Invite, error)
}

type EvidenceStore interface {
	AddEvidence(ctx context.Context, ev *models.Evidence) error
	GetEvidence(ctx context.Context, id string) (*models.Evidence, error)
	FindEvidenceByDigest(ctx context.Context, userID, digest string) (*models.Evidence, error)
}

// BlobStore keeps evidence file contents.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type AuditStore interface {
	AddAudit(ctx context.Context, e models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
	PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// TemplateProvider resolves the template a response is written against.
type TemplateProvider interface {
	Get(ctx context.Context, id string) (*models.Template, error)
	Latest(ctx context.Context, key models.StructureKey) (*models.Template, error)
}
