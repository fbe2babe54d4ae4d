package services

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// TemplateFormat selects the document syntax accepted by Publish.
type TemplateFormat string

const (
	FormatJSON TemplateFormat = "json"
	FormatYAML TemplateFormat = "yaml"
)

type TemplateService struct {
	store TemplateStore
	cache TemplateCache
	audit *Auditor
	now   func() time.Time
	idGen func() string
}

func NewTemplateService(store TemplateStore, cache TemplateCache, audit *Auditor) *TemplateService {
	return &TemplateService{
		store: store,
		cache: cache,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

// Publish validates and stores a new template version. Published versions
// are immutable; republishing a code/version pair is a conflict.
func (s *TemplateService) Publish(ctx context.Context, sess models.Session, raw []byte, format TemplateFormat) (*models.Template, error) {
	if sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("only administrators can publish templates")
	}
	var (
		t   *models.Template
		err error
	)
	switch format {
	case FormatYAML:
		t, err = engine.ParseTemplateYAML(raw)
	case FormatJSON, "":
		t, err = engine.ParseTemplate(raw)
	default:
		return nil, NewInvalidError("unsupported template format")
	}
	if err != nil {
		return nil, err
	}
	if t.TemplateCode == "" {
		return nil, NewInvalidError("templateCode required")
	}
	if t.Version == "" {
		return nil, NewInvalidError("version required")
	}
	if err := t.Key().Validate(); err != nil {
		return nil, NewInvalidError(err.Error())
	}
	existing, err := s.store.GetTemplateByCode(ctx, t.TemplateCode, t.Version)
	if err != nil {
		return nil, persistErr("lookup template", err)
	}
	if existing != nil {
		return nil, NewConflictError("template version already published")
	}
	if t.ID == "" {
		t.ID = s.idGen()
	}
	t.CreatedAt = s.now()
	if err := s.store.InsertTemplate(ctx, t); err != nil {
		return nil, persistErr("insert template", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, t)
	}
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: "template_publish", Target: t.ID, Note: t.TemplateCode + "@" + t.Version, Structure: t.Key().String()})
	return t, nil
}

// Get returns a template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidError("template id required")
	}
	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, id); ok {
			return t, nil
		}
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, persistErr("get template", err)
	}
	if t == nil {
		return nil, NewNotFoundError("template not found")
	}
	if s.cache != nil {
		s.cache.Set(ctx, t)
	}
	return t, nil
}

// Latest returns the newest template published for a structure.
func (s *TemplateService) Latest(ctx context.Context, key models.StructureKey) (*models.Template, error) {
	if err := key.Validate(); err != nil {
		return nil, NewInvalidError(err.Error())
	}
	t, err := s.store.LatestTemplate(ctx, key)
	if err != nil {
		return nil, persistErr("latest template", err)
	}
	if t == nil {
		return nil, NewNotFoundError("no template for " + key.String())
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context) ([]*models.Template, error) {
	ts, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, persistErr("list templates", err)
	}
	return ts, nil
}

// DetectFormat guesses the syntax of a template document from its name or content.
func DetectFormat(name string, raw []byte) TemplateFormat {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	if strings.HasSuffix(lower, ".json") {
		return FormatJSON
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

var _ TemplateProvider = (*TemplateService)(nil)
