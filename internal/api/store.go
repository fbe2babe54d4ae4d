package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

var errDuplicateTemplate = errors.New("template code and version already exist")

type storedTemplate struct {
	t   *models.Template
	seq int
}

// memoryStore keeps everything in process; used for dev servers and tests.
type memoryStore struct {
	mu        sync.RWMutex
	seq       int
	templates map[string]*storedTemplate
	responses map[models.ResponseKey]*models.ResponseRecord
	invites   map[string]*models.Invite
	evidence  map[string]*models.Evidence
	audit     []models.AuditEntry
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		templates: map[string]*storedTemplate{},
		responses: map[models.ResponseKey]*models.ResponseRecord{},
		invites:   map[string]*models.Invite{},
		evidence:  map[string]*models.Evidence{},
	}
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) InsertTemplate(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.templates {
		if st.t.ID == t.ID || (st.t.TemplateCode == t.TemplateCode && st.t.Version == t.Version) {
			return errDuplicateTemplate
		}
	}
	s.seq++
	cp := *t
	s.templates[t.ID] = &storedTemplate{t: &cp, seq: s.seq}
	return nil
}

func (s *memoryStore) GetTemplate(_ context.Context, id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.templates[id]; ok {
		return st.t, nil
	}
	return nil, nil
}

func (s *memoryStore) GetTemplateByCode(_ context.Context, code, version string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.templates {
		if st.t.TemplateCode == code && st.t.Version == version {
			return st.t, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) LatestTemplate(_ context.Context, key models.StructureKey) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *storedTemplate
	for _, st := range s.templates {
		if st.t.Key() != key {
			continue
		}
		if best == nil || st.t.CreatedAt.After(best.t.CreatedAt) ||
			(st.t.CreatedAt.Equal(best.t.CreatedAt) && st.seq > best.seq) {
			best = st
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.t, nil
}

func (s *memoryStore) ListTemplates(context.Context) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, st := range s.templates {
		out = append(out, st.t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StructureType != b.StructureType {
			return a.StructureType < b.StructureType
		}
		if a.TieredLevel != b.TieredLevel {
			return a.TieredLevel < b.TieredLevel
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) GetResponse(_ context.Context, key models.ResponseKey) (*models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responses[key].Clone(), nil
}

func (s *memoryStore) GetResponseByID(_ context.Context, id string) (*models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.responses {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (s *memoryStore) LatestResponse(_ context.Context, userID string, key models.StructureKey) (*models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.ResponseRecord
	for k, r := range s.responses {
		if k.UserID != userID || k.Structure != key {
			continue
		}
		if best == nil || r.LastUpdated.After(best.LastUpdated) {
			best = r
		}
	}
	return best.Clone(), nil
}

// SaveResponse upserts by key; an existing record keeps its id.
func (s *memoryStore) SaveResponse(_ context.Context, rec *models.ResponseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec.Clone()
	if prev, ok := s.responses[rec.Key()]; ok {
		cp.ID = prev.ID
	}
	s.responses[rec.Key()] = cp
	return nil
}

func (s *memoryStore) ListResponsesByTemplate(_ context.Context, code, version string) ([]*models.ResponseRecord, error) {
	return s.filterResponses(func(r *models.ResponseRecord) bool {
		return r.TemplateCode == code && r.Version == version
	}, func(a, b *models.ResponseRecord) bool { return a.UserID < b.UserID }), nil
}

func (s *memoryStore) ListResponsesByUser(_ context.Context, userID string) ([]*models.ResponseRecord, error) {
	return s.filterResponses(func(r *models.ResponseRecord) bool {
		return r.UserID == userID
	}, func(a, b *models.ResponseRecord) bool { return a.LastUpdated.After(b.LastUpdated) }), nil
}

func (s *memoryStore) filterResponses(keep func(*models.ResponseRecord) bool, less func(a, b *models.ResponseRecord) bool) []*models.ResponseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ResponseRecord
	for _, r := range s.responses {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *memoryStore) AddInvite(_ context.Context, inv *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invites[inv.ID] = &cp
	return nil
}

func (s *memoryStore) GetInvite(_ context.Context, id string) (*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inv, ok := s.invites[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) SetInviteActive(_ context.Context, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return false, nil
	}
	inv.Active = active
	return true, nil
}

func (s *memoryStore) ListInvites(_ context.Context, f services.InviteFilter) ([]*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Invite
	for _, inv := range s.invites {
		if f.GrantorID != "" && inv.GrantorID != f.GrantorID {
			continue
		}
		if f.GranteeID != "" && inv.GranteeID != f.GranteeID {
			continue
		}
		if f.Active != nil && inv.Active != *f.Active {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateInvited.Equal(out[j].DateInvited) {
			return out[i].DateInvited.After(out[j].DateInvited)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) AddEvidence(_ context.Context, ev *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.evidence[ev.ID] = &cp
	return nil
}

func (s *memoryStore) GetEvidence(_ context.Context, id string) (*models.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ev, ok := s.evidence[id]; ok {
		cp := *ev
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) FindEvidenceByDigest(_ context.Context, userID, digest string) (*models.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Evidence
	for _, ev := range s.evidence {
		if ev.UserID == userID && ev.Digest == digest && (best == nil || ev.UploadedAt.Before(best.UploadedAt)) {
			best = ev
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memoryStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return nil
}

// ListAudit returns the newest limit entries, oldest first.
func (s *memoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.audit) > limit {
		start = len(s.audit) - limit
	}
	return append([]models.AuditEntry(nil), s.audit[start:]...), nil
}

func (s *memoryStore) PurgeAuditBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audit[:0]
	for _, e := range s.audit {
		if !e.Time.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	n := len(s.audit) - len(kept)
	s.audit = kept
	return n, nil
}
