package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

var errStoreDown = errors.New("store down")

// stubStore is an in-memory implementation of every store interface.
type stubStore struct {
	mu        sync.Mutex
	templates map[string]*models.Template
	responses map[string]*models.ResponseRecord
	invites   map[string]*models.Invite
	evidence  map[string]*models.Evidence
	blobs     map[string][]byte
	audits    []models.AuditEntry

	saveErr  error
	auditErr error
	saves    int
}

func newStubStore() *stubStore {
	return &stubStore{
		templates: map[string]*models.Template{},
		responses: map[string]*models.ResponseRecord{},
		invites:   map[string]*models.Invite{},
		evidence:  map[string]*models.Evidence{},
		blobs:     map[string][]byte{},
	}
}

func (s *stubStore) InsertTemplate(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *stubStore) GetTemplate(_ context.Context, id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates[id], nil
}

func (s *stubStore) GetTemplateByCode(_ context.Context, code, version string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.TemplateCode == code && t.Version == version {
			return t, nil
		}
	}
	return nil, nil
}

func (s *stubStore) LatestTemplate(_ context.Context, key models.StructureKey) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Template
	for _, t := range s.templates {
		if t.Key() != key {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	return best, nil
}

func (s *stubStore) ListTemplates(_ context.Context) ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func responseKeyString(k models.ResponseKey) string {
	return k.UserID + "|" + k.Structure.String() + "|" + k.TemplateCode + "|" + k.Version
}

func (s *stubStore) GetResponse(_ context.Context, key models.ResponseKey) (*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[responseKeyString(key)].Clone(), nil
}

func (s *stubStore) GetResponseByID(_ context.Context, id string) (*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.responses {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (s *stubStore) LatestResponse(_ context.Context, userID string, key models.StructureKey) (*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.ResponseRecord
	for _, r := range s.responses {
		if r.UserID != userID || r.Structure != key {
			continue
		}
		if best == nil || r.LastUpdated.After(best.LastUpdated) {
			best = r
		}
	}
	return best.Clone(), nil
}

func (s *stubStore) SaveResponse(_ context.Context, rec *models.ResponseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.responses[responseKeyString(rec.Key())] = rec.Clone()
	return nil
}

func (s *stubStore) ListResponsesByTemplate(_ context.Context, code, version string) ([]*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ResponseRecord
	for _, r := range s.responses {
		if r.TemplateCode == code && r.Version == version {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *stubStore) ListResponsesByUser(_ context.Context, userID string) ([]*models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ResponseRecord
	for _, r := range s.responses {
		if r.UserID == userID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *stubStore) AddInvite(_ context.Context, inv *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invites[inv.ID] = &cp
	return nil
}

func (s *stubStore) GetInvite(_ context.Context, id string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invites[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) SetInviteActive(_ context.Context, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return false, nil
	}
	inv.Active = active
	return true, nil
}

func (s *stubStore) ListInvites(_ context.Context, f InviteFilter) ([]*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) AddEvidence(_ context.Context, ev *models.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.evidence[ev.ID] = &cp
	return nil
}

func (s *stubStore) GetEvidence(_ context.Context, id string) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.evidence[id]; ok {
		cp := *ev
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) FindEvidenceByDigest(_ context.Context, userID, digest string) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.evidence {
		if ev.UserID == userID && ev.Digest == digest {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *stubStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("no blob")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *stubStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditErr != nil {
		return s.auditErr
	}
	s.audits = append(s.audits, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.AuditEntry(nil), s.audits...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *stubStore) PurgeAuditBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audits[:0]
	n := 0
	for _, e := range s.audits {
		if e.Time.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.audits = kept
	return n, nil
}

func (s *stubStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audits))
	for _, e := range s.audits {
		out = append(out, e.Action)
	}
	return out
}

var (
	grantee  = models.Session{UserID: "grantee-1", Role: models.RoleGrantee}
	grantee2 = models.Session{UserID: "grantee-2", Role: models.RoleGrantee}
	grantor  = models.Session{UserID: "grantor-1", Role: models.RoleGrantor, Email: "funder@example.org"}
	grantorB = models.Session{UserID: "grantor-2", Role: models.RoleGrantor}
	admin    = models.Session{UserID: "admin-1", Role: models.RoleAdmin}

	foundation = models.StructureKey{StructureType: models.StructureFoundation}
)

const sampleTemplateJSON = `{
  "templateCode": "GFGP-F",
  "version": "1",
  "title": "Foundation",
  "structureType": "foundation",
  "content": {"sections": [
    {"sectionId": "S1", "title": "Governance", "subsections": [
      {"subsectionId": "S1.1", "title": "Board", "questions": [
        {"id": "Q1", "questionText": "Board approved?", "required": true, "uploadEvidence": true},
        {"id": "Q2", "questionText": "Minutes kept?", "conditional": {"questionId": "Q1", "showIf": ["Yes"]}},
        {"id": "Q3", "questionText": "Conflicts register?", "riskAnswers": ["No"]}
      ]}
    ]},
    {"sectionId": "S2", "title": "Finance", "subsections": [
      {"subsectionId": "S2.1", "title": "Audit", "questions": [
        {"id": "Q4", "questionText": "Audited?", "required": true}
      ]}
    ]}
  ]}
}`

type fixture struct {
	store     *stubStore
	audit     *Auditor
	templates *TemplateService
	responses *ResponseService
	review    *ReviewService
	reports   *ReportService
	invites   *InviteService
	clock     time.Time
}

func newFixture(t interface {
	Helper()
	Fatalf(string, ...any)
}) *fixture {
	t.Helper()
	st := newStubStore()
	f := &fixture{store: st, clock: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.audit = NewAuditor(st)
	f.audit.now = f.now
	f.templates = NewTemplateService(st, nil, f.audit)
	f.templates.now = f.now
	f.templates.idGen = func() string { return "T1" }
	f.responses = NewResponseService(st, f.templates, st, f.audit)
	f.responses.now = f.now
	seq := 0
	f.responses.idGen = func() string { seq++; return "R" + string(rune('0'+seq)) }
	f.review = NewReviewService(st, f.templates, st, f.audit)
	f.review.now = f.now
	f.reports = NewReportService(st, f.templates, st)
	f.invites = NewInviteService(st, f.audit)
	f.invites.now = f.now
	iseq := 0
	f.invites.idGen = func() string { iseq++; return "I" + string(rune('0'+iseq)) }
	if _, err := f.templates.Publish(context.Background(), admin, []byte(sampleTemplateJSON), FormatJSON); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) tick(d time.Duration) { f.clock = f.clock.Add(d) }

func yes() models.Answer { return models.Answer{Answer: models.AnswerYes} }

func ans(v models.AnswerValue) models.Answer { return models.Answer{Answer: v} }
