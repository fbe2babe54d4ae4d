package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// SessionOptions tunes autosave. Zero values fall back to defaults.
type SessionOptions struct {
	Delay       time.Duration // quiet period before an autosave fires
	SaveTimeout time.Duration // bound on a single autosave, including flush on close
	IdleTTL     time.Duration // sessions untouched this long are reaped
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.Delay <= 0 {
		o.Delay = 60 * time.Second
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 5 * time.Second
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 30 * time.Minute
	}
	return o
}

type OpenSessionRequest struct {
	Structure  models.StructureKey
	TemplateID string
	InviteID   string
}

// AnswerEdit changes one answer. Nil fields are left alone.
type AnswerEdit struct {
	Answer        *models.AnswerValue `json:"answer,omitempty"`
	Justification *string             `json:"justification,omitempty"`
	Evidence      *string             `json:"evidence,omitempty"`
}

// SessionView is the editor state returned to the client.
type SessionView struct {
	ID         string             `json:"id"`
	TemplateID string             `json:"templateId"`
	Status     models.Status      `json:"status,omitempty"`
	Locked     bool               `json:"locked"`
	Answers    models.FlatAnswers `json:"answers"`
	Visible    []string           `json:"visibleQuestions"`
	Progress   engine.Progress    `json:"progress"`
	Pending    bool               `json:"autosavePending"`
	LastSaved  *time.Time         `json:"lastSaved,omitempty"`
}

// EditingSession holds one grantee's in-progress answers and owns the
// autosave slot. Autosave is armed only by the first edit.
type EditingSession struct {
	ID       string
	owner    models.Session
	template *models.Template
	inviteID string

	mu        sync.Mutex
	answers   models.FlatAnswers
	status    models.Status
	edited    bool
	touched   time.Time
	lastSaved *time.Time
	lastErr   error

	deb *engine.Debouncer
}

// SessionManager tracks open editing sessions.
type SessionManager struct {
	responses *ResponseService
	opts      SessionOptions
	now       func() time.Time
	idGen     func() string

	mu       sync.Mutex
	sessions map[string]*EditingSession
}

func NewSessionManager(responses *ResponseService, opts SessionOptions) *SessionManager {
	return &SessionManager{
		responses: responses,
		opts:      opts.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     uuid.NewString,
		sessions:  map[string]*EditingSession{},
	}
}

// Open starts an editing session seeded from the grantee's stored record.
func (m *SessionManager) Open(ctx context.Context, sess models.Session, req OpenSessionRequest) (*SessionView, error) {
	if sess.Role != models.RoleGrantee {
		return nil, NewForbiddenError("only grantees can edit responses")
	}
	t, err := m.responses.resolveTemplate(ctx, SaveDraftRequest{Structure: req.Structure, TemplateID: req.TemplateID})
	if err != nil {
		return nil, err
	}
	key := models.ResponseKey{UserID: sess.UserID, Structure: t.Key(), TemplateCode: t.TemplateCode, Version: t.Version}
	rec, err := m.responses.responses.GetResponse(ctx, key)
	if err != nil {
		return nil, persistErr("load response", err)
	}
	es := &EditingSession{
		ID:       m.idGen(),
		owner:    sess,
		template: t,
		inviteID: req.InviteID,
		answers:  models.FlatAnswers{},
		touched:  m.now(),
		deb:      engine.NewDebouncer(),
	}
	if rec != nil {
		es.answers = engine.Unstructure(rec.Answers)
		es.status = rec.Status
		lu := rec.LastUpdated
		es.lastSaved = &lu
	}
	m.mu.Lock()
	m.sessions[es.ID] = es
	m.mu.Unlock()
	return es.view(), nil
}

// Edit applies answer edits and restarts the autosave countdown. Edits to a
// locked record fail with an InvalidTransitionError.
func (m *SessionManager) Edit(ctx context.Context, sess models.Session, id string, edits map[string]AnswerEdit) (*SessionView, error) {
	es, err := m.lookup(sess, id)
	if err != nil {
		return nil, err
	}
	idx := engine.QuestionIndex(es.template)
	for qid, e := range edits {
		if _, ok := idx[qid]; !ok {
			return nil, NewInvalidError("unknown question " + qid)
		}
		if e.Answer != nil && *e.Answer != "" && !e.Answer.Valid() {
			return nil, NewInvalidError("invalid answer for " + qid)
		}
	}

	es.mu.Lock()
	if engine.IsLocked(es.status) {
		from := es.status
		es.mu.Unlock()
		return nil, &engine.InvalidTransitionError{From: from, Event: engine.EventSave}
	}
	for qid, e := range edits {
		es.answers[qid] = applyEdit(es.answers[qid], e, idx[qid].Question)
	}
	es.edited = true
	es.touched = m.now()
	es.mu.Unlock()

	es.deb.Schedule(m.opts.Delay, func() { m.autosave(es) })
	return es.view(), nil
}

// View returns the current editor state.
func (m *SessionManager) View(sess models.Session, id string) (*SessionView, error) {
	es, err := m.lookup(sess, id)
	if err != nil {
		return nil, err
	}
	return es.view(), nil
}

// CloseResult reports what happened to a pending autosave on close.
type CloseResult struct {
	Flushed   bool `json:"flushed"`
	Discarded bool `json:"discarded"`
}

// Close ends a session. With flush set, a pending autosave runs now, bounded
// by SaveTimeout; otherwise it is dropped.
func (m *SessionManager) Close(sess models.Session, id string, flush bool) (*CloseResult, error) {
	es, err := m.lookup(sess, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return m.finish(es, flush), nil
}

// Reap closes sessions idle longer than IdleTTL, flushing their pending
// autosave. It returns the number of sessions closed.
func (m *SessionManager) Reap() int {
	cutoff := m.now().Add(-m.opts.IdleTTL)
	var idle []*EditingSession
	m.mu.Lock()
	for id, es := range m.sessions {
		es.mu.Lock()
		stale := es.touched.Before(cutoff)
		es.mu.Unlock()
		if stale {
			idle = append(idle, es)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, es := range idle {
		m.finish(es, true)
	}
	return len(idle)
}

// Shutdown flushes and closes every open session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	all := make([]*EditingSession, 0, len(m.sessions))
	for id, es := range m.sessions {
		all = append(all, es)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, es := range all {
		m.finish(es, true)
	}
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) finish(es *EditingSession, flush bool) *CloseResult {
	if flush {
		return &CloseResult{Flushed: es.deb.Flush()}
	}
	return &CloseResult{Discarded: es.deb.Cancel()}
}

func (m *SessionManager) lookup(sess models.Session, id string) (*EditingSession, error) {
	m.mu.Lock()
	es := m.sessions[id]
	m.mu.Unlock()
	if es == nil {
		return nil, NewNotFoundError("session not found")
	}
	if es.owner.UserID != sess.UserID {
		return nil, NewForbiddenError("forbidden")
	}
	return es, nil
}

// autosave persists the current snapshot as a draft. Failures are logged
// and kept on the session; editing continues.
func (m *SessionManager) autosave(es *EditingSession) {
	es.mu.Lock()
	if !es.edited {
		es.mu.Unlock()
		return
	}
	snapshot := make(models.FlatAnswers, len(es.answers))
	for k, v := range es.answers {
		snapshot[k] = v
	}
	es.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SaveTimeout)
	defer cancel()
	rec, err := m.responses.SaveDraft(ctx, es.owner, SaveDraftRequest{
		Structure:  es.template.Key(),
		TemplateID: es.template.ID,
		InviteID:   es.inviteID,
		Answers:    snapshot,
	})

	es.mu.Lock()
	defer es.mu.Unlock()
	if err != nil {
		es.lastErr = err
		log.Printf("autosave: session %s: %v", es.ID, err)
		return
	}
	es.lastErr = nil
	es.status = rec.Status
	lu := rec.LastUpdated
	es.lastSaved = &lu
}

// LastError returns the most recent autosave failure, if any.
func (es *EditingSession) LastError() error {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.lastErr
}

func (es *EditingSession) view() *SessionView {
	es.mu.Lock()
	defer es.mu.Unlock()
	answers := make(models.FlatAnswers, len(es.answers))
	for k, v := range es.answers {
		answers[k] = v
	}
	visible := engine.VisibleQuestions(es.template, answers)
	ids := make([]string, 0, len(visible))
	for _, q := range visible {
		ids = append(ids, q.ID)
	}
	v := &SessionView{
		ID:         es.ID,
		TemplateID: es.template.ID,
		Status:     es.status,
		Locked:     engine.IsLocked(es.status),
		Answers:    answers,
		Visible:    ids,
		Progress:   engine.ComputeProgress(es.template, answers),
		Pending:    es.deb.Pending(),
	}
	if es.lastSaved != nil {
		t := *es.lastSaved
		v.LastSaved = &t
	}
	return v
}

func applyEdit(cur models.Answer, e AnswerEdit, q *models.Question) models.Answer {
	if e.Answer != nil {
		cur = cur.WithValue(*e.Answer)
	}
	if e.Justification != nil && cur.Answer == models.AnswerNotApplicable {
		cur.Justification = *e.Justification
	}
	if e.Evidence != nil && cur.Answer == models.AnswerYes && q.UploadEvidence {
		cur.Evidence = *e.Evidence
	}
	return cur
}
