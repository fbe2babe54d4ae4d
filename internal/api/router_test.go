package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/blobstore"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/cache"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

const testSecret = "router-test-secret"

const foundationTemplate = `{
  "templateCode": "GFGP-F",
  "version": "1",
  "title": "Foundation",
  "structureType": "foundation",
  "content": {"sections": [
    {"sectionId": "S1", "title": "Governance", "subsections": [
      {"subsectionId": "S1.1", "title": "Board", "questions": [
        {"id": "Q1", "questionText": "Is the budget **board approved**?", "required": true, "uploadEvidence": true},
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

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   Store
	svc     *Services
}

func newTestServer(t *testing.T, store Store) *testServer {
	t.Helper()
	if store == nil {
		store = newMemoryStore()
	}
	blobs, err := blobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := NewServices(store, cache.NewMemory(), blobs, Options{
		Sessions: services.SessionOptions{Delay: time.Hour, SaveTimeout: time.Second},
	})
	t.Cleanup(svc.Sessions.Shutdown)
	mux := http.NewServeMux()
	NewRouter(svc).Register(mux)
	return &testServer{
		t:       t,
		handler: middleware.WithAuth(testSecret)(middleware.LocaleMiddleware(mux)),
		store:   store,
		svc:     svc,
	}
}

func token(t *testing.T, uid string, role models.Role) string {
	tok, err := middleware.SignToken(testSecret, uid, role, uid+"@example.org", time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type actors struct {
	admin, grantor, grantee string
}

func newActors(t *testing.T) actors {
	return actors{
		admin:   token(t, "admin-1", models.RoleAdmin),
		grantor: token(t, "funder-1", models.RoleGrantor),
		grantee: token(t, "org-1", models.RoleGrantee),
	}
}

func (ts *testServer) publish(tok string) *models.Template {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/templates", tok, foundationTemplate)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*models.Template](ts.t, rec)
}

func draft(answers map[string]any) map[string]any {
	return map[string]any{"structureType": "foundation", "answers": answers}
}

func TestRequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/api/templates/all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTemplateEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)

	rec := ts.do(http.MethodPost, "/api/templates", who.grantee, foundationTemplate)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/templates", who.admin, `{"templateCode":"X","version":"1","structureType":"foundation"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	tpl := ts.publish(who.admin)
	rec = ts.do(http.MethodPost, "/api/templates", who.admin, foundationTemplate)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/templates?structureType=foundation", who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tpl.ID, decode[*models.Template](t, rec).ID)

	rec = ts.do(http.MethodGet, "/api/templates?structureType=tiered", who.grantee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodGet, "/api/templates?structureType=advanced", who.grantee, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/templates/"+tpl.ID+"?render=html", who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[*models.Template](t, rec)
	assert.Contains(t, got.Sections[0].Subsections[0].Questions[0].QuestionText, "<strong>board approved</strong>")

	rec = ts.do(http.MethodGet, "/api/templates/all", who.grantor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*models.Template](t, rec), 1)
}

func TestResponseLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)
	ts.publish(who.admin)

	rec := ts.do(http.MethodPost, "/api/invites", who.grantor, map[string]any{"granteeId": "org-1", "structureType": "foundation", "templateCode": "GFGP-F"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/responses?structureType=foundation", who.grantee, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodGet, "/api/responses/status?structureType=foundation", who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[services.StatusResult](t, rec).Locked)

	rec = ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{"Q1": map[string]string{"answer": "Yes"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[*models.ResponseRecord](t, rec)
	assert.Equal(t, models.StatusSaved, saved.Status)

	rec = ts.do(http.MethodGet, "/api/invites?active=true", who.grantor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]*models.Invite](t, rec), "first save consumes the invite")

	rec = ts.do(http.MethodPost, "/api/responses/submit", who.grantee, draft(map[string]any{
		"Q1": map[string]string{"answer": "Yes"},
		"Q3": map[string]string{"answer": "No"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode[services.SubmitResult](t, rec)
	assert.Equal(t, models.StatusSubmitted, sub.Record.Status)
	assert.Contains(t, sub.Gaps, "Q4")

	rec = ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{"Q4": map[string]string{"answer": "Yes"}}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec), "warning")

	rec = ts.do(http.MethodGet, "/api/responses/"+saved.ID+"/report?lang=fr", who.grantor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode[map[string]any](t, rec)
	assert.Equal(t, "fr", rep["locale"])
	assert.Equal(t, "Non conforme", rep["labelText"].(map[string]any)["Q3"])
	assert.Equal(t, []any{"Q3"}, rep["highRisk"])

	rec = ts.do(http.MethodGet, "/api/responses/submissions", who.grantor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*models.ResponseRecord](t, rec), 1)

	rec = ts.do(http.MethodPut, "/api/responses/"+saved.ID+"/return", who.grantee, map[string]any{"feedback": map[string]string{"Q3": "x"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodPut, "/api/responses/"+saved.ID+"/return", who.grantor, map[string]any{"feedback": map[string]string{"Q3": "Attach the register"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ret := decode[services.ReturnResult](t, rec)
	assert.Equal(t, models.StatusReturnedForFixes, ret.Record.Status)

	rec = ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{
		"Q1": map[string]string{"answer": "Yes"},
		"Q3": map[string]string{"answer": "Yes"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	after := decode[*models.ResponseRecord](t, rec)
	assert.Equal(t, "Attach the register", after.Answers["S1"]["S1.1"]["Q3"].FunderFeedback)

	rec = ts.do(http.MethodPost, "/api/compare", who.grantor, map[string]any{"templateId": after.TemplateID, "granteeIds": []string{"org-1"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, "/api/compare", who.grantor, map[string]any{"templateId": after.TemplateID, "granteeIds": []string{"org-9"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBadInput(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)
	ts.publish(who.admin)

	rec := ts.do(http.MethodPost, "/api/responses/draft", who.grantee, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{"Q99": map[string]string{"answer": "Yes"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{"Q1": map[string]string{"answer": "Maybe"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingStore struct {
	Store
}

func (failingStore) SaveResponse(context.Context, *models.ResponseRecord) error {
	return errors.New("disk full")
}

func TestPersistenceFailureIs503(t *testing.T) {
	ts := newTestServer(t, failingStore{Store: newMemoryStore()})
	who := newActors(t)
	ts.publish(who.admin)

	rec := ts.do(http.MethodPost, "/api/responses/draft", who.grantee, draft(map[string]any{"Q1": map[string]string{"answer": "No"}}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(http.MethodGet, "/api/responses/status?structureType=foundation", who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[services.StatusResult](t, rec).ID)
}

func TestEditingSessionFlushOnClose(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)
	ts.publish(who.admin)

	rec := ts.do(http.MethodPost, "/api/sessions", who.grantee, map[string]any{"structureType": "foundation"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[services.SessionView](t, rec)

	rec = ts.do(http.MethodPost, "/api/sessions/"+view.ID+"/edits", who.grantee, map[string]any{
		"edits": map[string]any{"Q1": map[string]string{"answer": "No"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[services.SessionView](t, rec).Pending)

	rec = ts.do(http.MethodGet, "/api/sessions/"+view.ID, who.grantor, nil)
	assert.NotEqual(t, http.StatusOK, rec.Code, "sessions are private to their owner")

	rec = ts.do(http.MethodDelete, "/api/sessions/"+view.ID, who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[services.CloseResult](t, rec).Flushed)

	rec = ts.do(http.MethodGet, "/api/responses?structureType=foundation", who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[*models.ResponseRecord](t, rec)
	assert.Equal(t, models.AnswerNo, got.Answers["S1"]["S1.1"]["Q1"].Answer)
}

func TestEvidenceUploadDownload(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)
	ts.publish(who.admin)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("questionId", "Q1"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="board-minutes.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 minutes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/evidence", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+who.grantee)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[*models.Evidence](t, rec)
	assert.Equal(t, "/api/evidence/"+ev.ID, ev.URL)

	rec = ts.do(http.MethodGet, ev.URL, who.grantee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 minutes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "board-minutes.pdf")

	rec = ts.do(http.MethodGet, ev.URL, who.grantor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "grantor without an invite")
}

func TestAuditAndReliability(t *testing.T) {
	ts := newTestServer(t, nil)
	who := newActors(t)
	tpl := ts.publish(who.admin)

	rec := ts.do(http.MethodPost, "/api/audit", who.grantee, map[string]string{"action": "view_report", "structure": "foundation"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = ts.do(http.MethodPost, "/api/audit", who.grantee, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/audit", who.grantee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodGet, "/api/audit?limit=10", who.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	actions := []string{}
	for _, e := range decode[[]models.AuditEntry](t, rec) {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"template_publish", "view_report"}, actions)

	rec = ts.do(http.MethodGet, "/api/analytics/reliability?templateId="+tpl.ID, who.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[services.ReliabilitySummary](t, rec).TotalResponses)
}
