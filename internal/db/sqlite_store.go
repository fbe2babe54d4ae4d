package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// SQLiteStore persists templates, responses, invites, evidence metadata and
// the audit log. Lookups return (nil, nil) when a row does not exist.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func (s *SQLiteStore) closeRows(prefix string, rows *sql.Rows) {
	s.logErr(prefix+": rows.Close", rows.Close())
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		log.Printf("sqlite store: parse time %q: %v", v, err)
		return time.Time{}
	}
	return t
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// --- Templates ---

func (s *SQLiteStore) InsertTemplate(ctx context.Context, t *models.Template) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO templates (id, template_code, version, title, structure_type, tiered_level, document, created_at)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TemplateCode, t.Version, t.Title, string(t.StructureType), string(t.TieredLevel), string(doc), formatTime(t.CreatedAt))
	return err
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	return s.queryTemplate(ctx, `SELECT document FROM templates WHERE id = ?`, id)
}

func (s *SQLiteStore) GetTemplateByCode(ctx context.Context, code, version string) (*models.Template, error) {
	return s.queryTemplate(ctx, `SELECT document FROM templates WHERE template_code = ? AND version = ?`, code, version)
}

func (s *SQLiteStore) LatestTemplate(ctx context.Context, key models.StructureKey) (*models.Template, error) {
	return s.queryTemplate(ctx, `SELECT document FROM templates WHERE structure_type = ? AND tiered_level = ?
      ORDER BY created_at DESC, rowid DESC LIMIT 1`, string(key.StructureType), string(key.TieredLevel))
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM templates ORDER BY structure_type, tiered_level, created_at`)
	if err != nil {
		return nil, err
	}
	defer s.closeRows("ListTemplates", rows)
	out := []*models.Template{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		t, err := decodeTemplate(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryTemplate(ctx context.Context, query string, args ...any) (*models.Template, error) {
	var doc string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeTemplate(doc)
}

func decodeTemplate(doc string) (*models.Template, error) {
	var t models.Template
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return &t, nil
}

// --- Responses ---

const responseColumns = `id, user_id, structure_type, tiered_level, template_code, version, template_id, status, answers,
  last_updated, submitted_at, completeness, compliance, invite_id, returned_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResponse(row rowScanner) (*models.ResponseRecord, error) {
	var (
		rec                     models.ResponseRecord
		st, tl, status, answers string
		lastUpdated             string
		submittedAt             sql.NullString
		completeness, comply    sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &st, &tl, &rec.TemplateCode, &rec.Version, &rec.TemplateID, &status, &answers,
		&lastUpdated, &submittedAt, &completeness, &comply, &rec.InviteID, &rec.ReturnedBy); err != nil {
		return nil, err
	}
	rec.Structure = models.StructureKey{StructureType: models.StructureType(st), TieredLevel: models.TieredLevel(tl)}
	rec.Status = models.Status(status)
	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", rec.ID, err)
	}
	rec.LastUpdated = parseTime(lastUpdated)
	if submittedAt.Valid {
		t := parseTime(submittedAt.String)
		rec.SubmittedAt = &t
	}
	if completeness.Valid {
		v := completeness.Float64
		rec.Completeness = &v
	}
	if comply.Valid {
		v := comply.Float64
		rec.Compliance = &v
	}
	return &rec, nil
}

func (s *SQLiteStore) queryResponse(ctx context.Context, where string, args ...any) (*models.ResponseRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE `+where, args...)
	rec, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *SQLiteStore) queryResponses(ctx context.Context, op, where string, args ...any) ([]*models.ResponseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(op, rows)
	out := []*models.ResponseRecord{}
	for rows.Next() {
		rec, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetResponse(ctx context.Context, key models.ResponseKey) (*models.ResponseRecord, error) {
	return s.queryResponse(ctx, `user_id = ? AND structure_type = ? AND tiered_level = ? AND template_code = ? AND version = ?`,
		key.UserID, string(key.Structure.StructureType), string(key.Structure.TieredLevel), key.TemplateCode, key.Version)
}

func (s *SQLiteStore) GetResponseByID(ctx context.Context, id string) (*models.ResponseRecord, error) {
	return s.queryResponse(ctx, `id = ?`, id)
}

func (s *SQLiteStore) LatestResponse(ctx context.Context, userID string, key models.StructureKey) (*models.ResponseRecord, error) {
	return s.queryResponse(ctx, `user_id = ? AND structure_type = ? AND tiered_level = ? ORDER BY last_updated DESC LIMIT 1`,
		userID, string(key.StructureType), string(key.TieredLevel))
}

// SaveResponse upserts by response key; the stored id of an existing row wins.
func (s *SQLiteStore) SaveResponse(ctx context.Context, rec *models.ResponseRecord) error {
	answers := rec.Answers
	if answers == nil {
		answers = models.NestedAnswers{}
	}
	doc, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO responses (`+responseColumns+`)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
      ON CONFLICT(user_id, structure_type, tiered_level, template_code, version) DO UPDATE SET
        template_id = excluded.template_id,
        status = excluded.status,
        answers = excluded.answers,
        last_updated = excluded.last_updated,
        submitted_at = excluded.submitted_at,
        completeness = excluded.completeness,
        compliance = excluded.compliance,
        invite_id = excluded.invite_id,
        returned_by = excluded.returned_by`,
		rec.ID, rec.UserID, string(rec.Structure.StructureType), string(rec.Structure.TieredLevel), rec.TemplateCode, rec.Version,
		rec.TemplateID, string(rec.Status), string(doc), formatTime(rec.LastUpdated), toNullTime(rec.SubmittedAt),
		toNullFloat(rec.Completeness), toNullFloat(rec.Compliance), rec.InviteID, rec.ReturnedBy)
	return err
}

func (s *SQLiteStore) ListResponsesByTemplate(ctx context.Context, code, version string) ([]*models.ResponseRecord, error) {
	return s.queryResponses(ctx, "ListResponsesByTemplate", `template_code = ? AND version = ? ORDER BY user_id`, code, version)
}

func (s *SQLiteStore) ListResponsesByUser(ctx context.Context, userID string) ([]*models.ResponseRecord, error) {
	return s.queryResponses(ctx, "ListResponsesByUser", `user_id = ? ORDER BY last_updated DESC`, userID)
}

// --- Invites ---

func (s *SQLiteStore) AddInvite(ctx context.Context, inv *models.Invite) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO invites (id, grantor_id, grantee_id, structure_type, tiered_level, template_code, date_invited, invited_by, active)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.GrantorID, inv.GranteeID, string(inv.Structure.StructureType), string(inv.Structure.TieredLevel),
		inv.TemplateCode, formatTime(inv.DateInvited), inv.InvitedBy, boolToInt64(inv.Active))
	return err
}

const inviteColumns = `id, grantor_id, grantee_id, structure_type, tiered_level, template_code, date_invited, invited_by, active`

func scanInvite(row rowScanner) (*models.Invite, error) {
	var (
		inv            models.Invite
		st, tl, dateAt string
		active         int64
	)
	if err := row.Scan(&inv.ID, &inv.GrantorID, &inv.GranteeID, &st, &tl, &inv.TemplateCode, &dateAt, &inv.InvitedBy, &active); err != nil {
		return nil, err
	}
	inv.Structure = models.StructureKey{StructureType: models.StructureType(st), TieredLevel: models.TieredLevel(tl)}
	inv.DateInvited = parseTime(dateAt)
	inv.Active = active != 0
	return &inv, nil
}

func (s *SQLiteStore) GetInvite(ctx context.Context, id string) (*models.Invite, error) {
	inv, err := scanInvite(s.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func (s *SQLiteStore) SetInviteActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE invites SET active = ? WHERE id = ?`, boolToInt64(active), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListInvites(ctx context.Context, f services.InviteFilter) ([]*models.Invite, error) {
	var (
		conds []string
		args  []any
	)
	if f.GrantorID != "" {
		conds = append(conds, "grantor_id = ?")
		args = append(args, f.GrantorID)
	}
	if f.GranteeID != "" {
		conds = append(conds, "grantee_id = ?")
		args = append(args, f.GranteeID)
	}
	if f.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, boolToInt64(*f.Active))
	}
	query := `SELECT ` + inviteColumns + ` FROM invites`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date_invited DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer s.closeRows("ListInvites", rows)
	out := []*models.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// --- Evidence ---

const evidenceColumns = `id, user_id, question_id, file_name, content_type, size, digest, url, uploaded_at`

func scanEvidence(row rowScanner) (*models.Evidence, error) {
	var (
		ev         models.Evidence
		uploadedAt string
	)
	if err := row.Scan(&ev.ID, &ev.UserID, &ev.QuestionID, &ev.FileName, &ev.ContentType, &ev.Size, &ev.Digest, &ev.URL, &uploadedAt); err != nil {
		return nil, err
	}
	ev.UploadedAt = parseTime(uploadedAt)
	return &ev, nil
}

func (s *SQLiteStore) AddEvidence(ctx context.Context, ev *models.Evidence) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO evidence (`+evidenceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.QuestionID, ev.FileName, ev.ContentType, ev.Size, ev.Digest, ev.URL, formatTime(ev.UploadedAt))
	return err
}

func (s *SQLiteStore) GetEvidence(ctx context.Context, id string) (*models.Evidence, error) {
	ev, err := scanEvidence(s.db.QueryRowContext(ctx, `SELECT `+evidenceColumns+` FROM evidence WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

func (s *SQLiteStore) FindEvidenceByDigest(ctx context.Context, userID, digest string) (*models.Evidence, error) {
	ev, err := scanEvidence(s.db.QueryRowContext(ctx, `SELECT `+evidenceColumns+` FROM evidence
      WHERE user_id = ? AND digest = ? ORDER BY uploaded_at LIMIT 1`, userID, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

// --- Audit ---

func (s *SQLiteStore) AddAudit(ctx context.Context, e models.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log (time, actor, action, target, note, structure) VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(e.Time), e.Actor, e.Action, e.Target, e.Note, e.Structure)
	return err
}

// ListAudit returns the newest limit entries in chronological order.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT time, actor, action, target, note, structure FROM
      (SELECT id, time, actor, action, target, note, structure FROM audit_log ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer s.closeRows("ListAudit", rows)
	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e  models.AuditEntry
			at string
		)
		if err := rows.Scan(&at, &e.Actor, &e.Action, &e.Target, &e.Note, &e.Structure); err != nil {
			return nil, err
		}
		e.Time = parseTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE time < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
