package services

import (
	"context"
	"encoding/hex"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// DefaultEvidenceTypes lists content types accepted for evidence files.
var DefaultEvidenceTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"text/plain",
	"text/csv",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type UploadRequest struct {
	QuestionID  string
	FileName    string
	ContentType string
	Data        []byte
}

type EvidenceOptions struct {
	MaxBytes     int64
	AllowedTypes []string
	URLPrefix    string
}

// EvidenceService stores uploaded supporting documents. Identical content
// uploaded twice by the same user resolves to the first upload.
type EvidenceService struct {
	meta    EvidenceStore
	blobs   BlobStore
	invites InviteStore
	audit   *Auditor
	opts    EvidenceOptions
	allowed map[string]bool
	now     func() time.Time
	idGen   func() string
}

func NewEvidenceService(meta EvidenceStore, blobs BlobStore, invites InviteStore, audit *Auditor, opts EvidenceOptions) *EvidenceService {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if len(opts.AllowedTypes) == 0 {
		opts.AllowedTypes = DefaultEvidenceTypes
	}
	if opts.URLPrefix == "" {
		opts.URLPrefix = "/api/evidence/"
	}
	allowed := make(map[string]bool, len(opts.AllowedTypes))
	for _, ct := range opts.AllowedTypes {
		allowed[strings.ToLower(ct)] = true
	}
	return &EvidenceService{
		meta:    meta,
		blobs:   blobs,
		invites: invites,
		audit:   audit,
		opts:    opts,
		allowed: allowed,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   uuid.NewString,
	}
}

// MaxBytes is the upload size limit.
func (s *EvidenceService) MaxBytes() int64 { return s.opts.MaxBytes }

func (s *EvidenceService) Upload(ctx context.Context, sess models.Session, req UploadRequest) (*models.Evidence, error) {
	if sess.Role != models.RoleGrantee {
		return nil, NewForbiddenError("only grantees can upload evidence")
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		return nil, NewInvalidError("questionId required")
	}
	if len(req.Data) == 0 {
		return nil, NewInvalidError("empty file")
	}
	if int64(len(req.Data)) > s.opts.MaxBytes {
		return nil, NewPayloadTooLargeError("file too large")
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(req.ContentType, ";", 2)[0]))
	if !s.allowed[ct] {
		return nil, NewInvalidError("unsupported file type")
	}

	sum := blake2b.Sum256(req.Data)
	digest := hex.EncodeToString(sum[:])
	dup, err := s.meta.FindEvidenceByDigest(ctx, sess.UserID, digest)
	if err != nil {
		return nil, persistErr("find evidence", err)
	}
	if dup != nil && dup.QuestionID == req.QuestionID {
		return dup, nil
	}

	ev := &models.Evidence{
		ID:          s.idGen(),
		UserID:      sess.UserID,
		QuestionID:  req.QuestionID,
		FileName:    path.Base(strings.ReplaceAll(req.FileName, "\\", "/")),
		ContentType: ct,
		Size:        int64(len(req.Data)),
		Digest:      digest,
		UploadedAt:  s.now(),
	}
	ev.URL = s.opts.URLPrefix + ev.ID
	if dup == nil {
		if err := s.blobs.Put(ctx, blobKey(sess.UserID, digest), req.Data); err != nil {
			return nil, persistErr("store evidence", err)
		}
	}
	if err := s.meta.AddEvidence(ctx, ev); err != nil {
		return nil, persistErr("add evidence", err)
	}
	s.audit.Record(ctx, models.AuditEntry{Actor: sess.UserID, Action: "evidence_upload", Target: ev.ID, Note: req.QuestionID})
	return ev, nil
}

// Open returns evidence metadata and its content for the uploader, an
// inviting grantor or an admin. The caller closes the reader.
func (s *EvidenceService) Open(ctx context.Context, sess models.Session, id string) (*models.Evidence, io.ReadCloser, error) {
	ev, err := s.meta.GetEvidence(ctx, id)
	if err != nil {
		return nil, nil, persistErr("get evidence", err)
	}
	if ev == nil {
		return nil, nil, NewNotFoundError("evidence not found")
	}
	ok, err := canReview(ctx, s.invites, sess, ev.UserID, reviewScope{})
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, NewForbiddenError("forbidden")
	}
	rc, err := s.blobs.Open(ctx, blobKey(ev.UserID, ev.Digest))
	if err != nil {
		return nil, nil, persistErr("open evidence", err)
	}
	return ev, rc, nil
}

func blobKey(userID, digest string) string {
	return path.Join(userID, digest[:2], digest)
}
