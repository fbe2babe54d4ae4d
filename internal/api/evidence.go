package api

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// multipartOverhead covers form fields and part headers around the file.
const multipartOverhead = 64 << 10

// POST /api/evidence (multipart: questionId, file)
func (rt *Router) handleUploadEvidence(w http.ResponseWriter, r *http.Request, sess models.Session) {
	limit := rt.svc.Evidence.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, services.NewPayloadTooLargeError("file exceeds "+strconv.FormatInt(limit, 10)+" bytes"))
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form required"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file: " + err.Error()})
		return
	}
	ctype := hdr.Header.Get("Content-Type")
	if ctype == "" || ctype == "application/octet-stream" {
		ctype = http.DetectContentType(data)
	}
	ev, err := rt.svc.Evidence.Upload(r.Context(), sess, services.UploadRequest{
		QuestionID:  r.FormValue("questionId"),
		FileName:    hdr.Filename,
		ContentType: ctype,
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GET /api/evidence/{id}
func (rt *Router) handleDownloadEvidence(w http.ResponseWriter, r *http.Request, sess models.Session) {
	ev, rc, err := rt.svc.Evidence.Open(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", ev.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(ev.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ev.FileName}))
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[ERROR] stream evidence %s: %v", ev.ID, err)
	}
}
