package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
	"github.com/Aravindmodala/Bookology-sub001/internal/importer"
)

// handleMediaUpload inserts a placeholder media block, ships the file
// to the upload collaborator in the background and swaps the real URL
// in once it lands. The placeholder token, not the position, identifies
// the block: positions may shift while the upload is in flight.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	pos, err := strconv.Atoi(r.FormValue("pos"))
	if err != nil {
		jsonError(w, "pos is required", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	alt := r.FormValue("alt")
	placeholder, err := ls.sess.InsertMediaPlaceholder(pos, alt)
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	filename := sanitizeFilename(header.Filename)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		url, err := s.uploader.Upload(ctx, filename, bytes.NewReader(data))
		if err != nil {
			s.log.Error("media upload failed", "session_id", ls.sess.ID(), "filename", filename, "error", err)
			return
		}
		if err := ls.sess.SwapMediaSource(placeholder, url); err != nil {
			s.log.Warn("media swap skipped", "session_id", ls.sess.ID(), "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"placeholder": placeholder,
		"status":      ls.sess.Status(),
	})
}

// handleImport converts an uploaded manuscript file into exchange-format
// content ready to seed a chapter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !importer.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	imp, err := importer.ForFile(filename, importer.Options{
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := imp.Import(io.LimitReader(file, s.cfg.MaxUploadBytes+1), filename)
	if err != nil {
		jsonError(w, "import: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content":    s.codec.Serialize(doc),
		"blocks":     len(doc.Blocks),
		"word_count": editor.WordCount(doc),
	})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
