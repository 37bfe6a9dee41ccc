package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
	"github.com/Aravindmodala/Bookology-sub001/internal/markup"
	"github.com/Aravindmodala/Bookology-sub001/internal/persist"
)

type openSessionRequest struct {
	ChapterID string `json:"chapter_id"`
	// Content lets callers seed the session directly instead of
	// fetching from the story backend.
	Content *string `json:"content,omitempty"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ChapterID == "" {
		jsonError(w, "chapter_id is required", http.StatusBadRequest)
		return
	}

	var content string
	if req.Content != nil {
		content = *req.Content
	} else {
		fetched, err := s.backend.FetchChapter(r.Context(), req.ChapterID)
		if err != nil {
			jsonError(w, "fetch chapter: "+err.Error(), http.StatusBadGateway)
			return
		}
		content = fetched
	}

	queue := persist.NewQueue(req.ChapterID, s.backend, s.cfg.SaveTimeout, s.log)
	sess, err := editor.NewSession(editor.Config{
		ChapterID:    req.ChapterID,
		Content:      content,
		Codec:        s.codec,
		Sink:         queue,
		QuietPeriod:  s.cfg.QuietPeriod,
		HistoryLimit: s.cfg.HistoryLimit,
		Log:          s.log,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.store.put(&liveSession{sess: sess, queue: queue})
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID(),
		"chapter_id": sess.ChapterID(),
		"status":     sess.Status(),
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      ls.sess.Status(),
		"save_status": ls.queue.Status(),
	})
}

func (s *Server) handleSessionContent(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chapter_id": ls.sess.ChapterID(),
		"content":    ls.sess.Content(),
	})
}

// handleCloseSession flushes the save queue before dropping the session
// so the latest state reaches the server.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	ls := s.store.remove(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	if err := ls.queue.Flush(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"closed":     true,
			"save_error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": true})
}

type editRequest struct {
	Op     string `json:"op"`
	Pos    int    `json:"pos"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Target int    `json:"target"`
	Text   string `json:"text"`
	Handle string `json:"handle"`
	DX     int    `json:"dx"`
	DY     int    `json:"dy"`

	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
	Align  *string `json:"align,omitempty"`
	Alt    *string `json:"alt,omitempty"`
}

// handleEdit applies one editing operation. A stale position is
// reported but never crashes the session: the operation was dropped and
// the document is unchanged.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := s.applyEdit(ls.sess, req)
	var stale *editor.StalePositionError
	if errors.As(err, &stale) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"dropped": true,
			"error":   stale.Error(),
			"status":  ls.sess.Status(),
		})
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      ls.sess.Status(),
		"save_status": ls.queue.Status(),
	})
}

func (s *Server) applyEdit(sess *editor.Session, req editRequest) error {
	switch req.Op {
	case "insert_text":
		return sess.InsertText(req.Pos, req.Text)
	case "delete":
		return sess.DeleteRange(req.From, req.To)
	case "insert_paragraph":
		return sess.InsertParagraph(req.Pos, req.Text)
	case "move":
		return sess.Move(req.From, req.To, req.Target)
	case "selection":
		sess.SetSelection(req.From, req.To)
		return nil
	case "set_attrs":
		attrs := editor.MediaAttrs{
			WidthPx:  req.Width,
			HeightPx: req.Height,
			Alt:      req.Alt,
		}
		if req.Align != nil {
			a := editor.Align(*req.Align)
			attrs.Align = &a
		}
		return sess.SetMediaAttrs(req.Pos, attrs)
	case "resize_start":
		handle, err := editor.ParseHandle(req.Handle)
		if err != nil {
			return err
		}
		return sess.StartResize(req.Pos, handle)
	case "resize_move":
		return sess.SampleResize(req.DX, req.DY)
	case "resize_end":
		return sess.ReleaseResize()
	case "drag_start":
		return sess.StartDrag(req.Pos)
	case "drop":
		return sess.Drop(req.Target)
	case "drag_cancel":
		sess.CancelDrag()
		return nil
	default:
		return errUnknownOp(req.Op)
	}
}

type unknownOpError string

func errUnknownOp(op string) error { return unknownOpError(op) }

func (e unknownOpError) Error() string { return "unknown edit op: " + string(e) }

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.handleHistoryStep(w, r, func(sess *editor.Session) bool { return sess.Undo() })
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.handleHistoryStep(w, r, func(sess *editor.Session) bool { return sess.Redo() })
}

func (s *Server) handleHistoryStep(w http.ResponseWriter, r *http.Request, step func(*editor.Session) bool) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	applied := step(ls.sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"status":  ls.sess.Status(),
	})
}

// handleRefresh fetches the chapter's stored content and offers it as a
// passive replacement. The sync guard decides; a suppressed candidate
// is retained and re-offered later.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	content, err := s.backend.FetchChapter(r.Context(), ls.sess.ChapterID())
	if err != nil {
		jsonError(w, "fetch chapter: "+err.Error(), http.StatusBadGateway)
		return
	}
	decision, err := ls.sess.OfferExternal(content)
	if err != nil {
		var malformed *markup.MalformedContentError
		if errors.As(err, &malformed) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decision": decision,
		"status":   ls.sess.Status(),
	})
}

type regenerateRequest struct {
	StoryID string `json:"story_id"`
	Chapter int    `json:"chapter"`
}

// handleRegenerate is the explicit user request: kick off generation,
// wait for the artifact and apply it authoritatively, bypassing the
// sync guard.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ls := s.store.get(chi.URLParam(r, "sessionID"))
	if ls == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.StoryID == "" || req.Chapter <= 0 {
		jsonError(w, "story_id and chapter are required", http.StatusBadRequest)
		return
	}

	if err := s.backend.RequestGeneration(r.Context(), req.StoryID, req.Chapter); err != nil {
		jsonError(w, "request generation: "+err.Error(), http.StatusBadGateway)
		return
	}
	policy := persist.RetryPolicy{
		MaxAttempts: s.cfg.PollMaxAttempts,
		Interval:    s.cfg.PollInterval,
	}
	content, err := s.backend.AwaitGenerated(r.Context(), req.StoryID, req.Chapter, policy)
	if err != nil {
		jsonError(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	if err := ls.sess.ApplyAuthoritative(content); err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": true,
		"status":  ls.sess.Status(),
	})
}
