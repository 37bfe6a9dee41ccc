package editor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NewID returns a random 128-bit hex identifier.
func NewID() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// PlaceholderScheme prefixes the temporary src of a media block whose
// upload has not finished yet.
const PlaceholderScheme = "pending-upload://"

// SaveSink receives committed snapshots for persistence. The save queue
// implements it.
type SaveSink interface {
	Enqueue(content string, wordCount int)
}

// Session owns one open chapter: the document, selection, activity
// state, history, sync guard and pointer controllers. It is the only
// writer of the document; every mutation runs to completion under its
// lock, which is what keeps position arithmetic sound.
type Session struct {
	mu sync.Mutex

	id        string
	chapterID string
	log       *slog.Logger

	engine *Engine
	codec  Codec
	sink   SaveSink

	sel           Selection
	activity      Activity
	lastKeystroke time.Time

	history *History
	guard   *SyncGuard
	resize  *ResizeController
	drag    *DragController

	createdAt time.Time
	updatedAt time.Time
}

// Config carries session construction options.
type Config struct {
	ChapterID    string
	Content      string
	Codec        Codec
	Sink         SaveSink
	QuietPeriod  time.Duration
	HistoryLimit int
	Log          *slog.Logger
}

// NewSession parses the chapter content and builds a live session
// around it.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("new session: codec is required")
	}
	doc, err := cfg.Codec.Parse(cfg.Content)
	if err != nil {
		return nil, fmt.Errorf("parse chapter content: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("chapter_id", cfg.ChapterID)

	engine := NewEngine(doc, log)
	now := time.Now()
	s := &Session{
		id:        NewID(),
		chapterID: cfg.ChapterID,
		log:       log,
		engine:    engine,
		codec:     cfg.Codec,
		sink:      cfg.Sink,
		history:   NewHistory(cfg.HistoryLimit),
		guard:     NewSyncGuard(cfg.QuietPeriod),
		resize:    NewResizeController(engine, log),
		drag:      NewDragController(engine, log),
		createdAt: now,
		updatedAt: now,
	}
	return s, nil
}

func (s *Session) ID() string        { return s.id }
func (s *Session) ChapterID() string { return s.chapterID }

// Content serializes the current document to exchange-format text.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec.Serialize(s.engine.Doc())
}

// Status is a read-only copy of the session state.
type Status struct {
	ID        string    `json:"session_id"`
	ChapterID string    `json:"chapter_id"`
	Activity  string    `json:"activity"`
	Selection Selection `json:"selection"`
	Size      int       `json:"document_size"`
	WordCount int       `json:"word_count"`
	CanUndo   bool      `json:"can_undo"`
	CanRedo   bool      `json:"can_redo"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle(time.Now())
	return Status{
		ID:        s.id,
		ChapterID: s.chapterID,
		Activity:  s.activity.String(),
		Selection: s.sel,
		Size:      s.engine.Doc().Size(),
		WordCount: WordCount(s.engine.Doc()),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// settle decays a stale Typing activity back to Idle. Callers hold the lock.
func (s *Session) settle(now time.Time) {
	if s.activity == ActivityTyping && now.Sub(s.lastKeystroke) >= s.guard.quiet {
		s.activity = ActivityIdle
	}
}

// SetSelection moves the local selection. A non-empty range marks the
// editor as selecting; a caret returns it to idle unless a pointer
// session is in progress.
func (s *Session) SetSelection(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = Selection{From: from, To: to}.clamp(s.engine.Doc().Size())
	if s.activity == ActivityDragging || s.activity == ActivityResizing {
		return
	}
	if s.sel.IsCaret() {
		s.activity = ActivityIdle
	} else {
		s.activity = ActivitySelecting
	}
}

func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// commit runs after a successful local edit: record history, stamp the
// keystroke clock and hand the new snapshot to the save queue.
func (s *Session) commit(pre *Document, keystroke bool) {
	s.history.Record(pre)
	now := time.Now()
	s.updatedAt = now
	if keystroke {
		s.lastKeystroke = now
		if s.activity == ActivityIdle || s.activity == ActivitySelecting {
			s.activity = ActivityTyping
		}
	}
	s.emit()
}

func (s *Session) emit() {
	if s.sink == nil {
		return
	}
	doc := s.engine.Doc()
	s.sink.Enqueue(s.codec.Serialize(doc), WordCount(doc))
}

// InsertText inserts text at a paragraph position.
func (s *Session) InsertText(pos int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.engine.InsertText(pos, text); err != nil {
		return err
	}
	s.commit(pre, true)
	return nil
}

// DeleteRange removes the given range.
func (s *Session) DeleteRange(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.engine.DeleteRange(Range{From: from, To: to}); err != nil {
		return err
	}
	s.sel = s.sel.clamp(s.engine.Doc().Size())
	s.commit(pre, true)
	return nil
}

// InsertParagraph splices a new paragraph block at a block boundary.
func (s *Session) InsertParagraph(pos int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.engine.InsertBlock(pos, NewParagraph(text)); err != nil {
		return err
	}
	s.commit(pre, true)
	return nil
}

// SetMediaAttrs applies a partial attribute update to the media block at pos.
func (s *Session) SetMediaAttrs(pos int, attrs MediaAttrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.engine.SetAttributes(pos, attrs); err != nil {
		return err
	}
	s.commit(pre, false)
	return nil
}

// Move relocates whole blocks directly (keyboard-driven moves; pointer
// moves go through the drag controller).
func (s *Session) Move(from, to, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.engine.Move(Range{From: from, To: to}, target); err != nil {
		return err
	}
	s.commit(pre, false)
	return nil
}

// InsertMediaPlaceholder inserts a media block whose src is a unique
// placeholder token. The real URL arrives later via SwapMediaSource.
func (s *Session) InsertMediaPlaceholder(pos int, alt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	placeholder := PlaceholderScheme + NewID()
	pre := s.engine.Doc().Clone()
	media := &Media{Src: placeholder, Alt: alt, Align: AlignCenter}
	if err := s.engine.InsertBlock(pos, media); err != nil {
		return "", err
	}
	s.commit(pre, false)
	return placeholder, nil
}

// SwapMediaSource patches the src of the media block carrying the given
// placeholder. The block is found by token, not by position: positions
// captured before the upload finished may have shifted.
func (s *Session) SwapMediaSource(placeholder, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	for _, b := range s.engine.Doc().Blocks {
		if m, ok := b.(*Media); ok && m.Src == placeholder {
			pre := s.engine.Doc().Clone()
			if err := s.engine.SetAttributes(start, MediaAttrs{Src: &url}); err != nil {
				return err
			}
			s.commit(pre, false)
			return nil
		}
		start += b.Size()
	}
	return fmt.Errorf("swap media source: placeholder not found (block deleted?)")
}

// StartResize begins a pointer resize session on the media block at pos.
func (s *Session) StartResize(pos int, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	if err := s.resize.Start(pos, handle); err != nil {
		return err
	}
	s.history.Record(pre)
	s.activity = ActivityResizing
	return nil
}

// SampleResize consumes one pointer-move delta.
func (s *Session) SampleResize(dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resize.Sample(dx, dy); err != nil {
		return err
	}
	s.updatedAt = time.Now()
	return nil
}

// ReleaseResize ends the resize session and persists the final geometry.
func (s *Session) ReleaseResize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.resize.Release()
	s.activity = ActivityIdle
	s.updatedAt = time.Now()
	s.emit()
	return err
}

// StartDrag begins a pointer drag of the block at pos.
func (s *Session) StartDrag(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.drag.Start(pos); err != nil {
		return err
	}
	s.activity = ActivityDragging
	return nil
}

// Drop completes the drag. A drop near the source is a silent no-op.
func (s *Session) Drop(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pre := s.engine.Doc().Clone()
	err := s.drag.Drop(target)
	s.activity = ActivityIdle
	if err != nil {
		return err
	}
	if !docsEqual(pre, s.engine.Doc()) {
		s.commit(pre, false)
	}
	return nil
}

// CancelDrag abandons the drag session.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
	s.activity = ActivityIdle
}

// Undo restores the most recent pre-edit snapshot.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.history.Undo(s.engine.Doc())
	if !ok {
		return false
	}
	s.engine.Replace(doc)
	s.sel = s.sel.clamp(doc.Size())
	s.updatedAt = time.Now()
	s.emit()
	return true
}

// Redo reapplies the most recently undone snapshot.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.history.Redo(s.engine.Doc())
	if !ok {
		return false
	}
	s.engine.Replace(doc)
	s.sel = s.sel.clamp(doc.Size())
	s.updatedAt = time.Now()
	s.emit()
	return true
}

// OfferExternal submits a passive external replacement (background
// refresh, freshly generated content). It applies only when the guard
// allows; otherwise the candidate is retained for TryPending.
func (s *Session) OfferExternal(content string) (GuardDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.settle(now)
	decision := s.guard.Offer(GuardInput{
		Selection:     s.sel,
		Activity:      s.activity,
		LastKeystroke: s.lastKeystroke,
		Current:       s.codec.Serialize(s.engine.Doc()),
		Incoming:      content,
		Now:           now,
	})
	if decision != GuardApply {
		s.log.Info("external replacement suppressed", "decision", string(decision))
		return decision, nil
	}
	if err := s.replaceLocked(content); err != nil {
		return decision, err
	}
	s.log.Info("external replacement applied")
	return decision, nil
}

// ApplyAuthoritative replaces the document unconditionally. Used for
// explicit user requests ("regenerate this chapter") and chapter
// switches; bypasses the guard entirely.
func (s *Session) ApplyAuthoritative(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard.ClearPending()
	return s.replaceLocked(content)
}

// TryPending re-offers the retained suppressed candidate, if any.
// Driven by a periodic tick from the service layer.
func (s *Session) TryPending() (GuardDecision, bool) {
	s.mu.Lock()
	pending, ok := s.guard.Pending()
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	d, err := s.OfferExternal(pending)
	if err != nil {
		return d, true
	}
	if d == GuardApply || d == GuardUnchanged {
		s.mu.Lock()
		s.guard.ClearPending()
		s.mu.Unlock()
	}
	return d, true
}

// replaceLocked parses and swaps in new content wholesale. Malformed
// content is rejected; the live document is never clobbered.
func (s *Session) replaceLocked(content string) error {
	doc, err := s.codec.Parse(content)
	if err != nil {
		s.log.Warn("rejected malformed replacement content", "error", err)
		return err
	}
	pre := s.engine.Doc().Clone()
	s.engine.Replace(doc)
	s.history.Record(pre)
	s.sel = s.sel.clamp(doc.Size())
	s.updatedAt = time.Now()
	s.emit()
	return nil
}

func docsEqual(a, b *Document) bool {
	if len(a.Blocks) != len(b.Blocks) {
		return false
	}
	if a.Size() != b.Size() {
		return false
	}
	for i := range a.Blocks {
		am, aok := a.Blocks[i].(*Media)
		bm, bok := b.Blocks[i].(*Media)
		if aok != bok {
			return false
		}
		if aok && *am != *bm {
			return false
		}
		if !aok {
			ap := a.Blocks[i].(*Paragraph)
			bp := b.Blocks[i].(*Paragraph)
			if ap.Text() != bp.Text() {
				return false
			}
		}
	}
	return true
}
