package editor

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// plainCodec is a test codec over plain text: blank lines separate
// paragraphs, NUL bytes mark content that cannot be parsed.
type plainCodec struct{}

func (plainCodec) Serialize(d *Document) string { return d.PlainText() }

func (plainCodec) Parse(content string) (*Document, error) {
	if strings.Contains(content, "\x00") {
		return nil, errors.New("unparseable content")
	}
	doc := NewDocument()
	for _, part := range strings.Split(content, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			doc.Blocks = append(doc.Blocks, NewParagraph(part))
		}
	}
	return doc, nil
}

type recordSink struct {
	mu    sync.Mutex
	snaps []string
	words []int
}

func (s *recordSink) Enqueue(content string, wordCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, content)
	s.words = append(s.words, wordCount)
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func (s *recordSink) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return ""
	}
	return s.snaps[len(s.snaps)-1]
}

func newTestSession(t *testing.T, content string) (*Session, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	s, err := NewSession(Config{
		ChapterID: "ch-1",
		Content:   content,
		Codec:     plainCodec{},
		Sink:      sink,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, sink
}

func TestSessionParsesInitialContent(t *testing.T) {
	s, _ := newTestSession(t, "Alpha\n\nBeta")
	st := s.Status()
	if st.Size != 13 {
		t.Errorf("Size = %d, want 13", st.Size)
	}
	if st.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", st.WordCount)
	}
	if got := s.Content(); got != "Alpha\n\nBeta" {
		t.Errorf("Content = %q, want original text", got)
	}
}

func TestEditCommitsSnapshotToSink(t *testing.T) {
	s, sink := newTestSession(t, "Alpha")

	// Text span of "Alpha" is [1,6); position 6 appends.
	if err := s.InsertText(6, "!"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("sink received %d snapshots, want 1", sink.count())
	}
	if got := sink.last(); got != "Alpha!" {
		t.Errorf("snapshot = %q, want %q", got, "Alpha!")
	}
	st := s.Status()
	if !st.CanUndo {
		t.Error("CanUndo = false after an edit")
	}
	if st.Activity != "typing" {
		t.Errorf("activity = %q, want typing", st.Activity)
	}
}

func TestStaleEditCommitsNothing(t *testing.T) {
	s, sink := newTestSession(t, "Alpha")
	if err := s.InsertText(999, "x"); err == nil {
		t.Fatal("expected stale position error")
	}
	if sink.count() != 0 {
		t.Errorf("sink received %d snapshots after a dropped edit, want 0", sink.count())
	}
	if s.Status().CanUndo {
		t.Error("dropped edit must not enter history")
	}
}

func TestSessionUndoRedo(t *testing.T) {
	s, sink := newTestSession(t, "Alpha")
	if err := s.InsertText(6, " Bravo"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if !s.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := s.Content(); got != "Alpha" {
		t.Errorf("after undo content = %q, want %q", got, "Alpha")
	}
	if !s.Redo() {
		t.Fatal("Redo returned false")
	}
	if got := s.Content(); got != "Alpha Bravo" {
		t.Errorf("after redo content = %q, want %q", got, "Alpha Bravo")
	}
	// Edit, undo and redo each emitted a snapshot.
	if sink.count() != 3 {
		t.Errorf("sink received %d snapshots, want 3", sink.count())
	}
	if s.Redo() {
		t.Error("Redo with empty stack should return false")
	}
}

func TestOfferExternalHeldBySelectionThenApplied(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")
	s.SetSelection(0, 5)

	d, err := s.OfferExternal("Fresh")
	if err != nil {
		t.Fatalf("OfferExternal: %v", err)
	}
	if d != GuardSelectionHeld {
		t.Fatalf("decision = %q, want %q", d, GuardSelectionHeld)
	}
	if got := s.Content(); got != "Alpha" {
		t.Errorf("content replaced despite held selection: %q", got)
	}

	// Selection collapses; the retained candidate applies on re-offer.
	s.SetSelection(0, 0)
	d, ok := s.TryPending()
	if !ok {
		t.Fatal("TryPending found no retained candidate")
	}
	if d != GuardApply {
		t.Fatalf("decision = %q, want %q", d, GuardApply)
	}
	if got := s.Content(); got != "Fresh" {
		t.Errorf("content = %q, want %q", got, "Fresh")
	}
	if _, ok := s.TryPending(); ok {
		t.Error("pending candidate survived its own apply")
	}
}

func TestOfferExternalHeldByRecentTyping(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")
	if err := s.InsertText(6, "!"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	d, err := s.OfferExternal("Fresh")
	if err != nil {
		t.Fatalf("OfferExternal: %v", err)
	}
	if d != GuardRecentTyping {
		t.Fatalf("decision = %q, want %q", d, GuardRecentTyping)
	}
	if got := s.Content(); got != "Alpha!" {
		t.Errorf("content = %q, local edit must win", got)
	}
}

func TestApplyAuthoritativeBypassesGuard(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")
	s.SetSelection(0, 5)
	if _, err := s.OfferExternal("Suppressed"); err != nil {
		t.Fatalf("OfferExternal: %v", err)
	}

	if err := s.ApplyAuthoritative("Regenerated"); err != nil {
		t.Fatalf("ApplyAuthoritative: %v", err)
	}
	if got := s.Content(); got != "Regenerated" {
		t.Errorf("content = %q, want %q", got, "Regenerated")
	}
	if _, ok := s.TryPending(); ok {
		t.Error("authoritative replacement must clear the pending candidate")
	}
	// The replacement is undoable like any other change.
	if !s.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := s.Content(); got != "Alpha" {
		t.Errorf("after undo content = %q, want %q", got, "Alpha")
	}
}

func TestMalformedReplacementRejected(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")
	d, err := s.OfferExternal("bad\x00bytes")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if d != GuardApply {
		t.Fatalf("decision = %q, want %q (guard passed, parse failed)", d, GuardApply)
	}
	if got := s.Content(); got != "Alpha" {
		t.Errorf("content = %q, malformed input must not clobber the document", got)
	}
}

func TestMediaPlaceholderSwap(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")

	placeholder, err := s.InsertMediaPlaceholder(0, "cover art")
	if err != nil {
		t.Fatalf("InsertMediaPlaceholder: %v", err)
	}
	if !strings.HasPrefix(placeholder, PlaceholderScheme) {
		t.Fatalf("placeholder = %q, want %q prefix", placeholder, PlaceholderScheme)
	}

	// Shift the block around before the upload lands; the swap still
	// finds it by token.
	if err := s.InsertParagraph(0, "Intro"); err != nil {
		t.Fatalf("InsertParagraph: %v", err)
	}
	if err := s.SwapMediaSource(placeholder, "https://cdn.example.com/cover.png"); err != nil {
		t.Fatalf("SwapMediaSource: %v", err)
	}

	var media *Media
	for _, b := range s.engine.Doc().Blocks {
		if m, ok := b.(*Media); ok {
			media = m
		}
	}
	if media == nil {
		t.Fatal("media block missing")
	}
	if media.Src != "https://cdn.example.com/cover.png" {
		t.Errorf("Src = %q, want uploaded URL", media.Src)
	}
	if media.Alt != "cover art" {
		t.Errorf("Alt = %q, want %q", media.Alt, "cover art")
	}

	if err := s.SwapMediaSource("pending-upload://gone", "x"); err == nil {
		t.Error("swap of a deleted placeholder should fail")
	}
}

func TestActivityFollowsSelection(t *testing.T) {
	s, _ := newTestSession(t, "Alpha")
	s.SetSelection(1, 4)
	if got := s.Status().Activity; got != "selecting" {
		t.Errorf("activity = %q, want selecting", got)
	}
	s.SetSelection(2, 2)
	if got := s.Status().Activity; got != "idle" {
		t.Errorf("activity = %q, want idle", got)
	}
}

func TestSelectionClampedAfterShrink(t *testing.T) {
	s, _ := newTestSession(t, "Alpha\n\nBeta")
	s.SetSelection(8, 12)
	// Delete the second block entirely; the selection must not dangle.
	if err := s.DeleteRange(7, 13); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	sel := s.Selection()
	if sel.To > s.Status().Size {
		t.Errorf("selection %+v exceeds document size %d", sel, s.Status().Size)
	}
}
