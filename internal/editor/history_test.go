package editor

import "testing"

func TestUndoRedoRestoresExactSnapshot(t *testing.T) {
	h := NewHistory(10)
	eng := NewEngine(NewDocument(NewParagraph("hello")), nil)

	pre := eng.Doc().Clone()
	h.Record(pre)
	if err := eng.InsertText(6, " world"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	edited := eng.Doc().Clone()

	doc, ok := h.Undo(eng.Doc())
	if !ok {
		t.Fatal("Undo returned false")
	}
	eng.Replace(doc)
	if got := eng.Doc().Blocks[0].(*Paragraph).Text(); got != "hello" {
		t.Errorf("after undo text = %q, want %q", got, "hello")
	}

	doc, ok = h.Redo(eng.Doc())
	if !ok {
		t.Fatal("Redo returned false")
	}
	eng.Replace(doc)
	if !docsEqual(edited, eng.Doc()) {
		t.Error("redo did not restore the edited snapshot")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := NewHistory(10)
	a := NewDocument(NewParagraph("a"))
	b := NewDocument(NewParagraph("b"))

	h.Record(a)
	if _, ok := h.Undo(b); !ok {
		t.Fatal("Undo returned false")
	}
	if !h.CanRedo() {
		t.Fatal("expected redo available after undo")
	}
	h.Record(a)
	if h.CanRedo() {
		t.Error("Record should clear the redo stack")
	}
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Record(NewDocument(NewParagraph("x")))
	}
	n := 0
	cur := NewDocument()
	for {
		doc, ok := h.Undo(cur)
		if !ok {
			break
		}
		cur = doc
		n++
	}
	if n != 3 {
		t.Errorf("undo depth = %d, want 3", n)
	}
}

func TestUndoSnapshotIsIsolatedFromLaterEdits(t *testing.T) {
	h := NewHistory(10)
	eng := NewEngine(NewDocument(NewParagraph("stable")), nil)

	h.Record(eng.Doc())
	// Mutate the live document after recording; the stored snapshot
	// must not see it.
	if err := eng.InsertText(7, "!"); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	doc, ok := h.Undo(eng.Doc())
	if !ok {
		t.Fatal("Undo returned false")
	}
	if got := doc.Blocks[0].(*Paragraph).Text(); got != "stable" {
		t.Errorf("snapshot text = %q, want %q", got, "stable")
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	h := NewHistory(10)
	if _, ok := h.Undo(NewDocument()); ok {
		t.Error("Undo on empty history should return false")
	}
	if _, ok := h.Redo(NewDocument()); ok {
		t.Error("Redo on empty history should return false")
	}
}
