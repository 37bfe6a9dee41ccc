package editor

import "time"

// HistoryEntry is a whole-document snapshot taken before an edit.
type HistoryEntry struct {
	Snapshot *Document
	At       time.Time
}

// History holds undo/redo stacks of whole-document snapshots. Deltas
// would be cheaper but snapshots are simple and chapter-length
// documents are small.
type History struct {
	undo  []HistoryEntry
	redo  []HistoryEntry
	limit int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{limit: limit}
}

// Record pushes the pre-edit snapshot onto the undo stack and clears
// the redo stack: a new edit invalidates any previously undone future.
func (h *History) Record(pre *Document) {
	h.undo = append(h.undo, HistoryEntry{Snapshot: pre.Clone(), At: time.Now()})
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

// Undo pops the most recent pre-edit snapshot, pushing current onto the
// redo stack. Returns false when there is nothing to undo.
func (h *History) Undo(current *Document) (*Document, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	entry := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, HistoryEntry{Snapshot: current.Clone(), At: time.Now()})
	return entry.Snapshot, true
}

// Redo pops the most recently undone snapshot, pushing current back
// onto the undo stack.
func (h *History) Redo(current *Document) (*Document, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	entry := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, HistoryEntry{Snapshot: current.Clone(), At: time.Now()})
	return entry.Snapshot, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }
