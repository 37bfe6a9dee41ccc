package editor

import (
	"fmt"
	"log/slog"
)

// StalePositionError reports an operation that referenced a position no
// longer valid for the current tree. The operation is dropped; the tree
// is never partially mutated from a stale reference.
type StalePositionError struct {
	Op   string
	Pos  int
	Size int
}

func (e *StalePositionError) Error() string {
	return fmt.Sprintf("%s: stale position %d (document size %d)", e.Op, e.Pos, e.Size)
}

// Range is a half-open position range [From, To).
type Range struct {
	From int
	To   int
}

func (r Range) Width() int { return r.To - r.From }

// MediaAttrs carries a partial attribute update for a media block.
// Nil fields are left untouched.
type MediaAttrs struct {
	Src      *string
	Alt      *string
	WidthPx  *int
	HeightPx *int
	Align    *Align
	Ratio    *float64
}

// Engine is the only component allowed to mutate a Document. Every
// operation validates its positions against the current tree, then
// applies atomically; a failed validation leaves the tree untouched.
type Engine struct {
	doc *Document
	log *slog.Logger
}

func NewEngine(doc *Document, log *slog.Logger) *Engine {
	if doc == nil {
		doc = NewDocument()
	}
	return &Engine{doc: doc, log: log}
}

func (e *Engine) Doc() *Document { return e.doc }

// Replace swaps the whole document. Used for chapter switches, external
// replacements and history restores; never merged.
func (e *Engine) Replace(doc *Document) {
	e.doc = doc
}

func (e *Engine) stale(op string, pos int) error {
	err := &StalePositionError{Op: op, Pos: pos, Size: e.doc.Size()}
	if e.log != nil {
		e.log.Warn("dropped stale operation", "op", op, "pos", pos, "doc_size", err.Size)
	}
	return err
}

// InsertBlock splices a block at a block boundary.
func (e *Engine) InsertBlock(pos int, b Block) error {
	i, ok := e.doc.boundaryIndex(pos)
	if !ok {
		return e.stale("insert_block", pos)
	}
	blocks := make([]Block, 0, len(e.doc.Blocks)+1)
	blocks = append(blocks, e.doc.Blocks[:i]...)
	blocks = append(blocks, b)
	blocks = append(blocks, e.doc.Blocks[i:]...)
	e.doc.Blocks = blocks
	return nil
}

// InsertText inserts text inside a paragraph. pos must address a text
// offset within the paragraph's content span.
func (e *Engine) InsertText(pos int, text string) error {
	if text == "" {
		return nil
	}
	b, start, _, ok := e.doc.BlockAt(pos)
	if !ok {
		// Appending at the very end of the last paragraph addresses its
		// closing token, which BlockAt does not cover.
		if pos == e.doc.Size() && pos > 0 {
			b, start, _, ok = e.doc.BlockAt(pos - 1)
		}
		if !ok {
			return e.stale("insert_text", pos)
		}
	}
	p, isPara := b.(*Paragraph)
	if !isPara {
		return e.stale("insert_text", pos)
	}
	off := pos - start - 1
	if off < 0 || off > p.textLen() {
		return e.stale("insert_text", pos)
	}
	p.insertTextAt(off, text)
	return nil
}

// DeleteRange removes content. The range must either lie entirely within
// one paragraph's text span, or cover whole blocks exactly.
func (e *Engine) DeleteRange(r Range) error {
	if r.From > r.To || r.From < 0 || r.To > e.doc.Size() {
		return e.stale("delete", r.From)
	}
	if r.From == r.To {
		return nil
	}

	// Whole-block removal when both ends are boundaries.
	if i, ok := e.doc.boundaryIndex(r.From); ok {
		if j, ok2 := e.doc.boundaryIndex(r.To); ok2 {
			e.doc.Blocks = append(e.doc.Blocks[:i], e.doc.Blocks[j:]...)
			return nil
		}
	}

	// Otherwise both ends must sit inside the same paragraph's text span.
	b, start, _, ok := e.doc.BlockAt(r.From)
	if !ok {
		return e.stale("delete", r.From)
	}
	p, isPara := b.(*Paragraph)
	if !isPara || r.To > start+1+p.textLen() {
		return e.stale("delete", r.From)
	}
	from := r.From - start - 1
	to := r.To - start - 1
	if from < 0 {
		return e.stale("delete", r.From)
	}
	p.deleteTextRange(from, to)
	return nil
}

// SetAttributes updates attributes of the media block starting at pos.
// Each call is a complete, idempotent transaction.
func (e *Engine) SetAttributes(pos int, attrs MediaAttrs) error {
	b, start, _, ok := e.doc.BlockAt(pos)
	if !ok || start != pos {
		return e.stale("set_attributes", pos)
	}
	m, isMedia := b.(*Media)
	if !isMedia {
		return e.stale("set_attributes", pos)
	}
	if attrs.Src != nil {
		m.Src = *attrs.Src
	}
	if attrs.Alt != nil {
		m.Alt = *attrs.Alt
	}
	if attrs.WidthPx != nil {
		m.WidthPx = *attrs.WidthPx
	}
	if attrs.HeightPx != nil {
		m.HeightPx = *attrs.HeightPx
	}
	if attrs.Align != nil {
		m.Align = *attrs.Align
	}
	if attrs.Ratio != nil {
		m.AspectRatio = *attrs.Ratio
	}
	return nil
}

// Move relocates the whole blocks covered by src to target. It is a
// delete followed by an insert: when target lies past the removed range
// the insertion point shifts left by the range width, because the
// deletion already moved everything after it.
func (e *Engine) Move(src Range, target int) error {
	i, ok := e.doc.boundaryIndex(src.From)
	if !ok {
		return e.stale("move", src.From)
	}
	j, ok := e.doc.boundaryIndex(src.To)
	if !ok || j < i {
		return e.stale("move", src.To)
	}
	if target >= src.From && target <= src.To {
		return nil // moving into itself
	}
	if _, ok := e.doc.boundaryIndex(target); !ok {
		return e.stale("move", target)
	}

	moved := append([]Block(nil), e.doc.Blocks[i:j]...)
	rest := append([]Block(nil), e.doc.Blocks[:i]...)
	rest = append(rest, e.doc.Blocks[j:]...)

	remapped := target
	if target > src.To {
		remapped -= src.Width()
	}
	restDoc := &Document{Blocks: rest}
	k, ok := restDoc.boundaryIndex(remapped)
	if !ok {
		return e.stale("move", target)
	}
	blocks := make([]Block, 0, len(rest)+len(moved))
	blocks = append(blocks, rest[:k]...)
	blocks = append(blocks, moved...)
	blocks = append(blocks, rest[k:]...)
	e.doc.Blocks = blocks
	return nil
}

func (p *Paragraph) insertTextAt(off int, text string) {
	if len(p.Runs) == 0 {
		p.Runs = []Run{{Text: text}}
		return
	}
	runStart := 0
	for i := range p.Runs {
		r := &p.Runs[i]
		rl := len([]rune(r.Text))
		if off <= runStart+rl {
			runes := []rune(r.Text)
			at := off - runStart
			r.Text = string(runes[:at]) + text + string(runes[at:])
			return
		}
		runStart += rl
	}
	// Past the end: append to the last run.
	p.Runs[len(p.Runs)-1].Text += text
}

func (p *Paragraph) deleteTextRange(from, to int) {
	var out []Run
	runStart := 0
	for _, r := range p.Runs {
		runes := []rune(r.Text)
		runEnd := runStart + len(runes)
		keepFrom := clamp(from-runStart, 0, len(runes))
		keepTo := clamp(to-runStart, 0, len(runes))
		kept := string(runes[:keepFrom]) + string(runes[keepTo:])
		if kept != "" {
			out = append(out, Run{Text: kept, Marks: r.Marks})
		}
		runStart = runEnd
	}
	p.Runs = out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
