package editor

import (
	"strings"
	"unicode/utf8"
)

// Align is the horizontal placement of a media block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Mark is an inline formatting flag on a text run.
type Mark string

const (
	MarkBold   Mark = "bold"
	MarkItalic Mark = "italic"
)

// Run is a span of text sharing the same marks.
type Run struct {
	Text  string
	Marks []Mark
}

func (r Run) hasMark(m Mark) bool {
	for _, mm := range r.Marks {
		if mm == m {
			return true
		}
	}
	return false
}

// Block is a unit of document structure. Every block occupies a
// contiguous half-open position range whose width is Size.
type Block interface {
	// Size is the width of the block in the flattened addressing space,
	// including structural overhead. It is never text length alone.
	Size() int
	Clone() Block
}

// Paragraph is a container block holding marked text runs.
// It occupies len(text)+2 positions: one opening token, one position
// per rune, one closing token.
type Paragraph struct {
	Runs []Run
}

func NewParagraph(text string) *Paragraph {
	if text == "" {
		return &Paragraph{}
	}
	return &Paragraph{Runs: []Run{{Text: text}}}
}

func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (p *Paragraph) textLen() int {
	n := 0
	for _, r := range p.Runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

func (p *Paragraph) Size() int { return p.textLen() + 2 }

func (p *Paragraph) Clone() Block {
	runs := make([]Run, len(p.Runs))
	for i, r := range p.Runs {
		runs[i] = Run{Text: r.Text, Marks: append([]Mark(nil), r.Marks...)}
	}
	return &Paragraph{Runs: runs}
}

// Media is a leaf block referencing external content by URL.
// Zero width/height means "use the natural size".
type Media struct {
	Src      string
	Alt      string
	WidthPx  int
	HeightPx int
	Align    Align
	// AspectRatio is the natural width/height ratio, 0 if unknown.
	AspectRatio float64
}

func (m *Media) Size() int { return 1 }

func (m *Media) Clone() Block {
	cp := *m
	return &cp
}

// Document is an ordered sequence of blocks. Positions are assigned by
// pre-order traversal: block i starts where block i-1 ends.
type Document struct {
	Blocks []Block
}

func NewDocument(blocks ...Block) *Document {
	return &Document{Blocks: blocks}
}

// Size is the total width of the document's addressing space.
func (d *Document) Size() int {
	n := 0
	for _, b := range d.Blocks {
		n += b.Size()
	}
	return n
}

func (d *Document) Clone() *Document {
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = b.Clone()
	}
	return &Document{Blocks: blocks}
}

// blockStart returns the start position of block i.
func (d *Document) blockStart(i int) int {
	start := 0
	for j := 0; j < i; j++ {
		start += d.Blocks[j].Size()
	}
	return start
}

// BlockAt resolves the block whose range contains pos. It returns the
// block, its start position and its index.
func (d *Document) BlockAt(pos int) (Block, int, int, bool) {
	start := 0
	for i, b := range d.Blocks {
		end := start + b.Size()
		if pos >= start && pos < end {
			return b, start, i, true
		}
		start = end
	}
	return nil, 0, 0, false
}

// boundaryIndex returns the block index whose start equals pos, or
// len(Blocks) when pos equals the document size. ok is false when pos
// falls inside a block.
func (d *Document) boundaryIndex(pos int) (int, bool) {
	start := 0
	for i, b := range d.Blocks {
		if pos == start {
			return i, true
		}
		start += b.Size()
	}
	if pos == start {
		return len(d.Blocks), true
	}
	return 0, false
}

// PlainText flattens the document to text, one paragraph per block,
// separated by blank lines. Media blocks contribute nothing.
func (d *Document) PlainText() string {
	var parts []string
	for _, b := range d.Blocks {
		if p, ok := b.(*Paragraph); ok {
			parts = append(parts, p.Text())
		}
	}
	return strings.Join(parts, "\n\n")
}

// WordCount counts whitespace-separated words across all paragraphs.
func WordCount(d *Document) int {
	n := 0
	for _, b := range d.Blocks {
		if p, ok := b.(*Paragraph); ok {
			n += len(strings.Fields(p.Text()))
		}
	}
	return n
}

// Codec converts between a Document and its exchange-format text.
// The concrete implementation lives in the markup package.
type Codec interface {
	Serialize(d *Document) string
	Parse(content string) (*Document, error)
}
