package importer

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
)

// MarkdownImporter handles Markdown manuscripts using goldmark.
// Headings become bold paragraphs (the block model has no heading
// variant) and images become media blocks.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*editor.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	doc := editor.NewDocument()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(string(node.Text(src)))
			if title != "" {
				doc.Blocks = append(doc.Blocks, &editor.Paragraph{
					Runs: []editor.Run{{Text: title, Marks: []editor.Mark{editor.MarkBold}}},
				})
			}
		default:
			appendMarkdownBlock(doc, n, src)
		}
	}
	return doc, nil
}

// appendMarkdownBlock flattens one top-level block, pulling out any
// images it contains as standalone media blocks.
func appendMarkdownBlock(doc *editor.Document, n ast.Node, src []byte) {
	var media []*editor.Media
	txt := extractText(n, src, &media)
	if txt != "" {
		doc.Blocks = append(doc.Blocks, editor.NewParagraph(txt))
	}
	for _, m := range media {
		doc.Blocks = append(doc.Blocks, m)
	}
}

// extractText gets the text content of a goldmark AST node, collecting
// image nodes on the side.
func extractText(n ast.Node, src []byte, media *[]*editor.Media) string {
	var buf bytes.Buffer
	if img, ok := n.(*ast.Image); ok {
		*media = append(*media, &editor.Media{
			Src:   string(img.Destination),
			Alt:   string(img.Text(src)),
			Align: editor.AlignCenter,
		})
		return ""
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src, media))
		}
	}
	// Childless blocks (code blocks and the like) keep their text in
	// Lines rather than child nodes.
	if buf.Len() == 0 && n.FirstChild() == nil && n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	return strings.TrimSpace(buf.String())
}
