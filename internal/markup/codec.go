// Package markup implements the chapter exchange format: one HTML
// element per block, media geometry carried as inline style
// declarations. Parsing is deliberately forgiving: a missing or
// malformed style falls back to the node's natural size.
package markup

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
)

// MalformedContentError reports external content that could not be
// turned into a document. The caller must reject the replacement and
// keep the local document untouched.
type MalformedContentError struct {
	Reason string
}

func (e *MalformedContentError) Error() string {
	return "malformed content: " + e.Reason
}

// Codec implements editor.Codec over the HTML exchange format.
type Codec struct{}

func New() *Codec { return &Codec{} }

// Serialize renders the document, one element per block.
func (c *Codec) Serialize(d *editor.Document) string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch blk := b.(type) {
		case *editor.Paragraph:
			writeParagraph(&sb, blk)
		case *editor.Media:
			writeMedia(&sb, blk)
		}
	}
	return sb.String()
}

func writeParagraph(sb *strings.Builder, p *editor.Paragraph) {
	sb.WriteString("<p>")
	for _, r := range p.Runs {
		openTag, closeTag := markTags(r.Marks)
		sb.WriteString(openTag)
		sb.WriteString(html.EscapeString(r.Text))
		sb.WriteString(closeTag)
	}
	sb.WriteString("</p>")
}

func markTags(marks []editor.Mark) (string, string) {
	var openTag, closeTag string
	for _, m := range marks {
		switch m {
		case editor.MarkBold:
			openTag += "<strong>"
			closeTag = "</strong>" + closeTag
		case editor.MarkItalic:
			openTag += "<em>"
			closeTag = "</em>" + closeTag
		}
	}
	return openTag, closeTag
}

func writeMedia(sb *strings.Builder, m *editor.Media) {
	var style []string
	if m.WidthPx > 0 {
		style = append(style, fmt.Sprintf("width:%dpx", m.WidthPx))
	}
	if m.HeightPx > 0 {
		style = append(style, fmt.Sprintf("height:%dpx", m.HeightPx))
	}
	switch m.Align {
	case editor.AlignLeft:
		style = append(style, "float:left")
	case editor.AlignRight:
		style = append(style, "float:right")
	default:
		style = append(style, "display:block", "margin-left:auto", "margin-right:auto")
	}
	sb.WriteString(`<img src="`)
	sb.WriteString(html.EscapeString(m.Src))
	sb.WriteString(`" alt="`)
	sb.WriteString(html.EscapeString(m.Alt))
	sb.WriteString(`" style="`)
	sb.WriteString(strings.Join(style, ";"))
	sb.WriteString(`"/>`)
}

// Parse builds a document from exchange-format text. Plain text with no
// elements splits into paragraphs on blank lines, so round-tripping a
// two-paragraph chapter is stable.
func (c *Codec) Parse(content string) (*editor.Document, error) {
	if strings.TrimSpace(content) == "" {
		return editor.NewDocument(), nil
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, &MalformedContentError{Reason: err.Error()}
	}

	doc := editor.NewDocument()
	body := findBody(root)
	if body == nil {
		body = root
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			switch {
			case ch.Type == html.TextNode:
				appendTextParagraphs(doc, ch.Data)
			case ch.Type == html.ElementNode && ch.Data == "img":
				doc.Blocks = append(doc.Blocks, parseMedia(ch))
			case ch.Type == html.ElementNode && isBlockTag(ch.Data):
				parseBlockElement(doc, ch)
			case ch.Type == html.ElementNode:
				walk(ch)
			}
		}
	}
	walk(body)

	if len(doc.Blocks) == 0 {
		return nil, &MalformedContentError{Reason: "no blocks recognized"}
	}
	return doc, nil
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "li":
		return true
	}
	return false
}

// parseBlockElement turns one block-level element into a paragraph,
// extracting any images it wraps as sibling media blocks.
func parseBlockElement(doc *editor.Document, n *html.Node) {
	para := &editor.Paragraph{}
	var collect func(*html.Node, []editor.Mark)
	collect = func(n *html.Node, marks []editor.Mark) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			switch {
			case ch.Type == html.TextNode:
				if ch.Data != "" {
					para.Runs = append(para.Runs, editor.Run{
						Text:  ch.Data,
						Marks: append([]editor.Mark(nil), marks...),
					})
				}
			case ch.Type == html.ElementNode && ch.Data == "img":
				doc.Blocks = append(doc.Blocks, parseMedia(ch))
			case ch.Type == html.ElementNode && (ch.Data == "strong" || ch.Data == "b"):
				collect(ch, append(marks, editor.MarkBold))
			case ch.Type == html.ElementNode && (ch.Data == "em" || ch.Data == "i"):
				collect(ch, append(marks, editor.MarkItalic))
			case ch.Type == html.ElementNode:
				collect(ch, marks)
			}
		}
	}
	collect(n, nil)
	normalizeRuns(para)
	if len(para.Runs) > 0 {
		doc.Blocks = append(doc.Blocks, para)
	}
}

// normalizeRuns trims paragraph-edge whitespace that only exists
// because of markup indentation.
func normalizeRuns(p *editor.Paragraph) {
	for len(p.Runs) > 0 {
		p.Runs[0].Text = strings.TrimLeft(p.Runs[0].Text, " \t\r\n")
		if p.Runs[0].Text != "" {
			break
		}
		p.Runs = p.Runs[1:]
	}
	for len(p.Runs) > 0 {
		last := len(p.Runs) - 1
		p.Runs[last].Text = strings.TrimRight(p.Runs[last].Text, " \t\r\n")
		if p.Runs[last].Text != "" {
			break
		}
		p.Runs = p.Runs[:last]
	}
}

func appendTextParagraphs(doc *editor.Document, text string) {
	for _, part := range splitParagraphs(text) {
		doc.Blocks = append(doc.Blocks, editor.NewParagraph(part))
	}
}

// splitParagraphs breaks plain text on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, part := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMedia(n *html.Node) *editor.Media {
	m := &editor.Media{Align: editor.AlignCenter}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "src":
			m.Src = attr.Val
		case "alt":
			m.Alt = attr.Val
		case "style":
			applyStyle(m, attr.Val)
		}
	}
	if m.WidthPx > 0 && m.HeightPx > 0 {
		m.AspectRatio = float64(m.WidthPx) / float64(m.HeightPx)
	}
	return m
}

// applyStyle reads geometry out of an inline style declaration.
// Anything unparseable is skipped so the node keeps its natural size.
func applyStyle(m *editor.Media, style string) {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(v))
		switch k {
		case "width":
			if px, ok := parsePx(v); ok {
				m.WidthPx = px
			}
		case "height":
			if px, ok := parsePx(v); ok {
				m.HeightPx = px
			}
		case "float":
			switch v {
			case "left":
				m.Align = editor.AlignLeft
			case "right":
				m.Align = editor.AlignRight
			}
		}
	}
}

func parsePx(v string) (int, bool) {
	v = strings.TrimSuffix(v, "px")
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
