package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
)

// TextImporter handles plain text: blank lines separate paragraphs.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*editor.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := editor.NewDocument()
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			doc.Blocks = append(doc.Blocks, editor.NewParagraph(current.String()))
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
