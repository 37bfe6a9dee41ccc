package importer

import (
	"io"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
	"github.com/Aravindmodala/Bookology-sub001/internal/markup"
)

// HTMLImporter handles HTML manuscripts. HTML is already the exchange
// format, so import delegates to the markup codec and inherits its
// tolerant style handling.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (*editor.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return markup.New().Parse(string(src))
}
