// Package importer converts uploaded manuscript files into editable
// documents. Each format gets its own importer; all of them produce the
// same block model the editing engine works on.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
)

// Importer converts raw manuscript bytes into a Document.
type Importer interface {
	Import(r io.Reader, filename string) (*editor.Document, error)
}

// SupportedExtensions lists the manuscript formats this service accepts.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
	".pdf":      true,
}

// Options tweak format-specific behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the importer matching a filename.
func ForFile(filename string, opts Options) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	case ".pdf":
		return &PDFImporter{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}
