package parser

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docdeck/internal/document"
)

// Parser converts raw upload bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Content types accepted at the extraction boundary.
const (
	MIMEPDF      = "application/pdf"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEHTML     = "text/html"
)

// SupportedExtensions maps file extensions this service can handle to their MIME type.
var SupportedExtensions = map[string]string{
	".txt":      MIMEText,
	".text":     MIMEText,
	".md":       MIMEMarkdown,
	".markdown": MIMEMarkdown,
	".pdf":      MIMEPDF,
	".docx":     MIMEDOCX,
	".html":     MIMEHTML,
	".htm":      MIMEHTML,
}

// Options tunes individual parsers.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForMIME returns the parser for a content type. Parameters such as
// "; charset=utf-8" are ignored.
func ForMIME(contentType string, opts Options) (Parser, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case MIMEText:
		return &TextParser{}, nil
	case MIMEMarkdown, "text/x-markdown":
		return &MarkdownParser{}, nil
	case MIMEPDF:
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case MIMEDOCX:
		return &DOCXParser{}, nil
	case MIMEHTML:
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mt, ok := SupportedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return ForMIME(mt, opts)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// MIMEFor returns the MIME type registered for a filename's extension.
func MIMEFor(filename string) string {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract picks a parser by filename and returns the document, stamping the
// detected MIME type.
func Extract(r io.Reader, filename string, opts Options) (*document.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	doc.MIMEType = MIMEFor(filename)
	return doc, nil
}
