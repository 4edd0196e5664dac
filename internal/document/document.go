package document

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Document is the free-form text captured from one uploaded file.
// It is immutable once extracted.
type Document struct {
	Filename string // Original upload name
	MIMEType string // Detected or declared content type
	Text     string // Extracted text
	Pages    int    // Page count for paged formats (0 if N/A)
}

// Empty reports whether the document carries no usable text.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// Hash returns the SHA-256 of the extracted text.
func (d Document) Hash() string {
	return ContentHashHex([]byte(d.Text))
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
