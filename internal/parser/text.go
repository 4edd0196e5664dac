package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docdeck/internal/document"
)

// TextParser handles plain text files. Runs of blank lines collapse into a
// single paragraph break.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &document.Document{
		Filename: filename,
		MIMEType: MIMEText,
		Text:     strings.Join(paragraphs, "\n\n"),
	}, nil
}
