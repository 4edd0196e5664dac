// Package repair turns a possibly malformed JSON document produced by the AI
// into a decoded value, applying at most one bounded repair per failure class.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/dgallion1/docdeck/internal/audit"
)

// Class names a family of parse failures.
type Class string

const (
	// ClassEscape is an invalid backslash escape inside a string.
	ClassEscape Class = "escape"
	// ClassControl is a raw control character inside a string.
	ClassControl Class = "control_character"
	// ClassStructural is any other syntax error. Only repaired when enabled.
	ClassStructural Class = "structural"
	// ClassShape means the JSON was valid but did not fit the target type.
	ClassShape Class = "shape"
	// ClassUnknown is a syntax error with no repair strategy.
	ClassUnknown Class = "unknown"
)

const component = "repair"

// OutlineParseError is the terminal failure of a repair attempt.
type OutlineParseError struct {
	Class   Class
	Message string
	Input   string // truncated
	Err     error
}

func (e *OutlineParseError) Error() string {
	return fmt.Sprintf("outline parse error (%s): %s", e.Class, e.Message)
}

func (e *OutlineParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is (or wraps) an OutlineParseError.
func IsParseError(err error) bool {
	var pe *OutlineParseError
	return errors.As(err, &pe)
}

// Options tunes the repair layer.
type Options struct {
	// Structural enables one jsonrepair pass for syntax errors outside the
	// escape and control-character classes.
	Structural bool
}

// Unmarshal decodes data into v. On a syntax error it classifies the parser
// message and retries once per class with the matching fix. Every repair that
// leads to a successful decode is reported on sink as ai-repaired.
func Unmarshal(data string, v any, opts Options, sink audit.Sink) error {
	fixed, applied, err := Repair(data, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return &OutlineParseError{
			Class:   ClassShape,
			Message: err.Error(),
			Input:   clip(data),
			Err:     err,
		}
	}
	for _, c := range applied {
		audit.Notef(sink, audit.CategoryRepaired, component, "%s", notice(c))
	}
	return nil
}

// Repair returns a syntactically valid version of data and the classes that
// were repaired to get there, in order.
func Repair(data string, opts Options) (string, []Class, error) {
	s := strings.TrimSpace(data)
	if s == "" {
		return "", nil, &OutlineParseError{Class: ClassUnknown, Message: "empty input"}
	}

	var applied []Class
	tried := make(map[Class]bool, 3)
	for {
		err := probe(s)
		if err == nil {
			return s, applied, nil
		}
		c := Classify(err)
		if c == ClassUnknown && opts.Structural {
			c = ClassStructural
		}
		if c == ClassUnknown || tried[c] {
			return "", applied, &OutlineParseError{
				Class:   c,
				Message: err.Error(),
				Input:   clip(data),
				Err:     err,
			}
		}
		tried[c] = true

		switch c {
		case ClassEscape:
			s = DoubleBackslashes(s)
		case ClassControl:
			s = ReplaceControlChars(s)
		case ClassStructural:
			out, rerr := jsonrepair.JSONRepair(s)
			if rerr != nil {
				return "", applied, &OutlineParseError{
					Class:   c,
					Message: rerr.Error(),
					Input:   clip(data),
					Err:     errors.Join(err, rerr),
				}
			}
			s = out
		}
		applied = append(applied, c)
	}
}

func probe(s string) error {
	var raw any
	return json.Unmarshal([]byte(s), &raw)
}

// Classify maps a decoder error onto a failure class.
func Classify(err error) Class {
	var se *json.SyntaxError
	if !errors.As(err, &se) {
		return ClassUnknown
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "in string escape code"),
		strings.Contains(msg, "hexadecimal character escape"):
		return ClassEscape
	case strings.Contains(msg, "in string literal"):
		return ClassControl
	default:
		return ClassUnknown
	}
}

// DoubleBackslashes doubles every backslash that is not already part of an
// escaped backslash pair or an escaped quote.
func DoubleBackslashes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			sb.WriteByte(c)
			sb.WriteByte(s[i+1])
			i++
			continue
		}
		sb.WriteString(`\\`)
	}
	return sb.String()
}

// ReplaceControlChars replaces newline, carriage return and tab with spaces.
func ReplaceControlChars(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

func notice(c Class) string {
	switch c {
	case ClassEscape:
		return "AI output contained invalid escape sequences; backslashes were doubled"
	case ClassControl:
		return "AI output contained raw control characters; line breaks inside text may have been flattened"
	default:
		return "AI output was structurally malformed and was auto-corrected"
	}
}

func clip(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
