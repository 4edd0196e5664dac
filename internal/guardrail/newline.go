package guardrail

import (
	"reflect"
	"strings"

	"github.com/dgallion1/docdeck/internal/outline"
)

// literalNewline is the two-character sequence backslash + n.
const literalNewline = `\n`

// skipFields holds text that is legitimately full of backslashes. Formula is
// TeX source, where \nu, \neq and \nabla start with the same two bytes as a
// literal newline.
var skipFields = map[string]bool{
	"Formula": true,
}

// normalizeNewlines walks every string reachable from w and turns literal
// "\n" sequences into real line breaks.
func normalizeNewlines(w *outline.Wire) {
	walkStrings(reflect.ValueOf(w).Elem())
}

func walkStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			walkStrings(v.Elem())
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() || skipFields[t.Field(i).Name] {
				continue
			}
			walkStrings(v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkStrings(v.Index(i))
		}
	case reflect.String:
		if s := v.String(); v.CanSet() && strings.Contains(s, literalNewline) {
			v.SetString(strings.ReplaceAll(s, literalNewline, "\n"))
		}
	}
}
