package render

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docdeck/internal/outline"
)

//go:embed themes/*.yaml
var builtinThemes embed.FS

var (
	ErrUnknownTheme = errors.New("unknown theme")
	ErrUnknownMode  = errors.New("unknown theme mode")
)

// TemplateNotFoundError means the active theme has no skeleton for a template.
type TemplateNotFoundError struct {
	Theme    string
	Template outline.Template
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q is not defined in theme %q", e.Template, e.Theme)
}

// Selection is the (theme, mode) pair chosen for a run.
type Selection struct {
	Theme string `json:"theme"`
	Mode  string `json:"mode"`
}

// ThemeInfo describes a loaded theme.
type ThemeInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Modes     []string `json:"modes"`
	Templates []string `json:"templates"`
}

type themeFile struct {
	ID        string                       `yaml:"id"`
	Name      string                       `yaml:"name"`
	Modes     map[string]map[string]string `yaml:"modes"`
	Layout    string                       `yaml:"layout"`
	Templates map[string]string            `yaml:"templates"`
}

type theme struct {
	info      ThemeInfo
	modeVars  map[string]string // mode -> CSS custom property declarations
	layout    skeleton
	templates map[outline.Template]skeleton
}

// loadThemes parses every *.yaml file in fsys.
func loadThemes(fsys fs.FS) (map[string]*theme, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	themes := make(map[string]*theme, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read theme %s: %w", name, err)
		}
		t, err := parseTheme(data)
		if err != nil {
			return nil, fmt.Errorf("theme %s: %w", name, err)
		}
		if _, dup := themes[t.info.ID]; dup {
			return nil, fmt.Errorf("theme %s: duplicate id %q", name, t.info.ID)
		}
		themes[t.info.ID] = t
	}
	if len(themes) == 0 {
		return nil, errors.New("no themes found")
	}
	return themes, nil
}

func builtin() (map[string]*theme, error) {
	sub, err := fs.Sub(builtinThemes, "themes")
	if err != nil {
		return nil, err
	}
	return loadThemes(sub)
}

func parseTheme(data []byte) (*theme, error) {
	var f themeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if f.ID == "" {
		return nil, errors.New("missing id")
	}
	if len(f.Modes) == 0 {
		return nil, errors.New("no modes")
	}
	if strings.TrimSpace(f.Layout) == "" {
		return nil, errors.New("missing layout")
	}

	t := &theme{
		info:      ThemeInfo{ID: f.ID, Name: f.Name},
		modeVars:  make(map[string]string, len(f.Modes)),
		layout:    compile(f.Layout),
		templates: make(map[outline.Template]skeleton, len(f.Templates)),
	}
	if !t.layout.has("BODY") {
		return nil, errors.New("layout has no {{BODY}} placeholder")
	}
	for mode, vars := range f.Modes {
		t.modeVars[mode] = cssVars(vars)
		t.info.Modes = append(t.info.Modes, mode)
	}
	sort.Strings(t.info.Modes)

	for name, body := range f.Templates {
		tmpl := outline.Template(name)
		if !tmpl.Valid() {
			return nil, fmt.Errorf("unknown template %q", name)
		}
		t.templates[tmpl] = compile(body)
	}
	for _, tmpl := range outline.Templates {
		if _, ok := t.templates[tmpl]; ok {
			t.info.Templates = append(t.info.Templates, string(tmpl))
		}
	}
	return t, nil
}

func cssVars(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s: %s;", k, vars[k])
	}
	return sb.String()
}

var placeholderRe = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// skeleton is a template body split into literal text and placeholder
// segments, so substitution is a single pass that never rescans values.
type skeleton []segment

type segment struct {
	literal string
	key     string
}

func compile(s string) skeleton {
	var sk skeleton
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			sk = append(sk, segment{literal: s[last:m[0]]})
		}
		sk = append(sk, segment{key: s[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(s) {
		sk = append(sk, segment{literal: s[last:]})
	}
	return sk
}

func (sk skeleton) has(key string) bool {
	for _, seg := range sk {
		if seg.key == key {
			return true
		}
	}
	return false
}

// fill replaces every placeholder occurrence with its value. Missing keys
// render as empty strings.
func (sk skeleton) fill(vals map[string]string) string {
	var sb strings.Builder
	for _, seg := range sk {
		if seg.key == "" {
			sb.WriteString(seg.literal)
			continue
		}
		sb.WriteString(vals[seg.key])
	}
	return sb.String()
}
