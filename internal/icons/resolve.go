package icons

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/dgallion1/docdeck/internal/llm"
)

const (
	// DefaultRetranslations is how many AI re-translations are tried after
	// the exact name misses.
	DefaultRetranslations = 2
	// DefaultName is the generic icon tried once the chain is exhausted.
	DefaultName = "info"
)

// DefaultSVG is returned when even DefaultName cannot be fetched.
const DefaultSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><circle cx="12" cy="12" r="10"/><path d="M12 16v-4"/><path d="M12 8h.01"/></svg>`

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-+`)
	validName    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Normalize converts a hint into icon-name form: lowercase, [a-z0-9-] only,
// at most 50 characters.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = invalidChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// ValidName reports whether name matches [a-z0-9-]+.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Translator proposes another icon name for a hint. tried lists names that
// already missed.
type Translator interface {
	Translate(ctx context.Context, hint string, tried []string) (string, error)
}

// AITranslator asks the text-generation service for an icon name.
type AITranslator struct {
	Gen llm.Generator
}

func (t AITranslator) Translate(ctx context.Context, hint string, tried []string) (string, error) {
	out, err := t.Gen.Generate(ctx, llm.Request{Prompt: llm.BuildIconPrompt(hint, tried), Stage: llm.StageIcon})
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(llm.StripCodeFence(out)), "\n")
	return Normalize(strings.Trim(line, "`\"' ")), nil
}

// Resolver runs the fallback chain: exact name, up to Retranslations AI
// re-translations, DefaultName, then DefaultSVG. Resolve never fails.
type Resolver struct {
	fetcher        Fetcher
	translator     Translator
	retranslations int
	log            *slog.Logger

	cache sync.Map // name -> svg
}

func NewResolver(f Fetcher, t Translator, retranslations int, log *slog.Logger) *Resolver {
	if retranslations < 0 {
		retranslations = DefaultRetranslations
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		fetcher:        f,
		translator:     t,
		retranslations: retranslations,
		log:            log,
	}
}

// Resolution reports how a hint was resolved.
type Resolution struct {
	SVG      string
	Name     string
	Tried    []string
	Fallback bool
}

// Resolve returns SVG markup for hint. It is safe for concurrent use.
func (r *Resolver) Resolve(ctx context.Context, hint string) Resolution {
	var tried []string
	attempt := func(name string) (string, bool) {
		if name == "" {
			return "", false
		}
		for _, t := range tried {
			if t == name {
				return "", false
			}
		}
		tried = append(tried, name)
		svg, err := r.fetch(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.log.Warn("icon fetch failed", "name", name, "error", err)
			}
			return "", false
		}
		return svg, true
	}

	if svg, ok := attempt(Normalize(hint)); ok {
		return Resolution{SVG: svg, Name: tried[len(tried)-1], Tried: tried}
	}

	if r.translator != nil {
		for i := 0; i < r.retranslations; i++ {
			name, err := r.translator.Translate(ctx, hint, tried)
			if err != nil {
				r.log.Warn("icon re-translation failed", "hint", hint, "attempt", i+1, "error", err)
				continue
			}
			if svg, ok := attempt(Normalize(name)); ok {
				return Resolution{SVG: svg, Name: tried[len(tried)-1], Tried: tried}
			}
		}
	}

	r.log.Info("icon fell back to default", "hint", hint, "tried", tried)
	if svg, ok := attempt(DefaultName); ok {
		return Resolution{SVG: svg, Name: DefaultName, Tried: tried, Fallback: true}
	}
	return Resolution{SVG: DefaultSVG, Name: DefaultName, Tried: tried, Fallback: true}
}

func (r *Resolver) fetch(ctx context.Context, name string) (string, error) {
	if v, ok := r.cache.Load(name); ok {
		return v.(string), nil
	}
	svg, err := r.fetcher.Fetch(ctx, name)
	if err != nil {
		return "", err
	}
	r.cache.Store(name, svg)
	return svg, nil
}
