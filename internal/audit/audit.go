// Package audit is the user-visible message log. Stages receive a Sink
// explicitly instead of writing to shared state, so each stage can be
// exercised with its own recorder.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Category distinguishes why an entry was recorded.
type Category string

const (
	// CategoryRepaired marks AI content that was auto-corrected.
	CategoryRepaired Category = "ai-repaired"
	// CategoryPolicy marks a change forced by a deck policy.
	CategoryPolicy Category = "policy-forced"
	// CategoryAttention marks something the operator should look at.
	CategoryAttention Category = "needs-attention"
	// CategoryInfo is progress information.
	CategoryInfo Category = "info"
	// CategoryError records a stage failure.
	CategoryError Category = "error"
)

// Entry is one audit record.
type Entry struct {
	Time      time.Time `json:"time"`
	Category  Category  `json:"category"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Sink receives audit entries.
type Sink interface {
	Record(e Entry)
}

// Notef records a formatted entry on s. A nil sink is a no-op.
func Notef(s Sink, cat Category, component, format string, args ...any) {
	if s == nil {
		return
	}
	s.Record(Entry{
		Time:      time.Now(),
		Category:  cat,
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Log is an in-memory, concurrency-safe Sink.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of all entries in record order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns entries recorded at or after offset n, for incremental polling.
func (l *Log) Since(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Count returns the number of entries with the given category.
func (l *Log) Count(cat Category) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Category == cat {
			n++
		}
	}
	return n
}

// Len returns the total number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Tee fans every entry out to all sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Record(e Entry) {
	for _, s := range t {
		if s != nil {
			s.Record(e)
		}
	}
}

// Slog mirrors entries into a structured logger.
func Slog(log *slog.Logger) Sink {
	return slogSink{log: log}
}

type slogSink struct {
	log *slog.Logger
}

func (s slogSink) Record(e Entry) {
	level := slog.LevelInfo
	switch e.Category {
	case CategoryAttention:
		level = slog.LevelWarn
	case CategoryError:
		level = slog.LevelError
	}
	s.log.Log(context.Background(), level, e.Message, "category", string(e.Category), "component", e.Component)
}

// Discard drops all entries.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Entry) {}
