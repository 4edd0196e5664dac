package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Deck is a finished run ready to persist.
type Deck struct {
	RunID    string
	Source   string
	Theme    string
	Mode     string
	Titles   []string
	Slides   []string
	Outline  json.RawMessage
	Finished time.Time
}

// Manifest indexes a persisted deck.
type Manifest struct {
	RunID    string          `json:"run_id"`
	Source   string          `json:"source,omitempty"`
	Theme    string          `json:"theme"`
	Mode     string          `json:"mode"`
	Slides   []ManifestSlide `json:"slides"`
	Finished time.Time       `json:"finished_at"`
}

type ManifestSlide struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Key   string `json:"key"`
}

// RunPrefix is the key prefix under which a run's artifacts live.
func RunPrefix(runID string) string {
	return "runs/" + runID + "/"
}

// SlideKey names the artifact for the zero-based slide index.
func SlideKey(runID string, index int) string {
	return fmt.Sprintf("%sslide-%03d.html", RunPrefix(runID), index+1)
}

// WriteDeck stores every slide, the outline and a manifest. The manifest is
// written last so its presence marks a complete deck.
func WriteDeck(ctx context.Context, s Store, d Deck) (Manifest, error) {
	m := Manifest{
		RunID:    d.RunID,
		Source:   d.Source,
		Theme:    d.Theme,
		Mode:     d.Mode,
		Slides:   make([]ManifestSlide, 0, len(d.Slides)),
		Finished: d.Finished,
	}
	for i, html := range d.Slides {
		key := SlideKey(d.RunID, i)
		if err := s.Put(ctx, key, []byte(html), "text/html; charset=utf-8"); err != nil {
			return Manifest{}, fmt.Errorf("write slide %d: %w", i+1, err)
		}
		title := ""
		if i < len(d.Titles) {
			title = d.Titles[i]
		}
		m.Slides = append(m.Slides, ManifestSlide{Index: i, Title: title, Key: key})
	}
	if len(d.Outline) > 0 {
		if err := s.Put(ctx, RunPrefix(d.RunID)+"outline.json", d.Outline, "application/json"); err != nil {
			return Manifest{}, fmt.Errorf("write outline: %w", err)
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := s.Put(ctx, RunPrefix(d.RunID)+"manifest.json", data, "application/json"); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// ReadManifest loads a persisted deck's manifest.
func ReadManifest(ctx context.Context, s Store, runID string) (Manifest, error) {
	var m Manifest
	data, err := s.Get(ctx, RunPrefix(runID)+"manifest.json")
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
