// Package outline defines the slide outline: an ordered list of typed slide
// descriptors, its lenient JSON wire form, and per-item content hashes.
package outline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/repair"
)

// Outline is the ordered slide list. Position is presentation order.
type Outline []Item

// Wires returns the wire form of every item.
func (o Outline) Wires() []Wire {
	out := make([]Wire, len(o))
	for i, it := range o {
		out[i] = it.Wire()
	}
	return out
}

// FromWires converts wire items without any normalization.
func FromWires(ws []Wire) Outline {
	out := make(Outline, len(ws))
	for i, w := range ws {
		out[i] = FromWire(w)
	}
	return out
}

// Clone returns a deep copy that shares no memory with o.
func (o Outline) Clone() Outline {
	if o == nil {
		return nil
	}
	return FromWires(o.Wires())
}

func (o Outline) MarshalJSON() ([]byte, error) {
	ws := o.Wires()
	if ws == nil {
		ws = []Wire{}
	}
	return json.Marshal(ws)
}

func (o *Outline) UnmarshalJSON(b []byte) error {
	var ws []Wire
	if err := json.Unmarshal(b, &ws); err != nil {
		return err
	}
	*o = FromWires(ws)
	return nil
}

// Hash returns the content hash of one item.
func Hash(it Item) string {
	b, err := json.Marshal(it.Wire())
	if err != nil {
		// Wire values built from typed items always marshal.
		panic(fmt.Sprintf("outline: marshal %s: %v", it.Template(), err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Hashes returns the content hash of every item, in order.
func (o Outline) Hashes() []string {
	out := make([]string, len(o))
	for i, it := range o {
		out[i] = Hash(it)
	}
	return out
}

// Titles returns each item's heading.
func (o Outline) Titles() []string {
	out := make([]string, len(o))
	for i, it := range o {
		out[i] = it.Heading()
	}
	return out
}

// document accepts a bare array or an object wrapping it.
type document []Wire

func (d *document) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Slides  []Wire `json:"slides"`
			Outline []Wire `json:"outline"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		switch {
		case wrapped.Slides != nil:
			*d = wrapped.Slides
		case wrapped.Outline != nil:
			*d = wrapped.Outline
		default:
			return fmt.Errorf("outline object has neither slides nor outline")
		}
		return nil
	}
	var ws []Wire
	if err := json.Unmarshal(b, &ws); err != nil {
		return err
	}
	*d = ws
	return nil
}

// Decode parses AI output into wire items through the repair layer. The
// result is not yet normalized.
func Decode(data string, opts repair.Options, sink audit.Sink) ([]Wire, error) {
	var doc document
	if err := repair.Unmarshal(data, &doc, opts, sink); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, &repair.OutlineParseError{Class: repair.ClassShape, Message: "outline has no slides"}
	}
	return []Wire(doc), nil
}
