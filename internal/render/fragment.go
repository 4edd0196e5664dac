package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragments are built as node trees and serialized once, so text is escaped
// by the serializer and converted markdown is attached as raw nodes.

func el(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func withAttr(n *html.Node, key, val string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// raw attaches already-serialized markup verbatim.
func raw(s string) *html.Node {
	if s == "" {
		return nil
	}
	return &html.Node{Type: html.RawNode, Data: s}
}

func serialize(nodes ...*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		if n == nil {
			continue
		}
		// strings.Builder never fails and no tree here gives a void
		// element children, so Render cannot return an error.
		_ = html.Render(&sb, n)
	}
	return sb.String()
}
