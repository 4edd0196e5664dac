// Package infographic draws diagrams through the text-generation service and
// sanitizes the returned SVG so it scales with and composites over the slide.
package infographic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/docdeck/internal/llm"
)

// ErrNoSVG means the drawing collaborator returned no usable <svg> element.
var ErrNoSVG = errors.New("no svg element in response")

// DefaultViewBox is injected when an SVG has neither a viewBox nor numeric
// width and height.
const DefaultViewBox = "0 0 800 600"

// Drawer produces raw SVG markup for a diagram description.
type Drawer interface {
	Draw(ctx context.Context, description string) (string, error)
}

// AIDrawer asks the text-generation service to draw the diagram.
type AIDrawer struct {
	Gen llm.Generator
}

func (d AIDrawer) Draw(ctx context.Context, description string) (string, error) {
	out, err := d.Gen.Generate(ctx, llm.Request{Prompt: llm.BuildInfographicPrompt(description), Stage: llm.StageInfographic})
	if err != nil {
		return "", err
	}
	return ExtractSVG(out)
}

// ExtractSVG returns the first <svg>…</svg> span of s.
func ExtractSVG(s string) (string, error) {
	s = llm.StripCodeFence(s)
	lower := strings.ToLower(s)
	start := strings.Index(lower, "<svg")
	end := strings.LastIndex(lower, "</svg>")
	if start < 0 || end < start {
		return "", ErrNoSVG
	}
	return s[start : end+len("</svg>")], nil
}

// Sanitize forces percentage sizing, injects a viewBox when missing, removes
// opaque full-size backgrounds, and drops scripts and event handlers.
func Sanitize(svg string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(svg), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", fmt.Errorf("parse svg: %w", err)
	}
	var root *html.Node
	for _, n := range nodes {
		if root = findSVG(n); root != nil {
			break
		}
	}
	if root == nil {
		return "", ErrNoSVG
	}
	root.Parent = nil
	root.PrevSibling = nil
	root.NextSibling = nil

	vbW, vbH := fixRoot(root)
	stripUnsafe(root)
	removeBackgrounds(root, vbW, vbH)

	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return "", fmt.Errorf("render svg: %w", err)
	}
	return sb.String(), nil
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findSVG(c); s != nil {
			return s
		}
	}
	return nil
}

// fixRoot rewrites the root attributes and returns the viewBox size.
func fixRoot(root *html.Node) (float64, float64) {
	width, _ := getAttr(root, "width")
	height, _ := getAttr(root, "height")
	viewBox, ok := getAttr(root, "viewBox")
	if !ok || strings.TrimSpace(viewBox) == "" {
		w, werr := parseLength(width)
		h, herr := parseLength(height)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			viewBox = "0 0 " + formatNum(w) + " " + formatNum(h)
		} else {
			viewBox = DefaultViewBox
		}
		setAttr(root, "viewBox", viewBox)
	}
	setAttr(root, "width", "100%")
	setAttr(root, "height", "100%")
	if _, ok := getAttr(root, "preserveAspectRatio"); !ok {
		setAttr(root, "preserveAspectRatio", "xMidYMid meet")
	}
	if style, ok := getAttr(root, "style"); ok {
		if cleaned := stripBackgroundStyle(style); cleaned == "" {
			removeAttr(root, "style")
		} else {
			setAttr(root, "style", cleaned)
		}
	}

	f := strings.Fields(strings.ReplaceAll(viewBox, ",", " "))
	if len(f) != 4 {
		return 0, 0
	}
	w, _ := strconv.ParseFloat(f[2], 64)
	h, _ := strconv.ParseFloat(f[3], 64)
	return w, h
}

// removeBackgrounds deletes rect elements that cover the whole canvas with an
// opaque fill. Only direct children of the root and of top-level groups are
// considered.
func removeBackgrounds(root *html.Node, vbW, vbH float64) {
	var scan func(parent *html.Node, depth int)
	scan = func(parent *html.Node, depth int) {
		for c := parent.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode {
				switch c.Data {
				case "rect":
					if isBackgroundRect(c, vbW, vbH) {
						parent.RemoveChild(c)
					}
				case "g":
					if depth == 0 {
						scan(c, depth+1)
					}
				}
			}
			c = next
		}
	}
	scan(root, 0)
}

func isBackgroundRect(n *html.Node, vbW, vbH float64) bool {
	for _, k := range []string{"x", "y"} {
		if v, ok := getAttr(n, k); ok {
			if f, err := parseLength(v); err != nil || f != 0 {
				return false
			}
		}
	}
	if !coversAxis(n, "width", vbW) || !coversAxis(n, "height", vbH) {
		return false
	}
	fill, ok := getAttr(n, "fill")
	if !ok {
		// Unset fill is black.
		return true
	}
	fill = strings.ToLower(strings.TrimSpace(fill))
	return fill != "none" && fill != "transparent"
}

func coversAxis(n *html.Node, key string, full float64) bool {
	v, ok := getAttr(n, key)
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	if v == "100%" {
		return true
	}
	f, err := parseLength(v)
	return err == nil && full > 0 && f >= full
}

func stripUnsafe(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "foreignObject") {
			n.RemoveChild(c)
		} else {
			stripUnsafe(c)
		}
		c = next
	}
	if n.Type != html.ElementNode {
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		if (a.Key == "href" || a.Key == "xlink:href" || (a.Namespace == "xlink" && a.Key == "href")) &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func stripBackgroundStyle(style string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "background" || prop == "background-color" {
			continue
		}
		kept = append(kept, decl)
	}
	return strings.Join(kept, "; ")
}

func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	return strconv.ParseFloat(s, 64)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}
