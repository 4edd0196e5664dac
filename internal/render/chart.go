package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docdeck/internal/outline"
)

const (
	chartW      = 800.0
	chartH      = 400.0
	chartPadX   = 40.0
	chartPadTop = 40.0
	chartPadBot = 48.0
)

// barChartSVG draws the series as inline SVG bars. Negative values are drawn
// as zero-height bars with their label.
func barChartSVG(c outline.Chart) string {
	vals := c.Dataset.Values
	n := len(vals)
	if n == 0 {
		return ""
	}
	maxV := 0.0
	for _, v := range vals {
		maxV = max(maxV, v)
	}
	if maxV <= 0 {
		maxV = 1
	}

	slot := (chartW - 2*chartPadX) / float64(n)
	barW := slot * 0.6
	plotH := chartH - chartPadTop - chartPadBot
	base := chartH - chartPadBot

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %g %g" width="100%%" height="100%%" role="img">`, chartW, chartH)
	if c.Dataset.Label != "" {
		fmt.Fprintf(&sb, `<text class="series" x="%g" y="24">%s</text>`, chartPadX, html.EscapeString(c.Dataset.Label))
	}
	for i, v := range vals {
		h := max(v, 0) / maxV * plotH
		x := chartPadX + slot*float64(i) + (slot-barW)/2
		y := base - h
		fmt.Fprintf(&sb, `<rect class="bar" x="%.1f" y="%.1f" width="%.1f" height="%.1f"></rect>`, x, y, barW, h)
		fmt.Fprintf(&sb, `<text class="value" x="%.1f" y="%.1f" text-anchor="middle">%s</text>`,
			x+barW/2, y-8, strconv.FormatFloat(v, 'f', -1, 64))
		label := ""
		if i < len(c.Labels) {
			label = c.Labels[i]
		}
		fmt.Fprintf(&sb, `<text class="label" x="%.1f" y="%.1f" text-anchor="middle">%s</text>`,
			x+barW/2, base+28, html.EscapeString(label))
	}
	fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="currentColor"></line>`,
		chartPadX, base, chartW-chartPadX, base)
	sb.WriteString(`</svg>`)
	return sb.String()
}
