// Package svg renders the collection graph as an accessible inline SVG.
package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/shopledger/shopledger/internal/reports"
)

// Chart defaults.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

// Opts customises the chart renderer.
type Opts struct {
	Title       string
	Description string
	Width       int
	Height      int
	Padding     float64
	Ticks       int
	Stroke      string
	Fill        string
	ShowDots    bool
}

type point struct {
	x, y  float64
	label string
}

// Collections renders the daily collection graph as a line chart. An empty
// graph produces a chart with only the axes and a "no data" caption.
func Collections(graph []reports.GraphPoint, opts Opts) (template.HTML, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := opts.Ticks
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	plotW := float64(width) - 2*padding
	plotH := float64(height) - 2*padding
	if plotW <= 0 || plotH <= 0 {
		return "", fmt.Errorf("svg: viewport %dx%d too small", width, height)
	}

	top := 0.0
	for _, p := range graph {
		top = math.Max(top, p.Amount)
	}
	if top == 0 {
		top = 1
	}
	baseline := padding + plotH

	points := make([]point, len(graph))
	for i, p := range graph {
		x := padding + plotW/2
		if len(graph) > 1 {
			x = padding + plotW*float64(i)/float64(len(graph)-1)
		}
		points[i] = point{x: x, y: baseline - math.Max(p.Amount, 0)/top*plotH, label: p.Date}
	}

	titleID := slug(opts.Title) + "-title"
	descID := slug(opts.Title) + "-desc"
	stroke := orDefault(opts.Stroke, "#0f766e")
	axis := "#475569"

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(orDefault(opts.Title, "Collections")))
	fmt.Fprintf(&b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(orDefault(opts.Description, "Daily payments collected")))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := baseline - ratio*plotH
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#e2e8f0" stroke-dasharray="2,4" aria-hidden="true"></line>`, padding, y, padding+plotW, y)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, padding-6, y+4, axis, tick(top*ratio))
	}
	fmt.Fprintf(&b, `<g stroke="%s" aria-label="Axes"><line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line><line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line></g>`,
		axis, padding, padding, padding, baseline, padding, baseline, padding+plotW, baseline)

	if len(points) == 0 {
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="12" text-anchor="middle">No collections in this period</text>`, padding+plotW/2, padding+plotH/2, axis)
		b.WriteString("</svg>")
		return template.HTML(b.String()), nil
	}

	line := pathOf(points)
	if fill := orDefault(opts.Fill, "rgba(15,118,110,0.12)"); fill != "none" {
		fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`,
			line, points[len(points)-1].x, baseline, points[0].x, baseline, fill)
	}
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"></path>`, line, stroke)

	every := labelStride(len(points))
	for i, p := range points {
		if opts.ShowDots {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s: %s</title></circle>`,
				p.x, p.y, stroke, template.HTMLEscapeString(p.label), reports.FormatPlain(graph[i].Amount))
		}
		if i%every == 0 || i == len(points)-1 {
			fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
				p.x, baseline+14, axis, template.HTMLEscapeString(p.label))
		}
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func pathOf(points []point) string {
	var sb strings.Builder
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s%.2f %.2f", cmd, p.x, p.y)
	}
	return sb.String()
}

// labelStride thins x-axis labels so long sparse ranges stay legible.
func labelStride(n int) int {
	const maxLabels = 10
	if n <= maxLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / maxLabels))
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func slug(title string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(title)))
	s = strings.Trim(s, "-")
	if s == "" {
		return "chart"
	}
	return s
}

func tick(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 10_000_000:
		return fmt.Sprintf("%.1fCr", v/10_000_000)
	case abs >= 100_000:
		return fmt.Sprintf("%.1fL", v/100_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
