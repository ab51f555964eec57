package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/tui/themes"
)

// margin is the blank gutter on each side of the table.
const margin = 1

// headerLine is the screen row of the column headers.
const headerLine = 1

// canvas is the table renderer. The table pushes a view after every change
// and the model draws from the last one.
type canvas struct {
	view    layout.View
	renders int
	drawn   bool
}

func (c *canvas) Render(v layout.View) {
	c.view = v
	c.renders++
	c.drawn = true
}

// span is where a visible column sits, relative to the table's left edge.
// The last cell of a span holds the divider slot.
type span struct {
	key   string
	start int
	width int
	edge  bool
}

func spans(v layout.View) []span {
	out := make([]span, 0, len(v.Columns))
	x := 0
	for i := range v.Columns {
		c := &v.Columns[i]
		if !c.Visible() || c.Width <= 0 {
			continue
		}
		out = append(out, span{key: c.Key, start: x, width: c.Width, edge: v.Dividers.ResizeEdge[c.Key]})
		x += c.Width
	}
	return out
}

// hit maps a table-relative x on the header line to a column and the part
// of the header cell under it.
func hit(v layout.View, x int) (string, layout.Target, bool) {
	for _, s := range spans(v) {
		if x < s.start || x >= s.start+s.width {
			continue
		}
		if s.edge && x == s.start+s.width-1 {
			return s.key, layout.TargetResizeHandle, true
		}
		return s.key, layout.TargetHeader, true
	}
	return "", layout.TargetHeader, false
}

// fit pads or truncates s to exactly w cells.
func fit(s string, w int, right bool) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > w {
		if w == 1 {
			return "…"
		}
		return string(r[:w-1]) + "…"
	}
	pad := strings.Repeat(" ", w-len(r))
	if right {
		return pad + s
	}
	return s + pad
}

// painter draws a table view as terminal lines.
type painter struct {
	theme  themes.Theme
	right  map[string]bool
	styles map[string]rowStyle
}

// slot is the divider cell closing span i.
func (p painter) slot(v layout.View, ss []span, i int) string {
	if i+1 < len(ss) && v.Dividers.DividerBefore[ss[i+1].key] {
		return p.theme.Divider.Render("│")
	}
	return " "
}

func (p painter) header(v layout.View, focus, dragging string) string {
	ss := spans(v)
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", margin))
	for i, s := range ss {
		label := ""
		for _, c := range v.Columns {
			if c.Key == s.key {
				label = c.Label
				break
			}
		}
		text := fit(label, s.width-1, p.right[s.key])
		switch s.key {
		case dragging:
			text = p.theme.DragTarget.Render(text)
		case focus:
			text = p.theme.Focused.Render(text)
		default:
			text = p.theme.Header.Render(text)
		}
		b.WriteString(text)
		b.WriteString(p.slot(v, ss, i))
	}
	return b.String()
}

func (p painter) rule(v layout.View) string {
	return strings.Repeat(" ", margin) + p.theme.Divider.Render(strings.Repeat("─", v.FrameWidth))
}

func (p painter) row(v layout.View, r layout.Row) string {
	ss := spans(v)
	if r.Colspan {
		return strings.Repeat(" ", margin) + p.spanned(v, ss, r)
	}

	texts := make(map[string]string, len(r.Cells))
	for _, c := range r.Cells {
		texts[c.Key] = c.Text
	}
	var b strings.Builder
	for i, s := range ss {
		b.WriteString(fit(texts[s.key], s.width-1, p.right[s.key]))
		b.WriteString(p.slot(v, ss, i))
	}

	line := b.String()
	switch {
	case r.Disabled:
		line = p.theme.Disabled.Render(line)
	case p.styles[r.ID] == styleExcluded:
		line = p.theme.Excluded.Render(line)
	default:
		line = p.theme.Normal.Render(line)
	}
	return strings.Repeat(" ", margin) + line
}

// spanned draws a colspan row. A cell without a key runs across the whole
// frame; keyed cells sit under their column wherever it currently is.
func (p painter) spanned(v layout.View, ss []span, r layout.Row) string {
	style := p.styles[r.ID]
	if style == styleBlank || len(r.Cells) == 0 {
		return ""
	}

	out := []rune(strings.Repeat(" ", v.FrameWidth))
	for _, c := range r.Cells {
		if c.Key == "" {
			copy(out, []rune(fit(c.Text, v.FrameWidth, false)))
			continue
		}
		for _, s := range ss {
			if s.key == c.Key {
				copy(out[s.start:], []rune(fit(c.Text, s.width-1, p.right[c.Key])))
			}
		}
	}

	line := string(out)
	switch style {
	case styleGroup:
		return p.theme.Group.Render(line)
	case styleSubtotal:
		return p.theme.Subtotal.Render(line)
	default:
		return p.theme.Total.Render(line)
	}
}

func (p painter) title(title, detail string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Repeat(" ", margin),
		p.theme.Title.Render(title),
		"  ",
		p.theme.Subtitle.Render(detail),
	)
}
