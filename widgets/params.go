package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one row of the parameter page
type Param struct {
	Name      string
	Base      int // value as set
	Effective int // value after modulation
	Min, Max  int
}

// Bar renders v in [lo, hi] as a bar of width cells
func Bar(v, lo, hi, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if hi > lo {
		filled = (v - lo) * width / (hi - lo)
	}
	filled = max(min(filled, width), 0)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// RenderParams renders the parameter rows. The selected row is drawn with
// selStyle; a modulated value shows its effective value after an arrow.
func RenderParams(params []Param, selected int, style, selStyle lipgloss.Style) string {
	var lines []string
	for i, p := range params {
		value := fmt.Sprintf("%5d", p.Base)
		if p.Effective != p.Base {
			value += fmt.Sprintf(" → %-5d", p.Effective)
		} else {
			value += "        "
		}
		line := fmt.Sprintf("%-10s %s %s", p.Name, Bar(p.Effective, p.Min, p.Max, 16), value)
		if i == selected {
			line = selStyle.Render("> " + line)
		} else {
			line = style.Render("  " + line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// MatrixView is what RenderMatrix draws: one bank's cells for a set of columns
type MatrixView struct {
	Rows      []string // source row labels
	Cols      []string // destination column labels
	Cells     [][]bool // [row][col]
	Active    []bool   // per source row
	CursorRow int
	CursorCol int
}

// RenderMatrix renders cells as a table with row and column labels
func RenderMatrix(v MatrixView, on, off, cursorOn, cursorOff rune, hot lipgloss.Style) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("%-8s", ""))
	for _, c := range v.Cols {
		out.WriteString(fmt.Sprintf("%-7s", c))
	}
	out.WriteString("\n")

	for r, label := range v.Rows {
		if r < len(v.Active) && v.Active[r] {
			label = hot.Render(fmt.Sprintf("%-8s", label))
		} else {
			label = fmt.Sprintf("%-8s", label)
		}
		out.WriteString(label)
		for c := range v.Cols {
			set := r < len(v.Cells) && c < len(v.Cells[r]) && v.Cells[r][c]
			sym := off
			switch {
			case r == v.CursorRow && c == v.CursorCol && set:
				sym = cursorOn
			case r == v.CursorRow && c == v.CursorCol:
				sym = cursorOff
			case set:
				sym = on
			}
			out.WriteString(fmt.Sprintf("%-7c", sym))
		}
		if r < len(v.Rows)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}
