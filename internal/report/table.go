// Package report renders scores, texts and templates for the console.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// column is a table heading. Right-aligned columns hold numbers.
type column struct {
	title string
	right bool
}

func left(title string) column  { return column{title: title} }
func right(title string) column { return column{title: title, right: true} }

// renderTable lays rows out under cols, sized by display width so umlauts and
// wide characters stay aligned. A dashed rule separates the header.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := range min(len(row), len(cols)) {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	header := make([]string, len(cols))
	rule := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
		rule[i] = strings.Repeat("-", widths[i])
	}
	lines := []string{joinCells(cols, widths, header), strings.Join(rule, columnGap)}
	for _, row := range rows {
		lines = append(lines, joinCells(cols, widths, row))
	}
	return lines
}

func joinCells(cols []column, widths []int, cells []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if c.right {
			out[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			out[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.TrimRight(strings.Join(out, columnGap), " ")
}
