package main

import (
	"io"
	"strings"

	"golang.org/x/text/width"
)

const columnGap = 2

// table renders aligned columns. Alignment counts East Asian wide
// characters as two cells so Chinese labels line up in a terminal. A
// table without header prints rows only.
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) error {
	all := append([][]string{t.header}, t.rows...)
	cols := 0
	for _, row := range all {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for _, row := range all {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	var b strings.Builder
	line := func(cells []string) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(widths)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-displayWidth(cell)+columnGap))
		}
		b.WriteString("\n")
	}

	if len(t.header) > 0 {
		line(t.header)
	}
	for _, row := range t.rows {
		line(row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// displayWidth is the number of terminal cells s occupies
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
