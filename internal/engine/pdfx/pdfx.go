// Package pdfx holds the ledongthuc/pdf plumbing shared by the text-layer,
// table-layer and lattice engines.
package pdfx

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoPages = errors.New("pdf has no pages")

// Glyph widths are not reported by GetTextByRow; estimate from a 10pt font.
const approxCharWidth = 5.0

// CellGap is the horizontal gap (points) that separates two cells on a row.
const CellGap = 14.0

// Open parses doc from memory.
func Open(doc []byte) (*pdf.Reader, error) {
	if len(doc) == 0 {
		return nil, errors.New("empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, ErrNoPages
	}
	return r, nil
}

// PageLimit clamps maxPages (0 = unlimited) to the document page count.
func PageLimit(numPages, maxPages int) int {
	if maxPages > 0 && maxPages < numPages {
		return maxPages
	}
	return numPages
}

// Title reads /Info /Title from the trailer, if present.
func Title(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

// Cell is a horizontally contiguous run of text on one row.
type Cell struct {
	Text   string
	X0, X1 float64
}

// Row is one visual line, top to bottom order is preserved by the caller.
type Row struct {
	Y     float64
	Cells []Cell
}

// Line renders a row with single spaces inside cells and two spaces between
// cells, which keeps column boundaries visible to text heuristics.
func (r Row) Line() string {
	parts := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "  ")
}

// PageRows reads the text rows of a page top to bottom.
func PageRows(p pdf.Page) ([]Row, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		r := BuildRow(float64(row.Position), row.Content)
		if len(r.Cells) > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// BuildRow groups left-to-right text chunks into cells.
func BuildRow(y float64, texts []pdf.Text) Row {
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []Cell
	var cur *Cell
	for _, t := range sorted {
		s := strings.TrimSpace(t.S)
		if s == "" {
			continue
		}
		width := t.W
		if width <= 0 {
			width = float64(len([]rune(t.S))) * approxCharWidth
		}
		if cur != nil && t.X-cur.X1 <= CellGap {
			if t.X-cur.X1 > wordGap || strings.HasPrefix(t.S, " ") {
				cur.Text += " "
			}
			cur.Text += s
			if t.X+width > cur.X1 {
				cur.X1 = t.X + width
			}
			continue
		}
		cells = append(cells, Cell{Text: s, X0: t.X, X1: t.X + width})
		cur = &cells[len(cells)-1]
	}
	return Row{Y: y, Cells: cells}
}

// Chunks closer than this are kerned pieces of the same word.
const wordGap = 1.0

// RowsText joins rendered rows with newlines.
func RowsText(rows []Row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if l := r.Line(); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
