package pdfx

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	ruleThickness = 2.0
	minRuleLength = 10.0
	lineTolerance = 2.0
)

// Grid is a ruled table: column boundaries left to right and row boundaries
// top to bottom in PDF user space.
type Grid struct {
	Xs []float64
	Ys []float64
}

func (g Grid) Cols() int { return len(g.Xs) - 1 }
func (g Grid) Rows() int { return len(g.Ys) - 1 }

// DetectGrid derives a ruled grid from the drawn rectangles of a page. Thin
// rectangles are treated as rules; boxes contribute their four edges. At least
// a 2x2 cell grid is required.
func DetectGrid(rects []pdf.Rect) (Grid, bool) {
	var xs, ys []float64
	for _, r := range rects {
		w := math.Abs(r.Max.X - r.Min.X)
		h := math.Abs(r.Max.Y - r.Min.Y)
		switch {
		case h <= ruleThickness && w >= minRuleLength:
			ys = append(ys, (r.Min.Y+r.Max.Y)/2)
		case w <= ruleThickness && h >= minRuleLength:
			xs = append(xs, (r.Min.X+r.Max.X)/2)
		case w > ruleThickness && h > ruleThickness:
			xs = append(xs, r.Min.X, r.Max.X)
			ys = append(ys, r.Min.Y, r.Max.Y)
		}
	}
	xs = cluster(xs)
	ys = cluster(ys)
	if len(xs) < 3 || len(ys) < 3 {
		return Grid{}, false
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
	return Grid{Xs: xs, Ys: ys}, true
}

// cluster sorts values ascending and merges those within lineTolerance.
func cluster(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	out := []float64{vals[0]}
	for _, v := range vals[1:] {
		if v-out[len(out)-1] > lineTolerance {
			out = append(out, v)
		}
	}
	return out
}

// Fill places glyphs into grid cells. Glyphs outside the grid are ignored.
func (g Grid) Fill(texts []pdf.Text) [][]string {
	cells := make([][][]pdf.Text, g.Rows())
	for i := range cells {
		cells[i] = make([][]pdf.Text, g.Cols())
	}
	for _, t := range texts {
		col := -1
		for i := 0; i < g.Cols(); i++ {
			if t.X >= g.Xs[i] && t.X < g.Xs[i+1] {
				col = i
				break
			}
		}
		row := -1
		for j := 0; j < g.Rows(); j++ {
			if t.Y <= g.Ys[j] && t.Y > g.Ys[j+1] {
				row = j
				break
			}
		}
		if col < 0 || row < 0 {
			continue
		}
		cells[row][col] = append(cells[row][col], t)
	}

	out := make([][]string, g.Rows())
	for r := range cells {
		out[r] = make([]string, g.Cols())
		for c := range cells[r] {
			out[r][c] = joinGlyphs(cells[r][c])
		}
	}
	return out
}

func joinGlyphs(glyphs []pdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		if math.Abs(glyphs[i].Y-glyphs[j].Y) > lineTolerance {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})
	var b strings.Builder
	prev := glyphs[0]
	b.WriteString(prev.S)
	for _, t := range glyphs[1:] {
		switch {
		case math.Abs(t.Y-prev.Y) > lineTolerance:
			b.WriteByte(' ')
		case t.X-(prev.X+prev.W) > math.Max(prev.FontSize*0.25, wordGap):
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prev = t
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
