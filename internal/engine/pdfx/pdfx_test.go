package pdfx

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRow(t *testing.T) {
	row := BuildRow(700, []pdf.Text{
		{X: 200, S: "1,000.00"},
		{X: 50, S: "Cash"},
		{X: 72, S: "and"},
	})
	require.Len(t, row.Cells, 2)
	assert.Equal(t, "Cash and", row.Cells[0].Text)
	assert.Equal(t, "1,000.00", row.Cells[1].Text)
	assert.Equal(t, "Cash and  1,000.00", row.Line())

	kerned := BuildRow(700, []pdf.Text{{X: 50, S: "Tot"}, {X: 65.5, S: "al"}})
	require.Len(t, kerned.Cells, 1)
	assert.Equal(t, "Total", kerned.Cells[0].Text)

	assert.Empty(t, BuildRow(0, []pdf.Text{{X: 1, S: "   "}}).Cells)
}

func TestPageLimit(t *testing.T) {
	assert.Equal(t, 10, PageLimit(10, 0))
	assert.Equal(t, 3, PageLimit(10, 3))
	assert.Equal(t, 2, PageLimit(2, 5))
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
	_, err = Open([]byte("not a pdf"))
	assert.Error(t, err)
}

func cellRow(texts ...string) Row {
	r := Row{}
	for i, s := range texts {
		r.Cells = append(r.Cells, Cell{Text: s, X0: float64(i * 100)})
	}
	return r
}

func TestDetectStreamTables(t *testing.T) {
	t.Run("single run", func(t *testing.T) {
		rows := []Row{
			cellRow("Balance Sheet"),
			cellRow("Cash", "1,000.00"),
			cellRow("Receivables", "250.00"),
			cellRow("Total Assets", "1,250.00"),
			cellRow("Notes follow"),
			cellRow("a", "b", "c"),
		}
		tables := DetectStreamTables(rows)
		require.Len(t, tables, 1)
		assert.Len(t, tables[0].Rows, 3)
		assert.Equal(t, []string{"Cash", "1,000.00"}, tables[0].Rows[0])
		assert.InDelta(t, 100, tables[0].Accuracy, 0.001)
	})

	t.Run("ragged run folds extra cells", func(t *testing.T) {
		rows := []Row{
			cellRow("Unit", "Tenant"),
			cellRow("101", "Acme", "Corp"),
			cellRow("102", "Beta"),
		}
		tables := DetectStreamTables(rows)
		require.Len(t, tables, 1)
		assert.Equal(t, []string{"101", "Acme Corp"}, tables[0].Rows[1])
		assert.InDelta(t, 66.666, tables[0].Accuracy, 0.01)
	})

	t.Run("no tables", func(t *testing.T) {
		assert.Empty(t, DetectStreamTables([]Row{cellRow("one"), cellRow("two")}))
	})
}

func hrule(y float64) pdf.Rect {
	return pdf.Rect{Min: pdf.Point{X: 50, Y: y - 0.25}, Max: pdf.Point{X: 250, Y: y + 0.25}}
}

func vrule(x float64) pdf.Rect {
	return pdf.Rect{Min: pdf.Point{X: x - 0.25, Y: 660}, Max: pdf.Point{X: x + 0.25, Y: 700}}
}

func TestDetectGridAndFill(t *testing.T) {
	rects := []pdf.Rect{hrule(700), hrule(680), hrule(660), vrule(50), vrule(150), vrule(250)}
	grid, ok := DetectGrid(rects)
	require.True(t, ok)
	assert.Equal(t, 2, grid.Rows())
	assert.Equal(t, 2, grid.Cols())

	cells := grid.Fill([]pdf.Text{
		{X: 60, Y: 690, W: 5, S: "A"},
		{X: 66, Y: 690, W: 5, S: "B"},
		{X: 160, Y: 690, W: 5, S: "1"},
		{X: 60, Y: 670, W: 5, S: "C"},
		{X: 300, Y: 670, W: 5, S: "x"},
	})
	assert.Equal(t, [][]string{{"AB", "1"}, {"C", ""}}, cells)
}

func TestDetectGrid_TooFewRules(t *testing.T) {
	_, ok := DetectGrid([]pdf.Rect{hrule(700), hrule(680), vrule(50), vrule(150)})
	assert.False(t, ok)
}
