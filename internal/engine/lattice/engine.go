// Package lattice is the optional ruled-table detector. Tables are recovered
// from the rectangles and rules drawn on each page; text outside grids is still
// returned so the result stays comparable with the other engines.
package lattice

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/engine/pdfx"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

const methodLattice = "lattice"

type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

func (e *Engine) Name() string { return constants.EngineLattice }

func (e *Engine) Extract(ctx context.Context, doc []byte, opts extract.Options) extract.Result {
	return extract.Guard(ctx, e.Name(), e.logger, func(ctx context.Context) (*extract.Payload, error) {
		if len(doc) == 0 {
			return nil, extract.ErrEmptyDocument
		}
		r, err := pdfx.Open(doc)
		if err != nil {
			return nil, err
		}
		total := r.NumPage()
		limit := pdfx.PageLimit(total, opts.MaxPages)

		pages := make([]extract.Page, 0, limit)
		var tables []extract.Table
		for i := 1; i <= limit; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p := r.Page(i)
			if p.V.IsNull() {
				pages = append(pages, extract.Page{PageNumber: i})
				continue
			}
			var text string
			if rows, err := pdfx.PageRows(p); err == nil {
				text = pdfx.RowsText(rows)
			}
			pages = append(pages, extract.Page{PageNumber: i, Text: text})

			content := p.Content()
			grid, ok := pdfx.DetectGrid(content.Rect)
			if !ok {
				continue
			}
			cells := grid.Fill(content.Text)
			tables = append(tables, extract.Table{
				PageNumber: i,
				Rows:       cells,
				Method:     methodLattice,
				Accuracy:   FillRatio(cells),
			})
		}

		e.logger.Debug("lattice tables", "tables", len(tables), "pages", limit)
		payload := extract.NewPayload(pages, tables, total)
		payload.Metadata.Title = pdfx.Title(r)
		return payload, nil
	})
}

// FillRatio is the percentage of grid cells that received text.
func FillRatio(cells [][]string) float64 {
	total, filled := 0, 0
	for _, row := range cells {
		for _, c := range row {
			total++
			if strings.TrimSpace(c) != "" {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total) * 100
}
