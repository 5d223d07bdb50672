// Package tablelayer is the baseline table-focused engine. It reads the same
// positioned text as the text-layer engine and additionally detects
// whitespace-aligned (stream) tables.
package tablelayer

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/engine/pdfx"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

const methodStream = "stream"

type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

func (e *Engine) Name() string { return constants.EngineTableLayer }

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
			rows, err := pdfx.PageRows(p)
			if err != nil {
				e.logger.Debug("table layer rows failed", "page", i, "error", err)
				pages = append(pages, extract.Page{PageNumber: i})
				continue
			}
			pages = append(pages, extract.Page{PageNumber: i, Text: pdfx.RowsText(rows)})
			tables = append(tables, PageTables(i, rows)...)
		}

		payload := extract.NewPayload(pages, tables, total)
		payload.Metadata.Title = pdfx.Title(r)
		return payload, nil
	})
}

// PageTables converts the stream tables found on one page.
func PageTables(page int, rows []pdfx.Row) []extract.Table {
	found := pdfx.DetectStreamTables(rows)
	out := make([]extract.Table, 0, len(found))
	for _, t := range found {
		out = append(out, extract.Table{
			PageNumber: page,
			Rows:       t.Rows,
			Method:     methodStream,
			Accuracy:   t.Accuracy,
		})
	}
	return out
}
