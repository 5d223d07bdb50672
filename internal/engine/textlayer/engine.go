// Package textlayer is the baseline engine that reads the embedded text layer.
package textlayer

import (
	"context"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/engine/pdfx"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

// Engine returns page text in visual row order. Rows come from positioned
// glyphs so column gaps survive as double spaces; pages whose rows cannot be
// read fall back to the plain content-stream text.
type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

func (e *Engine) Name() string { return constants.EngineTextLayer }

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
		for i := 1; i <= limit; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, warn := pageText(r.Page(i))
			if warn != "" {
				e.logger.Debug("text layer page fallback", "page", i, "reason", warn)
			}
			pages = append(pages, extract.Page{PageNumber: i, Text: text})
		}

		payload := extract.NewPayload(pages, nil, total)
		payload.Metadata.Title = pdfx.Title(r)
		return payload, nil
	})
}

// pageText prefers row layout and falls back to GetPlainText.
func pageText(p pdf.Page) (string, string) {
	if p.V.IsNull() {
		return "", "missing page object"
	}
	rows, err := pdfx.PageRows(p)
	if err == nil && len(rows) > 0 {
		return pdfx.RowsText(rows), ""
	}
	plain, perr := p.GetPlainText(nil)
	if perr != nil {
		return "", perr.Error()
	}
	if err != nil {
		return plain, "row layout unavailable: " + err.Error()
	}
	return plain, ""
}
