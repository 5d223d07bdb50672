package classify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Structure is what a structural pass can tell without extracting text.
type Structure struct {
	PageCount  int
	ImagePages int // pages, among the first maxPages, that draw image XObjects
	Inspected  int // number of pages looked at for images
}

// Inspector reads document structure.
type Inspector interface {
	Inspect(ctx context.Context, doc []byte, maxPages int) (Structure, error)
}

// PDFCPUInspector inspects documents with pdfcpu in relaxed validation mode.
type PDFCPUInspector struct{}

func (PDFCPUInspector) Inspect(ctx context.Context, doc []byte, maxPages int) (st Structure, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return Structure{}, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), conf)
	if err != nil {
		return Structure{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	st.PageCount = pctx.PageCount
	st.Inspected = pctx.PageCount
	if maxPages > 0 && maxPages < st.Inspected {
		st.Inspected = maxPages
	}
	for pageNr := 1; pageNr <= st.Inspected; pageNr++ {
		if len(pdfcpu.ImageObjNrs(pctx, pageNr)) > 0 {
			st.ImagePages++
		}
	}
	return st, nil
}
