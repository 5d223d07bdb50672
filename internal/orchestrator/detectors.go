package orchestrator

import (
	"context"

	"github.com/joseph-ayodele/finextract/internal/detect"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

// leadingText reads the first n pages through the text layer. Failures come
// back as "" so every detector degrades to its empty verdict.
func (x *Extractor) leadingText(ctx context.Context, doc []byte, pages int) string {
	res := x.runOne(ctx, x.textLayer(), doc, extract.Options{MaxPages: pages})
	if !res.Success {
		x.logger.Debug("detector sample failed", "engine", res.Engine, "error", res.Error)
		return ""
	}
	return res.Text()
}

// DetectDocumentType classifies the document from its leading pages.
func (x *Extractor) DetectDocumentType(ctx context.Context, doc []byte) detect.DocumentTypeDetection {
	return detect.DetectDocumentType(x.leadingText(ctx, doc, x.detectPages))
}

// DetectProperty resolves the document's property from its first page.
func (x *Extractor) DetectProperty(ctx context.Context, doc []byte, candidates []detect.PropertyCandidate) detect.PropertyDetection {
	if len(candidates) == 0 {
		return detect.DetectProperty("", nil)
	}
	return detect.DetectProperty(x.leadingText(ctx, doc, 1), candidates)
}

// DetectPeriod recovers the reporting period from the leading pages.
func (x *Extractor) DetectPeriod(ctx context.Context, doc []byte) detect.PeriodDetection {
	return detect.DetectPeriod(x.leadingText(ctx, doc, x.detectPages))
}

// Detection bundles the three detector verdicts for one document.
type Detection struct {
	DocumentType detect.DocumentTypeDetection `json:"document_type"`
	Property     detect.PropertyDetection     `json:"property"`
	Period       detect.PeriodDetection       `json:"period"`
}

// DetectAll runs the three detectors, reading the leading pages once.
func (x *Extractor) DetectAll(ctx context.Context, doc []byte, candidates []detect.PropertyCandidate) Detection {
	res := x.runOne(ctx, x.textLayer(), doc, extract.Options{MaxPages: x.detectPages})
	var lead, first string
	if res.Success && res.Payload != nil {
		lead = res.Payload.Text
		if len(res.Payload.Pages) > 0 {
			first = res.Payload.Pages[0].Text
		}
	}
	return Detection{
		DocumentType: detect.DetectDocumentType(lead),
		Property:     detect.DetectProperty(first, candidates),
		Period:       detect.DetectPeriod(lead),
	}
}
