// Package classify assigns a coarse layout category to a document from a
// bounded structural inspection plus a sampled text-layer read.
package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

const defaultSamplePages = 3

// Thresholds over the sampled pages.
const (
	scannedCharsPerPage = 50
	mixedCharsPerPage   = 500
	mixedImageRatio     = 0.5
	tableColumnarRatio  = 0.4
)

// Diagnostics explain a classification.
type Diagnostics struct {
	PageCount     int     `json:"page_count"`
	SampledPages  int     `json:"sampled_pages"`
	CharsPerPage  float64 `json:"chars_per_page"`
	ImagePages    int     `json:"image_pages"`
	ImageRatio    float64 `json:"image_ratio"`
	ColumnarRatio float64 `json:"columnar_ratio"`
	SampleError   string  `json:"sample_error,omitempty"`
	InspectError  string  `json:"inspect_error,omitempty"`
}

// Result is one layout category with a 0..100 confidence.
type Result struct {
	Category    constants.Category `json:"category"`
	Confidence  float64            `json:"confidence"`
	Diagnostics Diagnostics        `json:"diagnostics"`
}

type Classifier struct {
	inspector   Inspector
	sampler     extract.Engine
	samplePages int
	logger      *slog.Logger
}

type Option func(*Classifier)

func WithSamplePages(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.samplePages = n
		}
	}
}

// New builds a classifier that samples text through sampler (normally the
// text-layer engine). inspector may be nil to skip structural inspection.
func New(inspector Inspector, sampler extract.Engine, logger *slog.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{inspector: inspector, sampler: sampler, samplePages: defaultSamplePages, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify never fails; inspection or sampling errors are recorded in the
// diagnostics and push the decision toward Scanned.
func (c *Classifier) Classify(ctx context.Context, doc []byte) Result {
	start := time.Now()
	var d Diagnostics

	var st Structure
	if c.inspector != nil {
		s, err := c.inspector.Inspect(ctx, doc, c.samplePages)
		if err != nil {
			d.InspectError = err.Error()
		} else {
			st = s
		}
	}
	d.PageCount = st.PageCount
	d.ImagePages = st.ImagePages
	if st.Inspected > 0 {
		d.ImageRatio = float64(st.ImagePages) / float64(st.Inspected)
	}

	var text string
	if c.sampler != nil {
		res := c.sampler.Extract(ctx, doc, extract.Options{MaxPages: c.samplePages})
		if res.Success && res.Payload != nil {
			text = res.Payload.Text
			d.SampledPages = len(res.Payload.Pages)
			if res.Payload.Metadata != nil && d.PageCount == 0 {
				d.PageCount = res.Payload.Metadata.PageCount
			}
		} else {
			d.SampleError = res.Error
		}
	}
	if d.SampledPages > 0 {
		d.CharsPerPage = float64(len([]rune(text))) / float64(d.SampledPages)
	}
	d.ColumnarRatio = ColumnarRatio(text)

	out := decide(d)
	c.logger.Debug("document classified",
		"category", out.Category,
		"confidence", out.Confidence,
		"chars_per_page", d.CharsPerPage,
		"image_ratio", d.ImageRatio,
		"columnar_ratio", d.ColumnarRatio,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func decide(d Diagnostics) Result {
	r := Result{Diagnostics: d}
	switch {
	case d.SampledPages == 0 || d.CharsPerPage < scannedCharsPerPage:
		r.Category = constants.CategoryScanned
		switch {
		case d.ImageRatio >= mixedImageRatio:
			r.Confidence = 90
		case d.ImagePages > 0:
			r.Confidence = 75
		default:
			r.Confidence = 60
		}
	case d.ImageRatio >= mixedImageRatio && d.CharsPerPage < mixedCharsPerPage:
		r.Category = constants.CategoryMixed
		r.Confidence = 70
	case d.ColumnarRatio >= tableColumnarRatio:
		r.Category = constants.CategoryTableHeavy
		r.Confidence = clamp(60+40*d.ColumnarRatio, 0, 100)
	default:
		r.Category = constants.CategoryDigital
		r.Confidence = clamp(50+d.CharsPerPage/20, 0, 100)
	}
	return r
}

var (
	reColumnGap     = regexp.MustCompile(`\s{2,}`)
	reNumericColumn = regexp.MustCompile(`^[-$(]*\$?\s?\d[\d,]*(\.\d+)?\)?%?$`)
)

// ColumnarRatio is the share of non-empty lines that split into at least two
// columns with a numeric last column.
func ColumnarRatio(text string) float64 {
	total, columnar := 0, 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		parts := reColumnGap.Split(line, -1)
		if len(parts) >= 2 && reNumericColumn.MatchString(parts[len(parts)-1]) {
			columnar++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(columnar) / float64(total)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
