// Package orchestrator chooses engines for a document, validates and ranks
// their results, and exposes the detection passes over lightweight text.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/engine"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/scoring"
	"github.com/joseph-ayodele/finextract/internal/validate"
)

// Engines is the read-only view of the engine registry the orchestrator needs.
type Engines interface {
	Engine(name string) (extract.Engine, bool)
	All() []extract.Engine
	ForCapability(c engine.Capability) []extract.Engine
	Capabilities() engine.CapabilitySet
}

// Classifier assigns a layout category; it never fails.
type Classifier interface {
	Classify(ctx context.Context, doc []byte) classify.Result
}

type Extractor struct {
	engines     Engines
	classifier  Classifier
	scorer      *scoring.Service
	logger      *slog.Logger
	concurrency int
	detectPages int
}

type Option func(*Extractor)

// WithConcurrency bounds how many engines run at once in multi-engine calls.
// The default of 1 runs them one after another.
func WithConcurrency(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.concurrency = n
		}
	}
}

// WithDetectPages sets how many leading pages the detectors read.
func WithDetectPages(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.detectPages = n
		}
	}
}

// New builds an Extractor. A nil classifier classifies every document as
// Digital; a nil scorer uses the default factors.
func New(engines Engines, classifier Classifier, scorer *scoring.Service, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		scorer = scoring.NewService(scoring.DefaultFactors(), logger)
	}
	x := &Extractor{
		engines:     engines,
		classifier:  classifier,
		scorer:      scorer,
		logger:      logger,
		concurrency: 1,
		detectPages: 2,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Outcome is the result of ExtractWithValidation.
type Outcome struct {
	Extraction     extract.Result         `json:"extraction"`
	Validation     validate.Result        `json:"validation"`
	Classification *classify.Result       `json:"classification,omitempty"`
	ProcessingTime float64                `json:"processing_time_seconds"`
	Strategy       constants.Strategy     `json:"strategy_used"`
	Quality        constants.QualityLevel `json:"quality_level"`
	Confidence     float64                `json:"confidence_score"`
	NeedsReview    bool                   `json:"needs_review"`
	Success        bool                   `json:"success"`
	Attempted      []string               `json:"engines_attempted"`
}

// ExtractWithValidation runs one strategy and validates the chosen result.
//
//	fast          text layer only
//	accurate      classify, then the single best engine for the category
//	auto          accurate, then a stronger engine when confidence < 70
//	multi_engine  both baseline engines, plus OCR on a weak signal
func (x *Extractor) ExtractWithValidation(ctx context.Context, doc []byte, strategy constants.Strategy, lang string) Outcome {
	start := time.Now()
	opts := extract.Options{Lang: lang}
	if strategy == "" {
		strategy = constants.StrategyAuto
	}

	var (
		cls       *classify.Result
		results   []extract.Result
		attempted []string
	)
	run := func(e extract.Engine) extract.Result {
		attempted = append(attempted, e.Name())
		r := x.runOne(ctx, e, doc, opts)
		results = append(results, r)
		return r
	}

	switch strategy {
	case constants.StrategyFast:
		run(x.textLayer())

	case constants.StrategyAccurate, constants.StrategyAuto:
		c := x.classify(ctx, doc)
		cls = &c
		primary := run(x.dispatch(c.Category))
		if strategy == constants.StrategyAuto {
			v := validate.Validate(primary)
			if v.Confidence < constants.ClassifierFallbackConfidence {
				if fb := x.fallback(c.Category, attempted); fb != nil {
					x.logger.Info("low confidence, escalating",
						"strategy", strategy,
						"category", c.Category,
						"engine", primary.Engine,
						"confidence", v.Confidence,
						"fallback", fb.Name(),
					)
					run(fb)
				}
			}
		}

	case constants.StrategyMultiEngine:
		baseline := x.baseline()
		for _, e := range baseline {
			attempted = append(attempted, e.Name())
		}
		results = x.runAll(ctx, baseline, doc, opts)
		if weakSignal(results) {
			if ocr := x.firstFor(engine.CapabilityOCR); ocr != nil {
				x.logger.Info("weak signal, adding ocr", "strategy", strategy)
				run(ocr)
			}
		}

	default:
		res := extract.Result{Engine: constants.EngineNone, Error: fmt.Sprintf("unknown strategy %q", strategy)}
		return x.outcome(res, cls, strategy, attempted, start)
	}

	best := SelectBest(successful(results))
	chosen := best.Result
	if !chosen.Success {
		chosen = noEngineSucceeded(results)
	}
	return x.outcome(chosen, cls, strategy, attempted, start)
}

func (x *Extractor) outcome(res extract.Result, cls *classify.Result, strategy constants.Strategy, attempted []string, start time.Time) Outcome {
	v := validate.Validate(res)
	out := Outcome{
		Extraction:     res,
		Validation:     v,
		Classification: cls,
		ProcessingTime: time.Since(start).Seconds(),
		Strategy:       strategy,
		Quality:        v.Quality,
		Confidence:     v.Confidence,
		NeedsReview:    v.NeedsReview(),
		Success:        res.Success,
		Attempted:      nonNilNames(attempted),
	}
	if !out.Success {
		x.logger.Error("extraction failed",
			"strategy", strategy,
			"engines", strings.Join(attempted, ","),
			"error", res.Error,
		)
		return out
	}
	x.logger.Info("extraction complete",
		"strategy", strategy,
		"engine", res.Engine,
		"confidence", v.Confidence,
		"quality", v.Quality.String(),
		"needs_review", out.NeedsReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (x *Extractor) classify(ctx context.Context, doc []byte) classify.Result {
	if x.classifier == nil {
		return classify.Result{Category: constants.CategoryDigital}
	}
	return x.classifier.Classify(ctx, doc)
}

// dispatch picks the single best available engine for a category.
func (x *Extractor) dispatch(c constants.Category) extract.Engine {
	switch c {
	case constants.CategoryScanned:
		if e := x.firstFor(engine.CapabilityOCR); e != nil {
			return e
		}
		if e := x.firstFor(engine.CapabilityLayoutML); e != nil {
			return e
		}
	case constants.CategoryTableHeavy:
		if e := x.firstFor(engine.CapabilityLattice); e != nil {
			return e
		}
		return x.tableLayer()
	case constants.CategoryMixed:
		if e := x.firstFor(engine.CapabilityLayoutML); e != nil {
			return e
		}
		return x.tableLayer()
	}
	return x.textLayer()
}

// fallback is the stronger engine auto escalates to: OCR first, then the
// first layout model, skipping anything already attempted.
func (x *Extractor) fallback(c constants.Category, attempted []string) extract.Engine {
	tried := map[string]bool{}
	for _, n := range attempted {
		tried[n] = true
	}
	order := []engine.Capability{engine.CapabilityOCR, engine.CapabilityLayoutML}
	if c == constants.CategoryScanned {
		order = []engine.Capability{engine.CapabilityLayoutML, engine.CapabilityOCR}
	}
	for _, capability := range order {
		for _, e := range x.engines.ForCapability(capability) {
			if !tried[e.Name()] {
				return e
			}
		}
	}
	return nil
}

// weakSignal reports whether fewer than two engines succeeded or every
// successful result is shorter than WeakSignalChars.
func weakSignal(results []extract.Result) bool {
	ok := successful(results)
	if len(ok) < 2 {
		return true
	}
	for _, r := range ok {
		if r.CharCount() >= constants.WeakSignalChars {
			return false
		}
	}
	return true
}

func (x *Extractor) textLayer() extract.Engine {
	e, _ := x.engines.Engine(constants.EngineTextLayer)
	return e
}

func (x *Extractor) tableLayer() extract.Engine {
	e, _ := x.engines.Engine(constants.EngineTableLayer)
	return e
}

func (x *Extractor) baseline() []extract.Engine {
	out := make([]extract.Engine, 0, len(constants.BaselineEngines))
	for _, n := range constants.BaselineEngines {
		if e, ok := x.engines.Engine(n); ok {
			out = append(out, e)
		}
	}
	return out
}

func (x *Extractor) firstFor(c engine.Capability) extract.Engine {
	if !x.engines.Capabilities().Has(c) {
		return nil
	}
	es := x.engines.ForCapability(c)
	if len(es) == 0 {
		return nil
	}
	return es[0]
}

// runOne calls an engine and turns an escaped panic into a failed Result.
func (x *Extractor) runOne(ctx context.Context, e extract.Engine, doc []byte, opts extract.Options) (res extract.Result) {
	if e == nil {
		return extract.Result{Engine: constants.EngineNone, Error: "engine not registered"}
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			x.logger.Warn("engine panicked", "engine", e.Name(), "panic", fmt.Sprint(r))
			res = extract.Failure(e.Name(), fmt.Errorf("engine panic: %v", r), time.Since(start))
			res.Panicked = true
		}
	}()
	return e.Extract(ctx, doc, opts)
}

// runAll runs engines at most x.concurrency at a time and returns results in
// input order.
func (x *Extractor) runAll(ctx context.Context, engines []extract.Engine, doc []byte, opts extract.Options) []extract.Result {
	out := make([]extract.Result, len(engines))
	var g errgroup.Group
	g.SetLimit(x.concurrency)
	for i, e := range engines {
		i, e := i, e
		g.Go(func() error {
			out[i] = x.runOne(ctx, e, doc, opts)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func successful(results []extract.Result) []extract.Result {
	out := make([]extract.Result, 0, len(results))
	for _, r := range results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// noEngineSucceeded aggregates every failure into one terminal Result.
func noEngineSucceeded(failed []extract.Result) extract.Result {
	var b strings.Builder
	b.WriteString("no engine succeeded")
	var total float64
	for i, r := range failed {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", r.Engine, r.Error)
		total += r.ProcessingTime
	}
	return extract.Result{Engine: constants.EngineNone, Error: b.String(), ProcessingTime: total}
}

func nonNilNames(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
