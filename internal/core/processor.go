package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/async"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/detect"
	"github.com/joseph-ayodele/finextract/internal/orchestrator"
	"github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/source"
)

// Extractor is the orchestrator surface the processor drives.
type Extractor interface {
	ExtractWithValidation(ctx context.Context, doc []byte, strategy constants.Strategy, lang string) orchestrator.Outcome
	ExtractWithAllModelsScored(ctx context.Context, doc []byte, lang string) orchestrator.Comparison
	DetectAll(ctx context.Context, doc []byte, candidates []detect.PropertyCandidate) orchestrator.Detection
}

// Report is everything the processor learned about one document.
type Report struct {
	RequestID  string                   `json:"request_id"`
	Source     string                   `json:"source"`
	SHA256     string                   `json:"document_sha256"`
	Status     constants.JobStatus      `json:"status"`
	Outcome    orchestrator.Outcome     `json:"outcome"`
	Detection  orchestrator.Detection   `json:"detection"`
	Comparison *orchestrator.Comparison `json:"comparison,omitempty"`
	RunID      *uuid.UUID               `json:"run_id,omitempty"`
}

// Processor turns one document reference into extraction and detections.
type Processor struct {
	logger     *slog.Logger
	loader     source.Loader
	extractor  Extractor
	runs       repository.ScoreRunRepository
	candidates []detect.PropertyCandidate
	strategy   constants.Strategy
	lang       string
	score      bool
}

type Option func(*Processor)

// WithCandidates sets the property list used for property detection.
func WithCandidates(c []detect.PropertyCandidate) Option {
	return func(p *Processor) { p.candidates = c }
}

// WithStrategy sets the extraction strategy and language.
func WithStrategy(s constants.Strategy, lang string) Option {
	return func(p *Processor) {
		if s != "" {
			p.strategy = s
		}
		if lang != "" {
			p.lang = lang
		}
	}
}

// WithScoreHistory runs every engine per document and saves the comparison.
func WithScoreHistory(runs repository.ScoreRunRepository) Option {
	return func(p *Processor) {
		p.runs = runs
		p.score = runs != nil
	}
}

func NewProcessor(logger *slog.Logger, loader source.Loader, extractor Extractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = source.Local{}
	}
	p := &Processor{
		logger:    logger,
		loader:    loader,
		extractor: extractor,
		strategy:  constants.StrategyAuto,
		lang:      "eng",
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile loads ref, extracts it with the configured strategy, runs the
// detectors and, with score history enabled, persists an all-engines run.
// Extraction failures are reported through Report.Status; only load and
// store failures return an error.
func (p *Processor) ProcessFile(ctx context.Context, ref string) (Report, error) {
	requestID := common.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = common.WithRequestID(ctx, requestID)
	}
	rep := Report{RequestID: requestID, Source: ref, Status: constants.JobStatusRunning}
	start := time.Now()

	doc, err := p.loader.Load(ctx, ref)
	if err != nil {
		rep.Status = constants.JobStatusFailed
		p.logger.Error("processor.load.failed", "request_id", requestID, "source", ref, "err", err)
		return rep, fmt.Errorf("load %s: %w", ref, err)
	}
	sum := sha256.Sum256(doc)
	rep.SHA256 = hex.EncodeToString(sum[:])
	ctx = common.WithDocumentID(ctx, rep.SHA256)

	rep.Outcome = p.extractor.ExtractWithValidation(ctx, doc, p.strategy, p.lang)
	rep.Status = StatusFor(rep.Outcome)
	rep.Detection = p.extractor.DetectAll(ctx, doc, p.candidates)

	if p.score {
		cmp := p.extractor.ExtractWithAllModelsScored(ctx, doc, p.lang)
		rep.Comparison = &cmp
		run := RunFromComparison(rep.SHA256, ref, cmp)
		if err := p.runs.Save(ctx, run); err != nil {
			p.logger.Error("processor.persist.failed", "request_id", requestID, "document_sha256", rep.SHA256, "err", err)
			return rep, fmt.Errorf("save score run: %w", err)
		}
		rep.RunID = &run.ID
	}

	attrs := []any{
		"request_id", requestID,
		"source", ref,
		"document_sha256", rep.SHA256,
		"status", rep.Status,
		"engine", rep.Outcome.Extraction.Engine,
		"confidence", rep.Outcome.Confidence,
		"document_type", rep.Detection.DocumentType.DetectedType,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if rep.Status == constants.JobStatusFailed {
		p.logger.Warn("processor.extract.failed", append(attrs, "error", rep.Outcome.Extraction.Error)...)
	} else {
		p.logger.Info("processed document", attrs...)
	}
	return rep, nil
}

// Process adapts the processor to the worker queue.
func (p *Processor) Process(ctx context.Context, job async.Job) error {
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	_, err := p.ProcessFile(ctx, job.Path)
	return err
}

// StatusFor maps an outcome onto the watch-worker job status.
func StatusFor(o orchestrator.Outcome) constants.JobStatus {
	switch {
	case !o.Success:
		return constants.JobStatusFailed
	case o.NeedsReview:
		return constants.JobStatusNeedsReview
	default:
		return constants.JobStatusExtracted
	}
}

// RunFromComparison builds the persisted form of a comparison.
func RunFromComparison(sha256, sourcePath string, cmp orchestrator.Comparison) *repository.ScoreRun {
	run := &repository.ScoreRun{
		DocumentSHA256:   sha256,
		SourcePath:       sourcePath,
		TotalModels:      cmp.TotalModels,
		SuccessfulModels: cmp.SuccessfulModels,
		BestEngine:       constants.EngineNone,
		MeanScore:        cmp.MeanScore,
		Factors:          cmp.Factors,
		Entries:          cmp.Results,
	}
	if cmp.Best != nil {
		run.BestEngine = cmp.Best.Engine
	}
	return run
}
