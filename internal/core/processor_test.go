package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/async"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/detect"
	"github.com/joseph-ayodele/finextract/internal/engine"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/extract/extracttest"
	"github.com/joseph-ayodele/finextract/internal/orchestrator"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const balanceSheet = `Harbor Point Apartments
Balance Sheet
As of December 31, 2024
Total Assets 1,250,000.00
Total Liabilities 800,000.00
Equity 450,000.00
`

type memLoader map[string]string

func (m memLoader) Load(_ context.Context, ref string) ([]byte, error) {
	body, ok := m[ref]
	if !ok {
		return nil, common.ErrNotFound
	}
	return []byte(body), nil
}

type savedRuns struct {
	runs []*repository.ScoreRun
	err  error
}

func (s *savedRuns) Save(_ context.Context, run *repository.ScoreRun) error {
	if s.err != nil {
		return s.err
	}
	run.ID = uuid.New()
	s.runs = append(s.runs, run)
	return nil
}
func (s *savedRuns) Get(context.Context, uuid.UUID) (*repository.ScoreRun, error) { return nil, nil }
func (s *savedRuns) ListByDocument(context.Context, string, int) ([]repository.ScoreRun, error) {
	return nil, nil
}

func extractor(t *testing.T, engines ...extract.Engine) *orchestrator.Extractor {
	t.Helper()
	regs := make([]engine.Registration, len(engines))
	for i, e := range engines {
		regs[i] = engine.Registration{Engine: e}
	}
	r, err := engine.NewRegistry(quiet, regs...)
	require.NoError(t, err)
	return orchestrator.New(r, nil, nil, quiet)
}

func TestProcessFile(t *testing.T) {
	long := balanceSheet + strings.Repeat("Cash and equivalents 10,000.00\n", 30)
	x := extractor(t,
		extracttest.Text(constants.EngineTextLayer, long),
		extracttest.Text(constants.EngineTableLayer, long),
	)
	runs := &savedRuns{}
	p := NewProcessor(quiet, memLoader{"a.pdf": "%PDF"}, x,
		WithStrategy(constants.StrategyFast, "eng"),
		WithCandidates([]detect.PropertyCandidate{{Code: "HPA", Name: "Harbor Point Apartments"}}),
		WithScoreHistory(runs),
	)

	rep, err := p.ProcessFile(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RequestID)
	assert.Len(t, rep.SHA256, 64)
	assert.Equal(t, constants.JobStatusExtracted, rep.Status)
	assert.Equal(t, constants.EngineTextLayer, rep.Outcome.Extraction.Engine)
	assert.Equal(t, constants.BalanceSheet, rep.Detection.DocumentType.DetectedType)
	require.NotNil(t, rep.Detection.Property.Primary)
	assert.Equal(t, "HPA", rep.Detection.Property.Primary.Code)
	require.NotNil(t, rep.Detection.Period.Year)
	assert.Equal(t, 2024, *rep.Detection.Period.Year)

	require.NotNil(t, rep.Comparison)
	assert.Equal(t, 2, rep.Comparison.TotalModels)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, rep.SHA256, runs.runs[0].DocumentSHA256)
	assert.Equal(t, *rep.RunID, runs.runs[0].ID)
}

func TestProcessFile_Failures(t *testing.T) {
	x := extractor(t,
		extracttest.Failing(constants.EngineTextLayer, "broken xref"),
		extracttest.Failing(constants.EngineTableLayer, "broken xref"),
	)

	t.Run("load error", func(t *testing.T) {
		p := NewProcessor(quiet, memLoader{}, x)
		rep, err := p.ProcessFile(context.Background(), "missing.pdf")
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, constants.JobStatusFailed, rep.Status)
	})

	t.Run("extraction failure is a status", func(t *testing.T) {
		p := NewProcessor(quiet, memLoader{"a.pdf": "%PDF"}, x)
		ctx := common.WithRequestID(context.Background(), "req-1")
		rep, err := p.ProcessFile(ctx, "a.pdf")
		require.NoError(t, err)
		assert.Equal(t, "req-1", rep.RequestID)
		assert.Equal(t, constants.JobStatusFailed, rep.Status)
		assert.Equal(t, constants.UnknownDocument, rep.Detection.DocumentType.DetectedType)
	})

	t.Run("store error", func(t *testing.T) {
		p := NewProcessor(quiet, memLoader{"a.pdf": "%PDF"}, x, WithScoreHistory(&savedRuns{err: errors.New("disk full")}))
		_, err := p.ProcessFile(context.Background(), "a.pdf")
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestProcess_UsesTraceID(t *testing.T) {
	x := extractor(t, extracttest.Text(constants.EngineTextLayer, balanceSheet), extracttest.Text(constants.EngineTableLayer, balanceSheet))
	p := NewProcessor(quiet, memLoader{"a.pdf": "%PDF"}, x)
	var h async.Handler = p
	assert.NoError(t, h.Process(context.Background(), async.Job{Path: "a.pdf", TraceID: "trace-9"}))
	assert.Error(t, h.Process(context.Background(), async.Job{Path: "b.pdf"}))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, constants.JobStatusFailed, StatusFor(orchestrator.Outcome{}))
	assert.Equal(t, constants.JobStatusNeedsReview, StatusFor(orchestrator.Outcome{Success: true, NeedsReview: true}))
	assert.Equal(t, constants.JobStatusExtracted, StatusFor(orchestrator.Outcome{Success: true}))
}

func TestRunFromComparison(t *testing.T) {
	run := RunFromComparison("abc", "a.pdf", orchestrator.Comparison{TotalModels: 3})
	assert.Equal(t, constants.EngineNone, run.BestEngine)
	assert.Equal(t, 3, run.TotalModels)
}
