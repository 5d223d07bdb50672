package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/detect"
	"github.com/joseph-ayodele/finextract/internal/orchestrator"
	"github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/scoring"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func comparison() orchestrator.Comparison {
	results := []scoring.Result{
		{Engine: "pdftext", Score: 8.456, Confidence: 0.828, Success: true, ProcessingTime: 0.2},
		{Engine: "ocr", Score: 0, Success: false, Error: "engine panic: tesseract crashed"},
	}
	return orchestrator.Comparison{
		Results:          results,
		TotalModels:      2,
		SuccessfulModels: 1,
		Best:             &results[0],
		MeanScore:        8.456,
		Factors:          scoring.DefaultFactors(),
	}
}

func TestComparisonXLSX(t *testing.T) {
	s := NewService(nil, quiet)
	b, err := s.ComparisonXLSX("in/balance.pdf", comparison())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Engines", "Summary"}, f.GetSheetList())
	rows, err := f.GetRows("Engines")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Engine", rows[0][0])
	assert.Equal(t, "pdftext", rows[1][0])
	assert.Equal(t, "8.46", rows[1][1])
	assert.Equal(t, "ocr", rows[2][0])
	assert.Contains(t, rows[2][10], "tesseract crashed")

	best, err := f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "pdftext", best)
}

type fakeRuns struct {
	runs []repository.ScoreRun
	err  error
}

func (f fakeRuns) Save(context.Context, *repository.ScoreRun) error { return nil }
func (f fakeRuns) Get(context.Context, uuid.UUID) (*repository.ScoreRun, error) {
	return nil, errors.New("unused")
}
func (f fakeRuns) ListByDocument(context.Context, string, int) ([]repository.ScoreRun, error) {
	return f.runs, f.err
}

func TestHistoryXLSX(t *testing.T) {
	run := repository.ScoreRun{
		ID:         uuid.New(),
		SourcePath: "/in/a.pdf",
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Entries:    comparison().Results,
	}
	s := NewService(fakeRuns{runs: []repository.ScoreRun{run, run}}, quiet)
	b, err := s.HistoryXLSX(context.Background(), "abc", 5)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("History")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, "2025-01-02T03:04:05Z", rows[1][1])

	_, err = NewService(fakeRuns{err: errors.New("db down")}, quiet).HistoryXLSX(context.Background(), "abc", 5)
	assert.ErrorContains(t, err, "db down")

	_, err = NewService(nil, quiet).HistoryXLSX(context.Background(), "abc", 5)
	assert.Error(t, err)
}

func TestToStruct(t *testing.T) {
	month := 4
	in := detect.PeriodDetection{Year: &month, Month: &month, PeriodText: "April 4", Confidence: 60}
	s, err := ToStruct(in)
	require.NoError(t, err)
	assert.Equal(t, 60.0, s.Fields["confidence"].GetNumberValue())
	assert.Equal(t, "April 4", s.Fields["period_text"].GetStringValue())

	var back detect.PeriodDetection
	require.NoError(t, FromStruct(s, &back))
	assert.Equal(t, in, back)

	dt := detect.DocumentTypeDetection{DetectedType: constants.RentRoll, KeywordsFound: []string{"rent roll"}}
	s, err = ToStruct(dt)
	require.NoError(t, err)
	assert.Equal(t, "rent_roll", s.Fields["detected_type"].GetStringValue())

	_, err = ToStruct([]int{1})
	assert.Error(t, err)
}
