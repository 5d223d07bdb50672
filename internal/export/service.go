package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/finextract/internal/orchestrator"
	"github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/scoring"
)

const (
	enginesSheet = "Engines"
	summarySheet = "Summary"
	historySheet = "History"
)

// Service produces XLSX bytes for engine comparisons.
type Service struct {
	runs   repository.ScoreRunRepository
	logger *slog.Logger
}

// NewService builds an exporter. runs may be nil when history export is not
// needed.
func NewService(runs repository.ScoreRunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ComparisonXLSX renders one all-engines comparison as a workbook with an
// Engines sheet (one row per engine, registration order) and a Summary sheet.
func (s *Service) ComparisonXLSX(source string, cmp orchestrator.Comparison) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := ensureSheet(f, enginesSheet); err != nil {
		return nil, err
	}
	writeEngineRows(f, enginesSheet, 1, cmp.Results)

	if err := ensureSheet(f, summarySheet); err != nil {
		return nil, err
	}
	best := ""
	if cmp.Best != nil {
		best = cmp.Best.Engine
	}
	summary := [][2]any{
		{"Source", source},
		{"Total engines", cmp.TotalModels},
		{"Successful engines", cmp.SuccessfulModels},
		{"Best engine", best},
		{"Mean score", round2(cmp.MeanScore)},
		{"Processing (s)", round2(cmp.ProcessingTime)},
		{"Weight: text length", cmp.Factors.TextLength},
		{"Weight: structure", cmp.Factors.Structure},
		{"Weight: readability", cmp.Factors.Readability},
		{"Weight: speed", cmp.Factors.Speed},
		{"Weight: completeness", cmp.Factors.Completeness},
	}
	for i, kv := range summary {
		write(f, summarySheet, 1, i+1, kv[0])
		write(f, summarySheet, 2, i+1, kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 24)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)

	if err := dropDefaultSheet(f); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(enginesSheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"source", source,
		"rows", len(cmp.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// HistoryXLSX renders every stored run of a document, newest first, one row
// per engine per run.
func (s *Service) HistoryXLSX(ctx context.Context, sha256 string, limit int) ([]byte, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("history export needs a score store")
	}
	start := time.Now()
	runs, err := s.runs.ListByDocument(ctx, sha256, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := ensureSheet(f, historySheet); err != nil {
		return nil, err
	}

	headers := []string{"Run", "Created", "Source", "Engine", "Score", "Confidence", "Success", "Processing (s)", "Error"}
	for i, h := range headers {
		write(f, historySheet, i+1, 1, h)
	}
	row := 2
	for _, run := range runs {
		for _, e := range run.Entries {
			write(f, historySheet, 1, row, run.ID.String())
			write(f, historySheet, 2, row, run.CreatedAt.UTC().Format(time.RFC3339))
			write(f, historySheet, 3, row, run.SourcePath)
			write(f, historySheet, 4, row, e.Engine)
			write(f, historySheet, 5, row, round2(e.Score))
			write(f, historySheet, 6, row, round2(e.Confidence))
			write(f, historySheet, 7, row, e.Success)
			write(f, historySheet, 8, row, round2(e.ProcessingTime))
			write(f, historySheet, 9, row, truncate(e.Error, 140))
			row++
		}
	}
	_ = f.SetColWidth(historySheet, "A", "A", 38)
	_ = f.SetColWidth(historySheet, "B", "B", 22)
	_ = f.SetColWidth(historySheet, "C", "C", 48)
	_ = f.SetColWidth(historySheet, "D", "D", 24)
	_ = f.SetColWidth(historySheet, "I", "I", 60)

	if err := dropDefaultSheet(f); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.history.ok",
		"document_sha256", sha256,
		"runs", len(runs),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeEngineRows(f *excelize.File, sheet string, firstRow int, results []scoring.Result) {
	headers := []string{
		"Engine",
		"Score",
		"Confidence",
		"Success",
		"Text length",
		"Structure",
		"Readability",
		"Speed",
		"Completeness",
		"Processing (s)",
		"Error",
	}
	for i, h := range headers {
		write(f, sheet, i+1, firstRow, h)
	}
	row := firstRow + 1
	for _, r := range results {
		write(f, sheet, 1, row, r.Engine)
		write(f, sheet, 2, row, round2(r.Score))
		write(f, sheet, 3, row, round2(r.Confidence))
		write(f, sheet, 4, row, r.Success)
		write(f, sheet, 5, row, round2(r.Breakdown.TextLength))
		write(f, sheet, 6, row, round2(r.Breakdown.Structure))
		write(f, sheet, 7, row, round2(r.Breakdown.Readability))
		write(f, sheet, 8, row, round2(r.Breakdown.Speed))
		write(f, sheet, 9, row, round2(r.Breakdown.Completeness))
		write(f, sheet, 10, row, round2(r.ProcessingTime))
		write(f, sheet, 11, row, truncate(r.Error, 140))
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 24) // engine
	_ = f.SetColWidth(sheet, "B", "J", 14)
	_ = f.SetColWidth(sheet, "K", "K", 60) // error
}

func ensureSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func dropDefaultSheet(f *excelize.File) error {
	const def = "Sheet1"
	if index, _ := f.GetSheetIndex(def); index == -1 || f.SheetCount <= 1 {
		return nil
	}
	if err := f.DeleteSheet(def); err != nil {
		return fmt.Errorf("delete sheet %s: %w", def, err)
	}
	return nil
}

func write(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
