package orchestrator

import (
	"context"
	"time"

	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/scoring"
)

// Comparison is the per-engine scoring table of ExtractWithAllModelsScored.
// Results has one entry per registered engine, in registration order.
type Comparison struct {
	Results          []scoring.Result `json:"results"`
	TotalModels      int              `json:"total_models"`
	SuccessfulModels int              `json:"successful_models"`
	Best             *scoring.Result  `json:"best_model"`
	MeanScore        float64          `json:"mean_score"`
	Factors          scoring.Factors  `json:"factors"`
	ProcessingTime   float64          `json:"processing_time_seconds"`

	// Extractions holds the raw result behind each entry of Results.
	Extractions []extract.Result `json:"-"`
}

// ExtractWithAllModelsScored runs every registered engine and scores each
// with the scoring service. Engines that panic are kept with score 0.
func (x *Extractor) ExtractWithAllModelsScored(ctx context.Context, doc []byte, lang string) Comparison {
	start := time.Now()
	engines := x.engines.All()
	raw := x.runAll(ctx, engines, doc, extract.Options{Lang: lang})

	out := Comparison{
		Results:     make([]scoring.Result, len(raw)),
		TotalModels: len(raw),
		Factors:     x.scorer.Factors(),
		Extractions: raw,
	}
	var sum float64
	for i, r := range raw {
		s := x.scorer.ScoreResult(r)
		if r.Panicked {
			s.Score, s.Confidence = 0, 0
		}
		out.Results[i] = s
		if !s.Success {
			continue
		}
		out.SuccessfulModels++
		sum += s.Score
		if out.Best == nil || s.Score > out.Best.Score {
			out.Best = &out.Results[i]
		}
	}
	if out.SuccessfulModels > 0 {
		out.MeanScore = sum / float64(out.SuccessfulModels)
	}
	out.ProcessingTime = time.Since(start).Seconds()

	best := ""
	if out.Best != nil {
		best = out.Best.Engine
	}
	x.logger.Info("all engines scored",
		"total", out.TotalModels,
		"successful", out.SuccessfulModels,
		"best", best,
		"mean_score", out.MeanScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
