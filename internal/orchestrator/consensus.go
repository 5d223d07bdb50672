package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/validate"
)

const (
	jaccardWeight     = 0.7
	lengthRatioWeight = 0.3
)

// PairAgreement compares two engines' text.
type PairAgreement struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Jaccard     float64 `json:"jaccard"`
	LengthRatio float64 `json:"length_ratio"`
	Score       float64 `json:"score"` // 0..100
}

// EngineFailure records an engine that was excluded from consensus.
type EngineFailure struct {
	Engine string `json:"engine"`
	Error  string `json:"error"`
}

// ConsensusOutcome is the result of ExtractWithConsensus. Consensus only
// flags disagreement; content is never merged.
type ConsensusOutcome struct {
	Best           extract.Result   `json:"best"`
	Validation     validate.Result  `json:"validation"`
	Results        []extract.Result `json:"results"`
	Failed         []EngineFailure  `json:"failed"`
	ConsensusScore float64          `json:"consensus_score"`
	Agreement      bool             `json:"agreement"`
	Pairs          []PairAgreement  `json:"pairs"`
	ProcessingTime float64          `json:"processing_time_seconds"`
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
}

// ExtractWithConsensus runs the named engines (both baseline engines when
// names is empty), drops the ones that fail, scores agreement between the
// rest and selects the best by validated confidence.
func (x *Extractor) ExtractWithConsensus(ctx context.Context, doc []byte, names []string, lang string) ConsensusOutcome {
	start := time.Now()
	if len(names) == 0 {
		names = constants.BaselineEngines
	}

	out := ConsensusOutcome{Results: []extract.Result{}, Failed: []EngineFailure{}, Pairs: []PairAgreement{}}
	var engines []extract.Engine
	for _, n := range names {
		e, ok := x.engines.Engine(n)
		if !ok {
			out.Failed = append(out.Failed, EngineFailure{Engine: n, Error: "unknown engine"})
			continue
		}
		engines = append(engines, e)
	}

	all := x.runAll(ctx, engines, doc, extract.Options{Lang: lang})
	for _, r := range all {
		if r.Success {
			out.Results = append(out.Results, r)
			continue
		}
		out.Failed = append(out.Failed, EngineFailure{Engine: r.Engine, Error: r.Error})
	}

	out.ConsensusScore, out.Pairs = Consensus(out.Results)
	out.Agreement = len(out.Results) > 0 && out.ConsensusScore >= constants.ConsensusAgreement
	out.ProcessingTime = time.Since(start).Seconds()

	if len(out.Results) == 0 {
		out.Best = noEngineSucceeded(all)
		for _, f := range out.Failed {
			if f.Error == "unknown engine" {
				out.Best.Error += fmt.Sprintf("; %s: unknown engine", f.Engine)
			}
		}
		out.Validation = validate.Validate(out.Best)
		out.Error = out.Best.Error
		x.logger.Error("consensus failed", "engines", strings.Join(names, ","), "error", out.Error)
		return out
	}

	sel := SelectBest(out.Results)
	out.Best, out.Validation, out.Success = sel.Result, sel.Validation, true
	x.logger.Info("consensus complete",
		"engines", strings.Join(names, ","),
		"succeeded", len(out.Results),
		"consensus", out.ConsensusScore,
		"agreement", out.Agreement,
		"best", out.Best.Engine,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// Consensus is the mean pairwise agreement of successful results on a 0..100
// scale. A single result agrees with itself; none scores 0.
func Consensus(results []extract.Result) (float64, []PairAgreement) {
	pairs := []PairAgreement{}
	switch len(results) {
	case 0:
		return 0, pairs
	case 1:
		return 100, pairs
	}

	tokens := make([]map[string]struct{}, len(results))
	for i, r := range results {
		tokens[i] = tokenSet(r.Text())
	}
	var sum float64
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			p := PairAgreement{
				A:           results[i].Engine,
				B:           results[j].Engine,
				Jaccard:     jaccard(tokens[i], tokens[j]),
				LengthRatio: lengthRatio(results[i].CharCount(), results[j].CharCount()),
			}
			p.Score = 100 * (jaccardWeight*p.Jaccard + lengthRatioWeight*p.LengthRatio)
			sum += p.Score
			pairs = append(pairs, p)
		}
	}
	return sum / float64(len(pairs)), pairs
}

func tokenSet(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func lengthRatio(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}
