// Package scoring puts heterogeneous engines on one 1..10 scale. Scores come
// from caller-supplied factors over the extracted payload and never from an
// engine's self-reported confidence.
package scoring

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/validate"
)

const (
	MinScore = 1.0
	MaxScore = 10.0
)

// Factors weight the contributing measurements. Weights need not sum to one.
type Factors struct {
	TextLength    float64 `json:"text_length"`
	Structure     float64 `json:"structure"`
	Readability   float64 `json:"readability"`
	Speed         float64 `json:"speed"`
	Completeness  float64 `json:"completeness"`
	TargetChars   int     `json:"target_chars"`   // text length that earns the full text_length factor
	TargetSeconds float64 `json:"target_seconds"` // processing time that still earns the full speed factor
}

func DefaultFactors() Factors {
	return Factors{
		TextLength:    0.3,
		Structure:     0.2,
		Readability:   0.25,
		Speed:         0.1,
		Completeness:  0.15,
		TargetChars:   2000,
		TargetSeconds: 5,
	}
}

func (f Factors) totalWeight() float64 {
	return f.TextLength + f.Structure + f.Readability + f.Speed + f.Completeness
}

// Breakdown holds each factor's 0..1 measurement before weighting.
type Breakdown struct {
	TextLength   float64 `json:"text_length"`
	Structure    float64 `json:"structure"`
	Readability  float64 `json:"readability"`
	Speed        float64 `json:"speed"`
	Completeness float64 `json:"completeness"`
}

// Input is everything the scorer may look at.
type Input struct {
	Engine         string
	Payload        *extract.Payload
	ProcessingTime float64 // seconds
	Success        bool
	Error          string
}

// Result is one engine's entry in a comparison.
type Result struct {
	Engine         string    `json:"engine"`
	Score          float64   `json:"score"`
	Confidence     float64   `json:"confidence"`
	Breakdown      Breakdown `json:"breakdown"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ProcessingTime float64   `json:"processing_time"`
}

type Service struct {
	factors Factors
	logger  *slog.Logger
}

// NewService falls back to DefaultFactors when every weight is zero.
func NewService(factors Factors, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if factors.totalWeight() <= 0 {
		factors = DefaultFactors()
	}
	d := DefaultFactors()
	if factors.TargetChars <= 0 {
		factors.TargetChars = d.TargetChars
	}
	if factors.TargetSeconds <= 0 {
		factors.TargetSeconds = d.TargetSeconds
	}
	return &Service{factors: factors, logger: logger}
}

func (s *Service) Factors() Factors { return s.factors }

// ScoreFromConfidence is the exact 1..10 remap of a 0..1 confidence.
func ScoreFromConfidence(confidence float64) float64 {
	return clamp(MinScore+confidence*9, MinScore, MaxScore)
}

// Score is deterministic for identical inputs and factors. A failed run or a
// missing or empty payload gets the floor score with zero confidence.
func (s *Service) Score(in Input) Result {
	out := Result{Engine: in.Engine, Score: MinScore, ProcessingTime: in.ProcessingTime, Error: in.Error}
	if !in.Success {
		if out.Error == "" {
			out.Error = "extraction failed"
		}
		return out
	}
	if in.Payload == nil || strings.TrimSpace(in.Payload.Text) == "" {
		out.Error = "empty extraction"
		return out
	}

	b := s.measure(in)
	f := s.factors
	weighted := f.TextLength*b.TextLength +
		f.Structure*b.Structure +
		f.Readability*b.Readability +
		f.Speed*b.Speed +
		f.Completeness*b.Completeness
	conf := clamp(weighted/f.totalWeight(), 0, 1)

	out.Success = true
	out.Error = ""
	out.Breakdown = b
	out.Confidence = conf
	out.Score = ScoreFromConfidence(conf)
	s.logger.Debug("engine scored", "engine", in.Engine, "score", out.Score, "confidence", conf)
	return out
}

// ScoreResult scores an extraction result.
func (s *Service) ScoreResult(r extract.Result) Result {
	return s.Score(Input{
		Engine:         r.Engine,
		Payload:        r.Payload,
		ProcessingTime: r.ProcessingTime,
		Success:        r.Success,
		Error:          r.Error,
	})
}

func (s *Service) measure(in Input) Breakdown {
	p := in.Payload
	text := p.Text
	pages := len(p.Pages)
	if pages == 0 {
		pages = 1
	}

	var b Breakdown
	b.TextLength = clamp(float64(len([]rune(text)))/float64(s.factors.TargetChars), 0, 1)

	lines := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	b.Structure = 0.6*clamp(float64(len(p.Tables))/2, 0, 1) + 0.4*clamp(float64(lines)/float64(10*pages), 0, 1)

	b.Readability = 0.5*validate.PrintableRatio(text) + 0.5*validate.WordlikeRatio(text)

	switch {
	case in.ProcessingTime <= s.factors.TargetSeconds:
		b.Speed = 1
	default:
		b.Speed = s.factors.TargetSeconds / in.ProcessingTime
	}

	if len(p.Pages) == 0 {
		b.Completeness = 1
	} else {
		withText := 0
		for _, pg := range p.Pages {
			if strings.TrimSpace(pg.Text) != "" {
				withText++
			}
		}
		b.Completeness = float64(withText) / float64(len(p.Pages))
	}
	return b
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
