// Package validate grades one extraction result on a 0..100 scale. It is a
// pure function of the result.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
)

// Diagnostics are the measurements behind a confidence score.
type Diagnostics struct {
	Chars          int      `json:"chars"`
	Pages          int      `json:"pages"`
	PagesWithText  int      `json:"pages_with_text"`
	CharsPerPage   float64  `json:"chars_per_page"`
	PrintableRatio float64  `json:"printable_ratio"`
	WordlikeRatio  float64  `json:"wordlike_ratio"`
	Tables         int      `json:"tables"`
	HasAmounts     bool     `json:"has_amounts"`
	Issues         []string `json:"issues,omitempty"`
}

// Result is derived from exactly one extraction result.
type Result struct {
	Confidence  float64                `json:"confidence"`
	Quality     constants.QualityLevel `json:"quality"`
	Diagnostics Diagnostics            `json:"diagnostics"`
}

// NeedsReview reports whether the result is below the review threshold.
func (r Result) NeedsReview() bool {
	return r.Confidence < constants.ReviewConfidence
}

var reAmount = regexp.MustCompile(`\$?\(?\d{1,3}(,\d{3})+(\.\d{2})?\)?|\b\d+\.\d{2}\b`)

// Validate scores res. Points:
//   - text density by chars/page: 40 (>=500), 30 (>=200), 15 (>=50), else 5
//   - printable ratio: up to 25
//   - word-like token ratio: up to 20
//   - any detected table: 10
//   - currency amounts present: 5
//   - share of pages with text: up to 10
//
// The sum is capped at 100. Failed or empty results score 0.
func Validate(res extract.Result) Result {
	if !res.Success || res.Payload == nil {
		return Result{Quality: constants.QualityPoor, Diagnostics: Diagnostics{Issues: []string{"engine failed"}}}
	}
	p := res.Payload
	text := p.Text
	d := Diagnostics{
		Chars:  len([]rune(text)),
		Pages:  len(p.Pages),
		Tables: len(p.Tables),
	}
	if d.Pages == 0 && p.Metadata != nil {
		d.Pages = p.Metadata.PageCount
	}
	if strings.TrimSpace(text) == "" {
		d.Issues = append(d.Issues, "empty text")
		return Result{Quality: constants.QualityPoor, Diagnostics: d}
	}
	if d.Pages == 0 {
		d.Pages = 1
	}
	for _, pg := range p.Pages {
		if strings.TrimSpace(pg.Text) != "" {
			d.PagesWithText++
		}
	}
	if len(p.Pages) == 0 {
		d.PagesWithText = 1
	}

	d.CharsPerPage = float64(d.Chars) / float64(d.Pages)
	d.PrintableRatio = PrintableRatio(text)
	d.WordlikeRatio = WordlikeRatio(text)
	d.HasAmounts = reAmount.MatchString(text)

	var score float64
	switch {
	case d.CharsPerPage >= 500:
		score += 40
	case d.CharsPerPage >= 200:
		score += 30
	case d.CharsPerPage >= 50:
		score += 15
	default:
		score += 5
		d.Issues = append(d.Issues, "sparse text")
	}
	score += 25 * d.PrintableRatio
	if d.PrintableRatio < 0.85 {
		d.Issues = append(d.Issues, "garbled characters")
	}
	score += 20 * d.WordlikeRatio
	if d.Tables > 0 {
		score += 10
	}
	if d.HasAmounts {
		score += 5
	}
	score += 10 * float64(d.PagesWithText) / float64(d.Pages)
	if d.PagesWithText < d.Pages {
		d.Issues = append(d.Issues, "pages without text")
	}

	if score > 100 {
		score = 100
	}
	return Result{Confidence: score, Quality: Level(score), Diagnostics: d}
}

// Level buckets a 0..100 confidence.
func Level(confidence float64) constants.QualityLevel {
	switch {
	case confidence >= 90:
		return constants.QualityExcellent
	case confidence >= 75:
		return constants.QualityGood
	case confidence >= 50:
		return constants.QualityFair
	default:
		return constants.QualityPoor
	}
}

// PrintableRatio is the share of runes that are printable; private-use,
// replacement and non-whitespace control runes count against it.
func PrintableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == unicode.ReplacementChar:
		return true
	case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

// WordlikeRatio is the share of tokens 2..15 runes long containing a letter
// or digit.
func WordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n := 0
	for _, f := range fields {
		l := len([]rune(f))
		if l < 2 || l > 15 {
			continue
		}
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return float64(n) / float64(len(fields))
}
