package detect

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
)

// PropertyCandidate is a known property a document may be about.
type PropertyCandidate struct {
	Code string `yaml:"property_code" json:"property_code"`
	Name string `yaml:"property_name" json:"property_name"`
	City string `yaml:"city" json:"city,omitempty"`
}

// PropertyMatch is one candidate's verdict with the lines that support it.
type PropertyMatch struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// PropertyDetection separates the document's subject property from
// properties it merely references.
type PropertyDetection struct {
	Primary          *PropertyMatch             `json:"primary_property"`
	Referenced       []PropertyMatch            `json:"referenced_properties"`
	Recommendation   *string                    `json:"recommendation"`
	ValidationStatus constants.ValidationStatus `json:"validation_status"`
}

const (
	headerWindow = 5

	headerCodePoints = 25
	headerNamePoints = 25
	headerCap        = 50
	metadataField    = 20
	metadataCity     = 10
	metadataCap      = 30
	bodyMention      = 5
	bodyCap          = 20
)

var arContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)receivable from`),
	regexp.MustCompile(`(?i)due from`),
	regexp.MustCompile(`(?i)owed by`),
	regexp.MustCompile(`(?i)a/r `),
	regexp.MustCompile(`(?i)account receivable`),
	regexp.MustCompile(`(?i)payable to`),
	regexp.MustCompile(`(?i)due to`),
	regexp.MustCompile(`\b\d{4}-\d{4}\b`),
}

var reMetadataField = regexp.MustCompile(`(?i)^\s*(?:property|entity|location)\s*(?:name|code)?\s*[:#-]\s*(.+)$`)

var nameStopwords = map[string]bool{
	"the": true, "of": true, "at": true, "and": true, "&": true,
	"llc": true, "lp": true, "inc": true,
}

// IsARContext reports whether a line references another entity's
// receivable or payable rather than the document's own subject.
func IsARContext(line string) bool {
	for _, re := range arContextPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

type scoredCandidate struct {
	cand       PropertyCandidate
	score      float64
	evidence   []string
	arEvidence []string
}

// DetectProperty scores candidates against first-page text in three capped
// layers: header (first five non-empty lines), metadata fields and body
// mentions. Lines in A/R context never count toward these layers; they are
// kept as evidence for referenced properties instead.
func DetectProperty(text string, candidates []PropertyCandidate) (out PropertyDetection) {
	out = PropertyDetection{Referenced: []PropertyMatch{}, ValidationStatus: constants.Uncertain}
	defer func() {
		if r := recover(); r != nil {
			out = PropertyDetection{Referenced: []PropertyMatch{}, ValidationStatus: constants.Uncertain}
		}
	}()
	if len(candidates) == 0 || strings.TrimSpace(text) == "" {
		return out
	}

	lines := nonEmptyLines(text)
	headerEnd := min(headerWindow, len(lines))

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Code) == "" && strings.TrimSpace(c.Name) == "" {
			continue
		}
		scored = append(scored, scoreCandidate(c, lines, headerEnd))
	}
	if len(scored) == 0 {
		return out
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	best := scored[0]
	if best.score < constants.PropertyPrimaryMinScore {
		out.Referenced = referenced(scored, math.Inf(1))
		return out
	}

	out.Primary = &PropertyMatch{
		Code:       best.cand.Code,
		Name:       best.cand.Name,
		Confidence: math.Min(best.score, 100),
		Evidence:   nonNil(best.evidence),
	}
	out.Referenced = referenced(scored[1:], best.score*constants.PropertyReferencedRatio)
	if best.score >= constants.PropertyRecommendMinScore {
		code := best.cand.Code
		out.Recommendation = &code
	}
	switch {
	case best.score >= constants.PropertyHighConfidence:
		out.ValidationStatus = constants.HighConfidence
	case best.score >= constants.PropertyMediumConfidence:
		out.ValidationStatus = constants.MediumConfidence
	}
	return out
}

func referenced(scored []scoredCandidate, below float64) []PropertyMatch {
	out := []PropertyMatch{}
	for _, s := range scored {
		if len(s.arEvidence) == 0 || s.score >= below {
			continue
		}
		ev := s.arEvidence
		if len(ev) > constants.PropertyReferencedMaxEvidence {
			ev = ev[:constants.PropertyReferencedMaxEvidence]
		}
		out = append(out, PropertyMatch{
			Code:       s.cand.Code,
			Name:       s.cand.Name,
			Confidence: math.Min(100, 40+20*float64(len(s.arEvidence))),
			Evidence:   append([]string(nil), ev...),
		})
	}
	return out
}

func scoreCandidate(c PropertyCandidate, lines []string, headerEnd int) scoredCandidate {
	s := scoredCandidate{cand: c}
	code := strings.ToLower(strings.TrimSpace(c.Code))
	name := strings.ToLower(strings.TrimSpace(c.Name))
	city := strings.ToLower(strings.TrimSpace(c.City))
	words := nameWords(name)

	var primary []string
	for _, line := range lines {
		if IsARContext(line) {
			if mentions(strings.ToLower(line), code, name) {
				s.arEvidence = append(s.arEvidence, line)
			}
			continue
		}
		primary = append(primary, line)
	}

	// header
	var headerText []string
	for _, line := range lines[:headerEnd] {
		if IsARContext(line) {
			continue
		}
		lower := strings.ToLower(line)
		headerText = append(headerText, lower)
		if mentionsAny(lower, code, words) {
			s.evidence = append(s.evidence, line)
		}
	}
	joined := strings.Join(headerText, "\n")
	var header float64
	if code != "" && containsWord(joined, code) {
		header += headerCodePoints
	}
	if len(words) > 0 {
		hit := 0
		for _, w := range words {
			if containsWord(joined, w) {
				hit++
			}
		}
		header += headerNamePoints * float64(hit) / float64(len(words))
	}
	header = math.Min(header, headerCap)

	// metadata
	var meta float64
	cityMatched := false
	for _, line := range primary {
		lower := strings.ToLower(line)
		if m := reMetadataField.FindStringSubmatch(lower); m != nil && mentions(m[1], code, name) {
			meta += metadataField
			s.evidence = appendOnce(s.evidence, line)
		}
		if !cityMatched && city != "" && containsWord(lower, city) {
			cityMatched = true
			meta += metadataCity
		}
	}
	meta = math.Min(meta, metadataCap)

	// body
	var body float64
	for _, line := range lines[headerEnd:] {
		if IsARContext(line) {
			continue
		}
		if mentions(strings.ToLower(line), code, name) {
			body += bodyMention
			s.evidence = appendOnce(s.evidence, line)
		}
	}
	body = math.Min(body, bodyCap)

	s.score = header + meta + body
	return s
}

func mentionsAny(lower, code string, words []string) bool {
	if code != "" && containsWord(lower, code) {
		return true
	}
	for _, w := range words {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

func mentions(lower, code, name string) bool {
	return (code != "" && containsWord(lower, code)) || (name != "" && strings.Contains(lower, name))
}

// containsWord matches needle in haystack bounded by non-alphanumerics.
func containsWord(haystack, needle string) bool {
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if (start == 0 || !isWordByte(haystack[start-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func nameWords(name string) []string {
	var out []string
	for _, w := range strings.Fields(name) {
		w = strings.Trim(w, ".,;:()")
		if w == "" || nameStopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
