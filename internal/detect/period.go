package detect

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PeriodRange is an explicit "<Month> <Year> - <Month> <Year>" span.
type PeriodRange struct {
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	StartMonth int    `json:"start_month"`
	EndMonth   int    `json:"end_month"`
	Text       string `json:"text"`
}

// PeriodDetection is the reporting period recovered from text. Year and Month
// are nil when unknown.
type PeriodDetection struct {
	Year        *int         `json:"year"`
	Month       *int         `json:"month"`
	PeriodText  string       `json:"period_text"`
	Confidence  float64      `json:"confidence"`
	PeriodRange *PeriodRange `json:"period_range"`
	Source      string       `json:"source,omitempty"` // which rule fired first
}

// Confidence per contributing rule.
const (
	confMortgageAsOf  = 100
	confFromDate      = 60
	confStatementDate = 50
	confDateFrequency = 30
	confYearFrequency = 20
	confMonthContext  = 25
	confMonthBare     = 10
	confRange         = 20

	leaseWindow   = 50
	headerLines   = 10
	minPeriodYear = 2020
	maxPeriodYear = 2030
)

var months = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var monthNames = [...]string{"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

const monthAlt = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`

var (
	reMortgageAsOf = regexp.MustCompile(`(?is)\b(?:loan|payment)\s+information\b.{0,400}?\bas\s+of\s+date\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	reFromDate     = regexp.MustCompile(`(?i)\bfrom\s+date\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})`)

	statementPhrase = `(?:statement\s+date|as\s+of\s+date|report\s+date|dated|as\s+of|for\s+the\s+(?:period|month|quarter|year)\s+end(?:ing|ed))`
	reStatementNum  = regexp.MustCompile(`(?i)\b` + statementPhrase + `\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	reStatementName = regexp.MustCompile(`(?i)\b` + statementPhrase + `\s*:?\s*` + monthAlt + `\.?\s+(?:\d{1,2},?\s+)?(\d{4})\b`)

	reNumericDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reLeaseEnd    = regexp.MustCompile(`(?i)\b(?:lease\s+to|lease\s+expiration|expiration\s+date|lease\s+end)\b`)
	reYear        = regexp.MustCompile(`\b(20\d{2})\b`)

	reMonthContext = regexp.MustCompile(`(?i)\b(?:for\s+the\s+(?:period|month|quarter|year)\s+end(?:ing|ed)|as\s+of|month\s+of|period\s+of|month\s+end(?:ing|ed)|ending)\s+` + monthAlt + `\b`)
	reMonthBare    = regexp.MustCompile(`(?i)\b` + monthAlt + `\b`)

	reRangeFull = regexp.MustCompile(`(?i)\b` + monthAlt + `\.?\s+(\d{4})\s*(?:-|–|—|to|through|thru)\s*` + monthAlt + `\.?\s+(\d{4})\b`)
	reRangeYear = regexp.MustCompile(`(?i)\b` + monthAlt + `\.?\s*(?:-|–|—|to|through|thru)\s*` + monthAlt + `\.?\s+(\d{4})\b`)
)

// DetectPeriod recovers the reporting period from sample text (normally the
// first two pages). Rules run in priority order and each runs only when the
// previous found nothing; a mortgage "As of Date" returns immediately. An
// explicit month range backfills whatever is still missing from its end, and
// the month-name rules only run if the month is unknown after that.
func DetectPeriod(text string) (out PeriodDetection) {
	defer func() {
		if r := recover(); r != nil {
			out = PeriodDetection{}
		}
	}()

	if y, m, ok := firstNumericDate(reMortgageAsOf, text); ok {
		return newPeriod(y, m, confMortgageAsOf, "mortgage_as_of")
	}

	var p PeriodDetection
	switch {
	case setFrom(&p, reFromDate, text, confFromDate, "from_date"):
	case setFrom(&p, reStatementNum, text, confStatementDate, "statement_date"):
	case setFromMonthName(&p, reStatementName, text, confStatementDate, "statement_date"):
	case setMostFrequentDate(&p, text):
	}

	if p.Year == nil {
		if y, ok := mostFrequentYear(text); ok {
			p.Year = intPtr(y)
			p.Confidence += confYearFrequency
			p.setSource("year_frequency")
		}
	}
	if r := detectRange(text); r != nil {
		p.PeriodRange = r
		if p.Year == nil {
			p.Year = intPtr(r.EndYear)
		}
		if p.Month == nil {
			p.Month = intPtr(r.EndMonth)
		}
		p.Confidence += confRange
		p.setSource("month_range")
	}

	if p.Month == nil {
		header := headerText(text, headerLines)
		if m, ok := firstMonth(reMonthContext, header); ok {
			p.Month = intPtr(m)
			p.Confidence += confMonthContext
			p.setSource("month_context")
		} else if m, ok := firstMonth(reMonthBare, header); ok {
			p.Month = intPtr(m)
			p.Confidence += confMonthBare
			p.setSource("month_bare")
		}
	}

	p.Confidence = math.Min(p.Confidence, 100)
	p.PeriodText = periodText(p)
	return p
}

func newPeriod(year, month int, conf float64, source string) PeriodDetection {
	p := PeriodDetection{Year: intPtr(year), Month: intPtr(month), Confidence: conf, Source: source}
	p.PeriodText = periodText(p)
	return p
}

func (p *PeriodDetection) setSource(s string) {
	if p.Source == "" {
		p.Source = s
	}
}

func setFrom(p *PeriodDetection, re *regexp.Regexp, text string, conf float64, source string) bool {
	y, m, ok := firstNumericDate(re, text)
	if !ok {
		return false
	}
	*p = PeriodDetection{Year: intPtr(y), Month: intPtr(m), Confidence: conf, Source: source}
	return true
}

func setFromMonthName(p *PeriodDetection, re *regexp.Regexp, text string, conf float64, source string) bool {
	for _, sm := range re.FindAllStringSubmatch(text, -1) {
		m := months[strings.ToLower(sm[1])]
		y, err := strconv.Atoi(sm[2])
		if err != nil || m == 0 || !plausibleYear(y) {
			continue
		}
		*p = PeriodDetection{Year: intPtr(y), Month: intPtr(m), Confidence: conf, Source: source}
		return true
	}
	return false
}

// firstNumericDate reads the first M/D/YYYY capture group triple of re.
func firstNumericDate(re *regexp.Regexp, text string) (int, int, bool) {
	for _, sm := range re.FindAllStringSubmatch(text, -1) {
		if y, m, ok := parseMDY(sm[1], sm[2], sm[3]); ok {
			return y, m, true
		}
	}
	return 0, 0, false
}

func parseMDY(ms, ds, ys string) (int, int, bool) {
	m, err1 := strconv.Atoi(ms)
	d, err2 := strconv.Atoi(ds)
	y, err3 := strconv.Atoi(ys)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || !plausibleYear(y) {
		return 0, 0, false
	}
	return y, m, true
}

func plausibleYear(y int) bool { return y >= 1990 && y <= 2100 }

type monthYear struct{ year, month int }

// setMostFrequentDate counts M/D/YYYY dates, skipping any that sit within
// leaseWindow characters of a lease-expiration keyword.
func setMostFrequentDate(p *PeriodDetection, text string) bool {
	var leaseSpans [][]int
	for _, loc := range reLeaseEnd.FindAllStringIndex(text, -1) {
		leaseSpans = append(leaseSpans, loc)
	}

	counts := map[monthYear]int{}
	var order []monthYear
	for _, loc := range reNumericDate.FindAllStringSubmatchIndex(text, -1) {
		if nearLease(loc[0], loc[1], leaseSpans) {
			continue
		}
		y, m, ok := parseMDY(text[loc[2]:loc[3]], text[loc[4]:loc[5]], text[loc[6]:loc[7]])
		if !ok {
			continue
		}
		k := monthYear{y, m}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return false
	}
	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	*p = PeriodDetection{Year: intPtr(best.year), Month: intPtr(best.month), Confidence: confDateFrequency, Source: "date_frequency"}
	return true
}

func nearLease(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start <= s[1]+leaseWindow && end >= s[0]-leaseWindow {
			return true
		}
	}
	return false
}

func mostFrequentYear(text string) (int, bool) {
	counts := map[int]int{}
	var order []int
	for _, sm := range reYear.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(sm[1])
		if y < minPeriodYear || y > maxPeriodYear {
			continue
		}
		if counts[y] == 0 {
			order = append(order, y)
		}
		counts[y]++
	}
	if len(order) == 0 {
		return 0, false
	}
	best := order[0]
	for _, y := range order[1:] {
		if counts[y] > counts[best] {
			best = y
		}
	}
	return best, true
}

func firstMonth(re *regexp.Regexp, text string) (int, bool) {
	sm := re.FindStringSubmatch(text)
	if sm == nil {
		return 0, false
	}
	m, ok := months[strings.ToLower(sm[1])]
	return m, ok
}

func detectRange(text string) *PeriodRange {
	if sm := reRangeFull.FindStringSubmatch(text); sm != nil {
		sy, _ := strconv.Atoi(sm[2])
		ey, _ := strconv.Atoi(sm[4])
		return &PeriodRange{
			StartMonth: months[strings.ToLower(sm[1])],
			StartYear:  sy,
			EndMonth:   months[strings.ToLower(sm[3])],
			EndYear:    ey,
			Text:       strings.TrimSpace(sm[0]),
		}
	}
	if sm := reRangeYear.FindStringSubmatch(text); sm != nil {
		y, _ := strconv.Atoi(sm[3])
		return &PeriodRange{
			StartMonth: months[strings.ToLower(sm[1])],
			StartYear:  y,
			EndMonth:   months[strings.ToLower(sm[2])],
			EndYear:    y,
			Text:       strings.TrimSpace(sm[0]),
		}
	}
	return nil
}

func headerText(text string, n int) string {
	lines := nonEmptyLines(text)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func periodText(p PeriodDetection) string {
	switch {
	case p.PeriodRange != nil:
		return p.PeriodRange.Text
	case p.Year != nil && p.Month != nil:
		return monthNames[*p.Month] + " " + strconv.Itoa(*p.Year)
	case p.Year != nil:
		return strconv.Itoa(*p.Year)
	default:
		return ""
	}
}

func intPtr(v int) *int { return &v }
