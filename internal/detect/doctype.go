package detect

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
)

const (
	priorityPoints  = 3
	secondaryPoints = 1

	cashFlowStatement = "cash flow statement"
)

// DocumentTypeDetection is the document-type verdict.
type DocumentTypeDetection struct {
	DetectedType  constants.DocumentType `json:"detected_type"`
	Confidence    float64                `json:"confidence"`
	KeywordsFound []string               `json:"keywords_found"`
}

type keywordSet struct {
	priority  []string
	secondary []string
}

var documentKeywords = map[constants.DocumentType]keywordSet{
	constants.BalanceSheet: {
		priority:  []string{"balance sheet", "statement of financial position", "assets and liabilities"},
		secondary: []string{"assets", "liabilities", "equity", "total assets", "current assets"},
	},
	constants.IncomeStatement: {
		priority:  []string{"income statement", "profit and loss", "profit & loss", "statement of operations", "p&l", "operating statement"},
		secondary: []string{"revenue", "income", "expenses", "net income", "operating expenses", "statement of income", "income statement"},
	},
	constants.CashFlow: {
		priority:  []string{cashFlowStatement, "statement of cash flows", "cash flows"},
		secondary: []string{"cash flow", "operating activities", "investing activities", "financing activities", "net change in cash"},
	},
	constants.RentRoll: {
		priority:  []string{"rent roll", "tenant roster", "lease schedule"},
		secondary: []string{"tenant", "lease", "unit", "square feet", "sq ft", "occupancy", "monthly rent"},
	},
}

var keywordPatterns = compileKeywordPatterns()

func compileKeywordPatterns() map[string]*regexp.Regexp {
	out := map[string]*regexp.Regexp{}
	for _, set := range documentKeywords {
		for _, kw := range append(append([]string(nil), set.priority...), set.secondary...) {
			if _, ok := out[kw]; !ok {
				out[kw] = regexp.MustCompile(`(?i)(^|[^\pL\pN])` + regexp.QuoteMeta(kw) + `($|[^\pL\pN])`)
			}
		}
	}
	return out
}

func containsKeyword(text, kw string) bool {
	return keywordPatterns[kw].MatchString(text)
}

// DetectDocumentType scores every known type by keyword presence. Priority
// phrases are worth 3 points and secondary keywords 1. The winner is the
// highest score, ties going to the earlier type in KnownDocumentTypes.
// Confidence is the score over the type's maximum, as a percentage.
func DetectDocumentType(text string) (out DocumentTypeDetection) {
	out = DocumentTypeDetection{DetectedType: constants.UnknownDocument, KeywordsFound: []string{}}
	defer func() {
		if r := recover(); r != nil {
			out = DocumentTypeDetection{DetectedType: constants.UnknownDocument, KeywordsFound: []string{}}
		}
	}()

	lower := strings.ToLower(text)
	hasCashFlowStatement := containsKeyword(lower, cashFlowStatement)

	bestScore := 0
	for _, dt := range constants.KnownDocumentTypes {
		set := documentKeywords[dt]
		score := 0
		var found []string
		for _, kw := range set.priority {
			if containsKeyword(lower, kw) {
				score += priorityPoints
				found = append(found, kw)
			}
		}
		for _, kw := range set.secondary {
			if !containsKeyword(lower, kw) {
				continue
			}
			if dt == constants.CashFlow && kw == "cash flow" && hasCashFlowStatement {
				continue
			}
			if dt == constants.IncomeStatement && hasCashFlowStatement && kw == "income statement" {
				continue
			}
			score += secondaryPoints
			found = append(found, kw)
		}
		if score > bestScore {
			max := priorityPoints*len(set.priority) + secondaryPoints*len(set.secondary)
			bestScore = score
			out = DocumentTypeDetection{
				DetectedType:  dt,
				Confidence:    math.Min(100, float64(score)/float64(max)*100),
				KeywordsFound: found,
			}
		}
	}
	return out
}

// DocumentTypeFromLabel turns a caller-supplied label ("P&L", "rent-roll")
// into a certain verdict, bypassing keyword detection.
func DocumentTypeFromLabel(label string) (DocumentTypeDetection, error) {
	dt, ok := constants.CanonicalDocumentType(label)
	if !ok {
		return DocumentTypeDetection{}, fmt.Errorf("%w: unknown document type %q, want one of %s",
			common.ErrInvalidInput, label, strings.Join(constants.DocumentTypesAsStrings(), ", "))
	}
	return DocumentTypeDetection{DetectedType: dt, Confidence: 100, KeywordsFound: []string{}}, nil
}
