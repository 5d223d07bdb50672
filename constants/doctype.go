package constants

import (
	"strings"
)

type DocumentType string

const (
	BalanceSheet    DocumentType = "balance_sheet"
	IncomeStatement DocumentType = "income_statement"
	CashFlow        DocumentType = "cash_flow"
	RentRoll        DocumentType = "rent_roll"
	UnknownDocument DocumentType = "unknown"
)

// KnownDocumentTypes is the detection order; ties resolve to the earlier entry.
var KnownDocumentTypes = []DocumentType{
	BalanceSheet,
	IncomeStatement,
	CashFlow,
	RentRoll,
}

func DocumentTypesAsStrings() []string {
	result := make([]string, len(KnownDocumentTypes))
	for i, dt := range KnownDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalDocumentType maps a free-form label (from a filename, an upload form,
// or a remote model) onto a DocumentType.
func CanonicalDocumentType(input string) (DocumentType, bool) {
	if input == "" {
		return UnknownDocument, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", " ", "_", " ").Replace(normalized)

	synonyms := map[string]DocumentType{
		"balance sheet":                   BalanceSheet,
		"bs":                              BalanceSheet,
		"statement of financial position": BalanceSheet,
		"income statement":                IncomeStatement,
		"p&l":                             IncomeStatement,
		"pnl":                             IncomeStatement,
		"profit and loss":                 IncomeStatement,
		"operating statement":             IncomeStatement,
		"cash flow":                       CashFlow,
		"cash flow statement":             CashFlow,
		"statement of cash flows":         CashFlow,
		"rent roll":                       RentRoll,
		"rentroll":                        RentRoll,
		"tenant roster":                   RentRoll,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range KnownDocumentTypes {
		if normalized == strings.ReplaceAll(string(dt), "_", " ") {
			return dt, true
		}
	}

	return UnknownDocument, false
}

// ValidationStatus grades a property identity detection.
type ValidationStatus string

const (
	HighConfidence   ValidationStatus = "HIGH_CONFIDENCE"
	MediumConfidence ValidationStatus = "MEDIUM_CONFIDENCE"
	Uncertain        ValidationStatus = "UNCERTAIN"
)
