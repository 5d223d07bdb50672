package constants

import (
	"fmt"
	"strings"
)

// Strategy selects how the orchestrator picks engines for one document.
type Strategy string

const (
	StrategyAuto        Strategy = "auto"
	StrategyFast        Strategy = "fast"
	StrategyAccurate    Strategy = "accurate"
	StrategyMultiEngine Strategy = "multi_engine"
)

var allStrategies = []Strategy{StrategyAuto, StrategyFast, StrategyAccurate, StrategyMultiEngine}

// ParseStrategy maps a user supplied label onto a Strategy. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return StrategyAuto, nil
	}
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, st := range allStrategies {
		if string(st) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Category is the coarse physical layout of a document.
type Category string

const (
	CategoryDigital    Category = "digital"
	CategoryScanned    Category = "scanned"
	CategoryTableHeavy Category = "table_heavy"
	CategoryMixed      Category = "mixed"
)

// QualityLevel is the ordered discrete extraction quality scale.
type QualityLevel int

const (
	QualityPoor QualityLevel = iota
	QualityFair
	QualityGood
	QualityExcellent
)

func (q QualityLevel) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	case QualityFair:
		return "fair"
	default:
		return "poor"
	}
}

func (q QualityLevel) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QualityLevel) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "excellent":
		*q = QualityExcellent
	case "good":
		*q = QualityGood
	case "fair":
		*q = QualityFair
	case "poor":
		*q = QualityPoor
	default:
		return fmt.Errorf("unknown quality level %q", string(b))
	}
	return nil
}
