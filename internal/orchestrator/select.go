package orchestrator

import (
	"sort"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/validate"
)

// Selection is a result with its validation.
type Selection struct {
	Result     extract.Result  `json:"result"`
	Validation validate.Result `json:"validation"`
}

// SelectBest picks the result with the highest validated confidence, ties
// going to the earlier result. A single result is returned as is; no results
// yield a failed selection for engine "none".
func SelectBest(results []extract.Result) Selection {
	switch len(results) {
	case 0:
		none := extract.Result{Engine: constants.EngineNone, Error: "no engine succeeded"}
		return Selection{Result: none, Validation: validate.Validate(none)}
	case 1:
		return Selection{Result: results[0], Validation: validate.Validate(results[0])}
	}

	ranked := make([]Selection, len(results))
	for i, r := range results {
		ranked[i] = Selection{Result: r, Validation: validate.Validate(r)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Validation.Confidence > ranked[j].Validation.Confidence
	})
	return ranked[0]
}
