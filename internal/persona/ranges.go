package persona

import (
	"fmt"
	"math"
	"strconv"

	"personakit/internal/types"
)

// CaptureBaseline snapshots the current category weights keyed by position
func CaptureBaseline(tree types.PersonaTree) types.Baseline {
	baseline := make(types.Baseline, len(tree.Categories))
	for _, c := range tree.Categories {
		baseline[c.Position] = c.WeightPercentage
	}
	return baseline
}

// Band returns the absolute allowed interval of the category at catPos.
// ok is false when the category or its baseline entry is missing.
func Band(tree types.PersonaTree, baseline types.Baseline, catPos int) (lo, hi float64, ok bool) {
	original, found := baseline[catPos]
	if !found {
		return 0, 0, false
	}
	idx := categoryIndex(tree, catPos)
	if idx < 0 {
		return 0, 0, false
	}
	c := tree.Categories[idx]
	return original + c.RangeMin, original + c.RangeMax, true
}

// ValidateCategoryRange checks proposed against the category's allowed band.
// Categories without a baseline entry are exempt.
func ValidateCategoryRange(tree types.PersonaTree, baseline types.Baseline, catPos int, proposed float64) types.RangeCheck {
	lo, hi, ok := Band(tree, baseline, catPos)
	if !ok {
		return types.RangeCheck{Valid: true}
	}
	if proposed < lo || proposed > hi {
		return types.RangeCheck{
			Valid: false,
			Message: fmt.Sprintf("Weight must be between %s%% and %s%% (AI recommended range)",
				formatPercent(lo), formatPercent(hi)),
		}
	}
	return types.RangeCheck{Valid: true}
}

// RangeWarnings evaluates every category of tree and returns the violated ones keyed by position
func RangeWarnings(tree types.PersonaTree, baseline types.Baseline) map[int]string {
	warnings := make(map[int]string)
	for _, c := range tree.Categories {
		if check := ValidateCategoryRange(tree, baseline, c.Position, c.WeightPercentage); !check.Valid {
			warnings[c.Position] = check.Message
		}
	}
	return warnings
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
