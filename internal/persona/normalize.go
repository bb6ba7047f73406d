package persona

import (
	"math"

	"personakit/internal/types"
)

// Normalize repairs a generated tree so it starts out saveable: positions are
// made dense where missing or duplicated, unknown levels fall back to Basic,
// and each distribution is rescaled to total exactly 100 at two decimals.
// Distributions that sum to zero are left alone.
func Normalize(tree types.PersonaTree) types.PersonaTree {
	out := SavePayload(tree)

	if !positionsUsable(categoryPositions(out.Categories)) {
		for i := range out.Categories {
			out.Categories[i].Position = i + 1
		}
	}
	catWeights := make([]float64, len(out.Categories))
	for i := range out.Categories {
		c := &out.Categories[i]
		catWeights[i] = c.WeightPercentage

		subPositions := make([]int, len(c.Subcategories))
		subWeights := make([]float64, len(c.Subcategories))
		for j, s := range c.Subcategories {
			subPositions[j] = s.Position
			subWeights[j] = s.WeightPercentage
		}
		if !positionsUsable(subPositions) {
			for j := range c.Subcategories {
				c.Subcategories[j].Position = j + 1
			}
		}
		for j, w := range rescale(subWeights) {
			c.Subcategories[j].WeightPercentage = w
			if !types.IsValidLevel(c.Subcategories[j].LevelID) {
				c.Subcategories[j].LevelID = types.LevelBasic
			}
		}
		if c.RangeMin > c.RangeMax {
			c.RangeMin, c.RangeMax = c.RangeMax, c.RangeMin
		}
	}
	for i, w := range rescale(catWeights) {
		out.Categories[i].WeightPercentage = w
	}
	return out
}

func categoryPositions(categories []types.Category) []int {
	positions := make([]int, len(categories))
	for i, c := range categories {
		positions[i] = c.Position
	}
	return positions
}

// positionsUsable reports whether every position is positive and unique
func positionsUsable(positions []int) bool {
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p <= 0 || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// rescale scales weights to sum to 100 rounded to cents, assigning the
// rounding remainder to the largest weight.
func rescale(weights []float64) []float64 {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	out := make([]float64, len(weights))
	if total == 0 {
		copy(out, weights)
		return out
	}

	sum := 0.0
	largest := 0
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		out[i] = math.Round(w/total*TargetTotal*100) / 100
		sum += out[i]
		if out[i] > out[largest] {
			largest = i
		}
	}
	out[largest] = math.Round((out[largest]+TargetTotal-sum)*100) / 100
	return out
}
