// Package persona implements the weight-distribution rules of a persona tree:
// validity queries, range bands, pure edits and the editing session that gates saving.
package persona

import (
	"math"
	"strings"

	"personakit/internal/types"
)

// WeightTolerance is the absolute slack allowed when comparing a total to 100
const WeightTolerance = 0.01

// TargetTotal is the sum every distribution must reach
const TargetTotal = 100.0

// TotalCategoryWeight sums the weights of all categories
func TotalCategoryWeight(tree types.PersonaTree) float64 {
	total := 0.0
	for _, c := range tree.Categories {
		total += c.WeightPercentage
	}
	return total
}

// SubcategoryWeightTotal sums the subcategory weights of the category at catPos.
// Unknown categories total 0.
func SubcategoryWeightTotal(tree types.PersonaTree, catPos int) float64 {
	idx := categoryIndex(tree, catPos)
	if idx < 0 {
		return 0
	}
	return sumSubcategories(tree.Categories[idx])
}

func sumSubcategories(c types.Category) float64 {
	total := 0.0
	for _, s := range c.Subcategories {
		total += s.WeightPercentage
	}
	return total
}

// IsTotalValid reports whether the category weights sum to 100
func IsTotalValid(tree types.PersonaTree) bool {
	return withinTolerance(TotalCategoryWeight(tree))
}

// IsEachCategoryValid reports whether every category's subcategories sum to 100.
// A tree without categories is vacuously valid.
func IsEachCategoryValid(tree types.PersonaTree) bool {
	for _, c := range tree.Categories {
		if !withinTolerance(sumSubcategories(c)) {
			return false
		}
	}
	return true
}

// IsNameValid reports whether the persona has a non-blank name
func IsNameValid(tree types.PersonaTree) bool {
	return strings.TrimSpace(tree.Name) != ""
}

// CanSave is the hard save gate. Range violations never block it.
func CanSave(tree types.PersonaTree) bool {
	return IsTotalValid(tree) && IsEachCategoryValid(tree) && IsNameValid(tree)
}

func withinTolerance(total float64) bool {
	return math.Abs(total-TargetTotal) < WeightTolerance
}

func categoryIndex(tree types.PersonaTree, catPos int) int {
	for i, c := range tree.Categories {
		if c.Position == catPos {
			return i
		}
	}
	return -1
}

func subcategoryIndex(c types.Category, subPos int) int {
	for i, s := range c.Subcategories {
		if s.Position == subPos {
			return i
		}
	}
	return -1
}
