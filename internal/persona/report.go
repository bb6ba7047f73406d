package persona

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"personakit/internal/errors"
	"personakit/internal/types"
)

// Issue locates one problem in a persona payload. Loc follows the path of
// the offending field, e.g. ["categories", 0, "weight_percentage"].
type Issue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// CheckSchema reports structural problems a decoded payload must not carry:
// duplicate positions, unknown proficiency levels and negative weights.
func CheckSchema(tree types.PersonaTree) []Issue {
	var issues []Issue
	seenCategories := make(map[int]bool)
	for i, c := range tree.Categories {
		if seenCategories[c.Position] {
			issues = append(issues, Issue{
				Loc: []any{"categories", i, "position"},
				Msg: fmt.Sprintf("duplicate category position %d", c.Position),
			})
		}
		seenCategories[c.Position] = true
		if c.WeightPercentage < 0 {
			issues = append(issues, Issue{
				Loc: []any{"categories", i, "weight_percentage"},
				Msg: "weight must not be negative",
			})
		}
		if c.RangeMin > c.RangeMax {
			issues = append(issues, Issue{
				Loc: []any{"categories", i, "range_min"},
				Msg: "range_min must not exceed range_max",
			})
		}
		seenSubs := make(map[int]bool)
		for j, s := range c.Subcategories {
			if seenSubs[s.Position] {
				issues = append(issues, Issue{
					Loc: []any{"categories", i, "subcategories", j, "position"},
					Msg: fmt.Sprintf("duplicate subcategory position %d", s.Position),
				})
			}
			seenSubs[s.Position] = true
			if s.WeightPercentage < 0 {
				issues = append(issues, Issue{
					Loc: []any{"categories", i, "subcategories", j, "weight_percentage"},
					Msg: "weight must not be negative",
				})
			}
			if !types.IsValidLevel(s.LevelID) {
				issues = append(issues, Issue{
					Loc: []any{"categories", i, "subcategories", j, "level_id"},
					Msg: fmt.Sprintf("level_id %q must be one of 1-5", s.LevelID),
				})
			}
		}
	}
	return issues
}

// SaveBlockers lists the reasons canSave is false, in the order the checks run
func SaveBlockers(tree types.PersonaTree) []Issue {
	var issues []Issue
	if !IsTotalValid(tree) {
		issues = append(issues, Issue{
			Loc: []any{"categories"},
			Msg: fmt.Sprintf("Category weights must total 100%% (currently %s%%)", formatPercent(TotalCategoryWeight(tree))),
		})
	}
	for i, c := range tree.Categories {
		if total := sumSubcategories(c); !withinTolerance(total) {
			issues = append(issues, Issue{
				Loc: []any{"categories", i, "subcategories"},
				Msg: fmt.Sprintf("Subcategory weights in %q must total 100%% (currently %s%%)", c.Name, formatPercent(total)),
			})
		}
	}
	if !IsNameValid(tree) {
		issues = append(issues, Issue{Loc: []any{"name"}, Msg: "Persona name is required"})
	}
	return issues
}

// JoinIssues renders issues as one human-readable string
func JoinIssues(issues []Issue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, is.Msg)
	}
	return strings.Join(parts, "; ")
}

// BlockedError converts save blockers into the validation error reported to callers
func BlockedError(tree types.PersonaTree) error {
	issues := SaveBlockers(tree)
	if len(issues) == 0 {
		return nil
	}
	var code string
	switch {
	case !IsTotalValid(tree):
		code = errors.ErrCodeWeightTotalInvalid
	case !IsEachCategoryValid(tree):
		code = errors.ErrCodeSubcategoryTotalInvalid
	default:
		code = errors.ErrCodePersonaNameRequired
	}
	return errors.NewValidationError(code, JoinIssues(issues), nil).
		WithContext("issue_count", len(issues))
}

// Validate builds the full validation report of tree against baseline
func Validate(tree types.PersonaTree, baseline types.Baseline) types.ValidationReport {
	total := TotalCategoryWeight(tree)
	warnings := RangeWarnings(tree, baseline)

	report := types.ValidationReport{
		Name:               tree.Name,
		TotalWeight:        round2(total),
		TotalValid:         IsTotalValid(tree),
		EachCategoryValid:  IsEachCategoryValid(tree),
		NameValid:          IsNameValid(tree),
		HasRangeViolations: len(warnings) > 0,
		Categories:         make([]types.CategoryReport, 0, len(tree.Categories)),
	}
	report.CanSave = report.TotalValid && report.EachCategoryValid && report.NameValid
	if len(warnings) > 0 {
		report.RangeWarnings = warnings
	}

	for _, c := range tree.Categories {
		subTotal := sumSubcategories(c)
		report.Categories = append(report.Categories, types.CategoryReport{
			Position:         c.Position,
			Name:             c.Name,
			WeightPercentage: c.WeightPercentage,
			SubcategoryTotal: round2(subTotal),
			Valid:            withinTolerance(subTotal),
			RangeWarning:     warnings[c.Position],
		})
	}

	for _, is := range SaveBlockers(tree) {
		report.Errors = append(report.Errors, is.Msg)
	}
	for _, is := range CheckSchema(tree) {
		report.Errors = append(report.Errors, is.Msg)
	}
	return report
}

// SortedWarningPositions returns the category positions of warnings in ascending order
func SortedWarningPositions(warnings map[int]string) []int {
	positions := make([]int, 0, len(warnings))
	for pos := range warnings {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
