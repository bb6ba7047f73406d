package persona

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"personakit/internal/types"
)

// Defaults applied to a freshly added subcategory
const (
	NewSubcategoryName  = "New Skill"
	NewSubcategoryLevel = types.LevelBasic
	NewCategoryName     = "New Category"
)

// Clone returns a deep copy of tree so edits never alias the caller's slices
func Clone(tree types.PersonaTree) types.PersonaTree {
	out := tree
	if tree.Categories == nil {
		return out
	}
	out.Categories = make([]types.Category, len(tree.Categories))
	for i, c := range tree.Categories {
		out.Categories[i] = cloneCategory(c)
	}
	return out
}

func cloneCategory(c types.Category) types.Category {
	out := c
	if c.Subcategories != nil {
		out.Subcategories = make([]types.Subcategory, len(c.Subcategories))
		for j, s := range c.Subcategories {
			if s.Skillset.Technologies != nil {
				s.Skillset.Technologies = append([]string{}, s.Skillset.Technologies...)
			}
			out.Subcategories[j] = s
		}
	}
	return out
}

// ParseWeight converts user input into a weight. Anything that is not a finite
// number yields prev, so a weight is never NaN.
func ParseWeight(raw string, prev float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return prev
	}
	return sanitizeWeight(v, prev)
}

func sanitizeWeight(v, prev float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return prev
	}
	return v
}

// UpdateCategoryWeight sets the weight of the category at catPos.
// The value is stored unclamped; range bands are advisory.
func UpdateCategoryWeight(tree types.PersonaTree, catPos int, weight float64) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		c.WeightPercentage = sanitizeWeight(weight, c.WeightPercentage)
	})
}

// UpdateCategoryName renames the category at catPos
func UpdateCategoryName(tree types.PersonaTree, catPos int, name string) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		c.Name = name
	})
}

// UpdateCategoryNotes replaces the custom notes of the category at catPos
func UpdateCategoryNotes(tree types.PersonaTree, catPos int, notes string) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		c.Notes.CustomNotes = notes
	})
}

// UpdateSubcategoryWeight sets a subcategory weight. No range band applies.
func UpdateSubcategoryWeight(tree types.PersonaTree, catPos, subPos int, weight float64) types.PersonaTree {
	return mapSubcategory(tree, catPos, subPos, func(s *types.Subcategory) {
		s.WeightPercentage = sanitizeWeight(weight, s.WeightPercentage)
	})
}

// UpdateSubcategoryLevel replaces the proficiency level. Numeric inputs are
// accepted in any form and stored as their string representation.
func UpdateSubcategoryLevel(tree types.PersonaTree, catPos, subPos int, level any) types.PersonaTree {
	levelID := coerceLevel(level)
	return mapSubcategory(tree, catPos, subPos, func(s *types.Subcategory) {
		s.LevelID = levelID
	})
}

// UpdateSubcategoryName renames a subcategory
func UpdateSubcategoryName(tree types.PersonaTree, catPos, subPos int, name string) types.PersonaTree {
	return mapSubcategory(tree, catPos, subPos, func(s *types.Subcategory) {
		s.Name = name
	})
}

// UpdateSubcategoryNotes replaces the notes of a subcategory
func UpdateSubcategoryNotes(tree types.PersonaTree, catPos, subPos int, notes string) types.PersonaTree {
	return mapSubcategory(tree, catPos, subPos, func(s *types.Subcategory) {
		s.Notes = notes
	})
}

// UpdateSubcategoryTechnologies replaces the technology list from a comma-delimited string
func UpdateSubcategoryTechnologies(tree types.PersonaTree, catPos, subPos int, raw string) types.PersonaTree {
	technologies := ParseTechnologies(raw)
	return mapSubcategory(tree, catPos, subPos, func(s *types.Subcategory) {
		s.Skillset.Technologies = technologies
	})
}

// UpdateName sets the persona name
func UpdateName(tree types.PersonaTree, name string) types.PersonaTree {
	out := Clone(tree)
	out.Name = name
	return out
}

// UpdateNotes sets the persona notes
func UpdateNotes(tree types.PersonaTree, notes string) types.PersonaTree {
	out := Clone(tree)
	out.Notes = notes
	return out
}

// AddSubcategory appends a default subcategory to the category at catPos.
// The new position is one past the largest existing position.
func AddSubcategory(tree types.PersonaTree, catPos int) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		next := 1
		for _, s := range c.Subcategories {
			if s.Position >= next {
				next = s.Position + 1
			}
		}
		c.Subcategories = append(c.Subcategories, types.Subcategory{
			Position:         next,
			Name:             NewSubcategoryName,
			WeightPercentage: 0,
			LevelID:          NewSubcategoryLevel,
			Skillset:         types.Skillset{Technologies: []string{}},
		})
	})
}

// RemoveSubcategory drops the subcategory matching both keys.
// Missing targets leave the tree unchanged.
func RemoveSubcategory(tree types.PersonaTree, catPos, subPos int) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		kept := c.Subcategories[:0]
		for _, s := range c.Subcategories {
			if s.Position != subPos {
				kept = append(kept, s)
			}
		}
		c.Subcategories = kept
	})
}

// AddCategory appends an empty category with weight 0 and a zero range band.
// Its position is above every category in tree and every baseline key, so a
// category added after load never inherits a removed category's band.
func AddCategory(tree types.PersonaTree, baseline types.Baseline, name string) types.PersonaTree {
	out := Clone(tree)
	next := 1
	for _, c := range out.Categories {
		if c.Position >= next {
			next = c.Position + 1
		}
	}
	for pos := range baseline {
		if pos >= next {
			next = pos + 1
		}
	}
	if strings.TrimSpace(name) == "" {
		name = NewCategoryName
	}
	out.Categories = append(out.Categories, types.Category{
		Position:      next,
		Name:          name,
		Subcategories: []types.Subcategory{},
	})
	return out
}

// RemoveCategory drops the category at catPos. Missing targets leave the tree unchanged.
func RemoveCategory(tree types.PersonaTree, catPos int) types.PersonaTree {
	out := Clone(tree)
	if out.Categories == nil {
		return out
	}
	kept := out.Categories[:0]
	for _, c := range out.Categories {
		if c.Position != catPos {
			kept = append(kept, c)
		}
	}
	out.Categories = kept
	return out
}

func mapCategory(tree types.PersonaTree, catPos int, fn func(*types.Category)) types.PersonaTree {
	out := Clone(tree)
	if idx := categoryIndex(out, catPos); idx >= 0 {
		fn(&out.Categories[idx])
	}
	return out
}

func mapSubcategory(tree types.PersonaTree, catPos, subPos int, fn func(*types.Subcategory)) types.PersonaTree {
	return mapCategory(tree, catPos, func(c *types.Category) {
		if idx := subcategoryIndex(*c, subPos); idx >= 0 {
			fn(&c.Subcategories[idx])
		}
	})
}

func coerceLevel(level any) string {
	switch v := level.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
