package persona

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"personakit/internal/errors"
	"personakit/internal/types"
)

// flexNumber accepts a JSON number, a numeric string, or null.
// Blank strings and null decode to 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		*n = flexNumber(sanitizeWeight(v, 0))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

// flexString accepts a JSON string, a number, or null
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(num.String())
	return nil
}

// flexCategoryNotes accepts {"custom_notes": ...}, a bare string, or null
type flexCategoryNotes types.CategoryNotes

func (n *flexCategoryNotes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*n = flexCategoryNotes{}
		return nil
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = flexCategoryNotes{CustomNotes: v}
		return nil
	}
	var obj struct {
		CustomNotes flexString `json:"custom_notes"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*n = flexCategoryNotes{CustomNotes: string(obj.CustomNotes)}
	return nil
}

type wireSkillset struct {
	Technologies []flexString `json:"technologies"`
}

type wireSubcategory struct {
	Position         flexNumber    `json:"position"`
	Name             flexString    `json:"name"`
	WeightPercentage flexNumber    `json:"weight_percentage"`
	LevelID          flexString    `json:"level_id"`
	Skillset         *wireSkillset `json:"skillset"`
	Notes            flexString    `json:"notes"`
}

type wireCategory struct {
	Position         flexNumber        `json:"position"`
	Name             flexString        `json:"name"`
	WeightPercentage flexNumber        `json:"weight_percentage"`
	RangeMin         flexNumber        `json:"range_min"`
	RangeMax         flexNumber        `json:"range_max"`
	Subcategories    []wireSubcategory `json:"subcategories"`
	Notes            flexCategoryNotes `json:"notes"`
}

type wirePersona struct {
	ID               flexString     `json:"id"`
	Name             flexString     `json:"name"`
	PersonaNotes     flexString     `json:"persona_notes"`
	RoleID           flexString     `json:"role_id"`
	RoleName         flexString     `json:"role_name"`
	JobDescriptionID flexString     `json:"job_description_id"`
	Categories       []wireCategory `json:"categories"`
}

// DecodeTree parses an external persona payload, coercing numeric strings to
// numbers, level ids to strings and a missing skillset to an empty list.
// Payloads with non-numeric weights or fractional positions are rejected.
func DecodeTree(data []byte) (types.PersonaTree, error) {
	var w wirePersona
	if err := json.Unmarshal(data, &w); err != nil {
		return types.PersonaTree{}, errors.NewValidationError(errors.ErrCodeMalformedPayload,
			"persona payload could not be decoded", err)
	}
	return w.toTree()
}

// position converts a decoded position, refusing values that are not whole
// numbers or that overflow an int.
func position(n flexNumber, what string) (int, error) {
	v := float64(n)
	if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, errors.NewValidationError(errors.ErrCodeMalformedPayload,
			fmt.Sprintf("%s position %v is not a whole number", what, v), nil)
	}
	return int(v), nil
}

func (w wirePersona) toTree() (types.PersonaTree, error) {
	tree := types.PersonaTree{
		ID:               string(w.ID),
		Name:             string(w.Name),
		Notes:            string(w.PersonaNotes),
		RoleID:           string(w.RoleID),
		RoleName:         string(w.RoleName),
		JobDescriptionID: string(w.JobDescriptionID),
		Categories:       make([]types.Category, 0, len(w.Categories)),
	}
	for _, wc := range w.Categories {
		catPos, err := position(wc.Position, "category")
		if err != nil {
			return types.PersonaTree{}, err
		}
		c := types.Category{
			Position:         catPos,
			Name:             string(wc.Name),
			WeightPercentage: float64(wc.WeightPercentage),
			RangeMin:         float64(wc.RangeMin),
			RangeMax:         float64(wc.RangeMax),
			Notes:            types.CategoryNotes(wc.Notes),
			Subcategories:    make([]types.Subcategory, 0, len(wc.Subcategories)),
		}
		for _, ws := range wc.Subcategories {
			subPos, err := position(ws.Position, fmt.Sprintf("category %d subcategory", catPos))
			if err != nil {
				return types.PersonaTree{}, err
			}
			technologies := []string{}
			if ws.Skillset != nil {
				for _, t := range ws.Skillset.Technologies {
					if v := strings.TrimSpace(string(t)); v != "" {
						technologies = append(technologies, v)
					}
				}
			}
			c.Subcategories = append(c.Subcategories, types.Subcategory{
				Position:         subPos,
				Name:             string(ws.Name),
				WeightPercentage: float64(ws.WeightPercentage),
				LevelID:          strings.TrimSpace(string(ws.LevelID)),
				Skillset:         types.Skillset{Technologies: technologies},
				Notes:            string(ws.Notes),
			})
		}
		tree.Categories = append(tree.Categories, c)
	}
	return tree, nil
}

// SaveRequest is the create/update body. SaveAnyway acknowledges range violations.
type SaveRequest struct {
	types.PersonaTree
	Baseline   types.Baseline `json:"baseline,omitempty"`
	SaveAnyway bool           `json:"save_anyway,omitempty"`
}

// DecodeSaveRequest decodes a create/update body through the same coercion as DecodeTree
func DecodeSaveRequest(data []byte) (SaveRequest, error) {
	tree, err := DecodeTree(data)
	if err != nil {
		return SaveRequest{}, err
	}
	var extra struct {
		Baseline   map[string]flexNumber `json:"baseline"`
		SaveAnyway bool                  `json:"save_anyway"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return SaveRequest{}, errors.NewValidationError(errors.ErrCodeMalformedPayload,
			"save request could not be decoded", err)
	}
	req := SaveRequest{PersonaTree: tree, SaveAnyway: extra.SaveAnyway}
	if len(extra.Baseline) > 0 {
		req.Baseline = make(types.Baseline, len(extra.Baseline))
		for k, v := range extra.Baseline {
			pos, err := strconv.Atoi(k)
			if err != nil {
				return SaveRequest{}, errors.NewValidationError(errors.ErrCodeMalformedPayload,
					fmt.Sprintf("baseline key %q is not a category position", k), err)
			}
			req.Baseline[pos] = float64(v)
		}
	}
	return req, nil
}

// SavePayload returns tree in the shape persistence expects: every list
// non-nil, level ids trimmed and notes present.
func SavePayload(tree types.PersonaTree) types.PersonaTree {
	out := Clone(tree)
	if out.Categories == nil {
		out.Categories = []types.Category{}
	}
	for i := range out.Categories {
		c := &out.Categories[i]
		if c.Subcategories == nil {
			c.Subcategories = []types.Subcategory{}
		}
		for j := range c.Subcategories {
			s := &c.Subcategories[j]
			s.LevelID = strings.TrimSpace(s.LevelID)
			if s.Skillset.Technologies == nil {
				s.Skillset.Technologies = []string{}
			}
		}
	}
	return out
}

// EncodeSaveRequest marshals the create/update body for tree
func EncodeSaveRequest(tree types.PersonaTree, baseline types.Baseline, saveAnyway bool) ([]byte, error) {
	return json.Marshal(SaveRequest{
		PersonaTree: SavePayload(tree),
		Baseline:    baseline,
		SaveAnyway:  saveAnyway,
	})
}
