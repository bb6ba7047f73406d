package cli

import (
	"bytes"
	"testing"

	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePersona() types.PersonaTree {
	return types.PersonaTree{
		Name: "Backend",
		Categories: []types.Category{
			{
				Position: 1, Name: "Backend", WeightPercentage: 40, RangeMin: -5, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "APIs", WeightPercentage: 50, LevelID: "3"},
					{Position: 2, Name: "Databases", WeightPercentage: 50, LevelID: "3"},
				},
			},
			{
				Position: 2, Name: "Data", WeightPercentage: 60, RangeMin: -5, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Pipelines", WeightPercentage: 100, LevelID: "4"},
				},
			},
		},
	}
}

func loadedEditor(t *testing.T) *persona.Editor {
	t.Helper()
	editor := persona.NewEditor(nil, nil)
	editor.Load(samplePersona())
	return editor
}

func TestParseAssignments(t *testing.T) {
	pos, value, err := parseCategoryAssignment("2= 45.5 ")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.Equal(t, "45.5", value)

	_, _, err = parseCategoryAssignment("x=1")
	assert.Error(t, err)
	_, _, err = parseCategoryAssignment("12")
	assert.Error(t, err)

	cat, sub, value, err := parseSubcategoryAssignment("1.2=Go, gRPC")
	require.NoError(t, err)
	assert.Equal(t, 1, cat)
	assert.Equal(t, 2, sub)
	assert.Equal(t, "Go, gRPC", value)

	_, _, err = parseSubcategoryRef("1")
	assert.Error(t, err)
	_, _, err = parseSubcategoryRef("1.b")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("4")
	require.NoError(t, err)
	assert.Equal(t, types.LevelAdvanced, level)

	level, err = parseLevel("expert")
	require.NoError(t, err)
	assert.Equal(t, types.LevelExpert, level)

	_, err = parseLevel("guru")
	assert.Error(t, err)
}

func TestApplyEdits(t *testing.T) {
	editor := loadedEditor(t)
	name := "Backend Engineer"
	var warn bytes.Buffer

	err := applyEdits(editor, editPlan{
		name:          &name,
		categoryNames: []string{"2=Data Engineering"},
		weights:       []string{"1=50", "2=50"},
		subWeights:    []string{"1.1=70", "1.2=30"},
		levels:        []string{"1.2=expert"},
		technologies:  []string{"1.2=Postgres, Redis,"},
	}, &warn)
	require.NoError(t, err)

	tree := editor.Tree()
	assert.Equal(t, "Backend Engineer", tree.Name)
	assert.Equal(t, "Data Engineering", tree.Categories[1].Name)
	assert.Equal(t, 50.0, tree.Categories[0].WeightPercentage)
	assert.Equal(t, 50.0, tree.Categories[1].WeightPercentage)
	assert.Equal(t, 70.0, tree.Categories[0].Subcategories[0].WeightPercentage)
	assert.Equal(t, types.LevelExpert, tree.Categories[0].Subcategories[1].LevelID)
	assert.Equal(t, []string{"Postgres", "Redis"}, tree.Categories[0].Subcategories[1].Skillset.Technologies)

	assert.Contains(t, warn.String(), "category 1 (Backend)")
	assert.Contains(t, warn.String(), "between 35% and 45%")
	assert.Contains(t, warn.String(), "between 55% and 65%")

	report := editor.Report()
	assert.True(t, report.CanSave)
	assert.True(t, report.HasRangeViolations)
	assert.Len(t, report.RangeWarnings, 2)
}

func TestApplyEditsStructural(t *testing.T) {
	editor := loadedEditor(t)
	var warn bytes.Buffer

	err := applyEdits(editor, editPlan{
		removeSubcategory: []string{"1.2"},
		addCategories:     []string{"Cloud"},
		addSubcategories:  []int{3},
	}, &warn)
	require.NoError(t, err)

	tree := editor.Tree()
	require.Len(t, tree.Categories, 3)
	assert.Len(t, tree.Categories[0].Subcategories, 1)

	cloud := tree.Categories[2]
	assert.Equal(t, 3, cloud.Position)
	assert.Equal(t, "Cloud", cloud.Name)
	require.Len(t, cloud.Subcategories, 1)
	assert.Equal(t, 1, cloud.Subcategories[0].Position)
	assert.Equal(t, persona.NewSubcategoryName, cloud.Subcategories[0].Name)

	report := editor.Report()
	assert.False(t, report.CanSave)
	assert.Empty(t, warn.String())
}

func TestApplyEditsReplaceLastCategory(t *testing.T) {
	editor := loadedEditor(t)
	var warn bytes.Buffer

	require.NoError(t, applyEdits(editor, editPlan{
		removeCategories: []int{2},
		addCategories:    []string{"Leadership"},
	}, &warn))

	tree := editor.Tree()
	require.Len(t, tree.Categories, 2)
	assert.Equal(t, 3, tree.Categories[1].Position)
	assert.Empty(t, editor.Warnings())
	assert.Empty(t, editor.Report().RangeWarnings)
}

func TestApplyEditsRejectsMissingTargets(t *testing.T) {
	var warn bytes.Buffer

	err := applyEdits(loadedEditor(t), editPlan{removeCategories: []int{9}}, &warn)
	assert.EqualError(t, err, "category 9 not found")

	err = applyEdits(loadedEditor(t), editPlan{levels: []string{"2.4=1"}}, &warn)
	assert.EqualError(t, err, "subcategory 2.4 not found")

	err = applyEdits(loadedEditor(t), editPlan{levels: []string{"1.1=guru"}}, &warn)
	assert.Error(t, err)
}

func TestApplyEditsKeepsWeightOnBadInput(t *testing.T) {
	editor := loadedEditor(t)
	var warn bytes.Buffer

	require.NoError(t, applyEdits(editor, editPlan{
		weights:    []string{"1=abc"},
		subWeights: []string{"2.1=NaN"},
	}, &warn))

	tree := editor.Tree()
	assert.Equal(t, 40.0, tree.Categories[0].WeightPercentage)
	assert.Equal(t, 100.0, tree.Categories[1].Subcategories[0].WeightPercentage)
	assert.Empty(t, warn.String())
}

func TestDocumentFormat(t *testing.T) {
	format, err := documentFormat("persona.yaml", "")
	require.NoError(t, err)
	assert.Equal(t, "yaml", format)

	format, err = documentFormat("", "")
	require.NoError(t, err)
	assert.Equal(t, "json", format)

	_, err = documentFormat("persona.md", "")
	assert.Error(t, err)
}
