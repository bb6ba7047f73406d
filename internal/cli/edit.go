package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"personakit/internal/common"
	"personakit/internal/persona"
	"personakit/internal/types"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [persona-file]",
	Short: "Edit a persona file",
	Long: `Apply edits to a persona file and write it back.

Categories are addressed by position (POS) and subcategories by category and
subcategory position (CAT.SUB), for example:

  personakit edit persona.yaml --weight 1=45 --weight 2=55 \
      --sub-weight 1.2=30 --level 1.2=expert --tech "1.2=Go, gRPC"

Each category weight change is checked against its recommended range and a
warning is printed when it falls outside; warnings do not block the edit.
The file keeps its baseline, so ranges stay anchored to the generated weights.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

// editPlan is the set of edits requested on the command line
type editPlan struct {
	name              *string
	notes             *string
	categoryNames     []string
	subcategoryNames  []string
	weights           []string
	subWeights        []string
	levels            []string
	technologies      []string
	addCategories     []string
	removeCategories  []int
	addSubcategories  []int
	removeSubcategory []string
}

var editOpts struct {
	output string
	format string
	name   string
	notes  string
	plan   editPlan
}

func init() {
	f := editCmd.Flags()
	f.StringVarP(&editOpts.output, "output", "o", "", "Write to this file instead of editing in place")
	f.StringVar(&editOpts.format, "format", "", "Persona file format: json or yaml (default from extension)")
	f.StringVar(&editOpts.name, "name", "", "Set the persona name")
	f.StringVar(&editOpts.notes, "notes", "", "Set the persona notes")
	f.StringArrayVar(&editOpts.plan.categoryNames, "category-name", nil, "Rename a category: POS=NAME")
	f.StringArrayVar(&editOpts.plan.subcategoryNames, "sub-name", nil, "Rename a subcategory: CAT.SUB=NAME")
	f.StringArrayVar(&editOpts.plan.weights, "weight", nil, "Set a category weight: POS=PERCENT")
	f.StringArrayVar(&editOpts.plan.subWeights, "sub-weight", nil, "Set a subcategory weight: CAT.SUB=PERCENT")
	f.StringArrayVar(&editOpts.plan.levels, "level", nil, "Set a proficiency level: CAT.SUB=1..5 or Basic..Expert")
	f.StringArrayVar(&editOpts.plan.technologies, "tech", nil, "Set technologies: CAT.SUB=comma separated list")
	f.StringArrayVar(&editOpts.plan.addCategories, "add-category", nil, "Append a category with this name")
	f.IntSliceVar(&editOpts.plan.removeCategories, "remove-category", nil, "Remove the category at POS")
	f.IntSliceVar(&editOpts.plan.addSubcategories, "add-subcategory", nil, "Append a subcategory to the category at POS")
	f.StringArrayVar(&editOpts.plan.removeSubcategory, "remove-subcategory", nil, "Remove a subcategory: CAT.SUB")
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	output := editOpts.output
	if output == "" {
		output = args[0]
	}
	format, err := documentFormat(output, editOpts.format)
	if err != nil {
		return err
	}

	doc, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).LoadPersona(args[0])
	if err != nil {
		return err
	}

	plan := editOpts.plan
	if cmd.Flags().Changed("name") {
		plan.name = &editOpts.name
	}
	if cmd.Flags().Changed("notes") {
		plan.notes = &editOpts.notes
	}

	editor := persona.NewEditor(nil, logger)
	if len(doc.Baseline) > 0 {
		editor.LoadWithBaseline(doc.PersonaTree, doc.Baseline)
	} else {
		editor.Load(doc.PersonaTree)
	}

	if err := applyEdits(editor, plan, cmd.ErrOrStderr()); err != nil {
		return err
	}

	report := editor.Report()
	printReportSummary(cmd.ErrOrStderr(), report)

	edited := persona.SaveRequest{PersonaTree: editor.Tree(), Baseline: editor.Baseline()}
	if err := common.NewOutputHandler(logger).HandleOutput(edited, common.CommandConfig{
		OutputFile:   output,
		OutputFormat: format,
	}); err != nil {
		return err
	}

	logger.Info("Persona edited", "file", output, "can_save", report.CanSave, "range_warnings", len(report.RangeWarnings))
	return nil
}

// applyEdits runs plan against editor. Range warnings from category weight
// changes are written to warn as they happen.
func applyEdits(editor *persona.Editor, plan editPlan, warn io.Writer) error {
	apply := func(edit func(types.PersonaTree) types.PersonaTree) error {
		return editor.Apply(edit)
	}

	if plan.name != nil {
		name := *plan.name
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.UpdateName(t, name) }); err != nil {
			return err
		}
	}
	if plan.notes != nil {
		notes := *plan.notes
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.UpdateNotes(t, notes) }); err != nil {
			return err
		}
	}

	for _, raw := range plan.removeSubcategory {
		cat, sub, err := parseSubcategoryRef(raw)
		if err != nil {
			return err
		}
		if _, err := findSubcategory(editor.Tree(), cat, sub); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.RemoveSubcategory(t, cat, sub) }); err != nil {
			return err
		}
	}
	for _, pos := range plan.removeCategories {
		if _, err := findCategory(editor.Tree(), pos); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.RemoveCategory(t, pos) }); err != nil {
			return err
		}
	}
	for _, name := range plan.addCategories {
		baseline := editor.Baseline()
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.AddCategory(t, baseline, name) }); err != nil {
			return err
		}
	}
	for _, pos := range plan.addSubcategories {
		if _, err := findCategory(editor.Tree(), pos); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.AddSubcategory(t, pos) }); err != nil {
			return err
		}
	}

	for _, raw := range plan.categoryNames {
		pos, value, err := parseCategoryAssignment(raw)
		if err != nil {
			return err
		}
		if _, err := findCategory(editor.Tree(), pos); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.UpdateCategoryName(t, pos, value) }); err != nil {
			return err
		}
	}
	for _, raw := range plan.subcategoryNames {
		cat, sub, value, err := parseSubcategoryAssignment(raw)
		if err != nil {
			return err
		}
		if _, err := findSubcategory(editor.Tree(), cat, sub); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree { return persona.UpdateSubcategoryName(t, cat, sub, value) }); err != nil {
			return err
		}
	}

	for _, raw := range plan.weights {
		pos, value, err := parseCategoryAssignment(raw)
		if err != nil {
			return err
		}
		c, err := findCategory(editor.Tree(), pos)
		if err != nil {
			return err
		}
		check, err := editor.SetCategoryWeight(pos, persona.ParseWeight(value, c.WeightPercentage))
		if err != nil {
			return err
		}
		if !check.Valid {
			fmt.Fprintf(warn, "Warning: category %d (%s): %s\n", pos, c.Name, check.Message)
		}
	}
	for _, raw := range plan.subWeights {
		cat, sub, value, err := parseSubcategoryAssignment(raw)
		if err != nil {
			return err
		}
		s, err := findSubcategory(editor.Tree(), cat, sub)
		if err != nil {
			return err
		}
		weight := persona.ParseWeight(value, s.WeightPercentage)
		if err := apply(func(t types.PersonaTree) types.PersonaTree {
			return persona.UpdateSubcategoryWeight(t, cat, sub, weight)
		}); err != nil {
			return err
		}
	}
	for _, raw := range plan.levels {
		cat, sub, value, err := parseSubcategoryAssignment(raw)
		if err != nil {
			return err
		}
		if _, err := findSubcategory(editor.Tree(), cat, sub); err != nil {
			return err
		}
		level, err := parseLevel(value)
		if err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree {
			return persona.UpdateSubcategoryLevel(t, cat, sub, level)
		}); err != nil {
			return err
		}
	}
	for _, raw := range plan.technologies {
		cat, sub, value, err := parseSubcategoryAssignment(raw)
		if err != nil {
			return err
		}
		if _, err := findSubcategory(editor.Tree(), cat, sub); err != nil {
			return err
		}
		if err := apply(func(t types.PersonaTree) types.PersonaTree {
			return persona.UpdateSubcategoryTechnologies(t, cat, sub, value)
		}); err != nil {
			return err
		}
	}
	return nil
}

func printReportSummary(w io.Writer, report types.ValidationReport) {
	fmt.Fprintf(w, "Category total: %.2f%% | can save: %t\n", report.TotalWeight, report.CanSave)
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	printWarnings(w, report.RangeWarnings)
}

// parseCategoryAssignment parses POS=VALUE
func parseCategoryAssignment(raw string) (int, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid assignment %q, expected POS=VALUE", raw)
	}
	pos, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, "", fmt.Errorf("invalid category position in %q", raw)
	}
	return pos, strings.TrimSpace(value), nil
}

// parseSubcategoryAssignment parses CAT.SUB=VALUE
func parseSubcategoryAssignment(raw string) (int, int, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, 0, "", fmt.Errorf("invalid assignment %q, expected CAT.SUB=VALUE", raw)
	}
	cat, sub, err := parseSubcategoryRef(key)
	if err != nil {
		return 0, 0, "", err
	}
	return cat, sub, strings.TrimSpace(value), nil
}

// parseSubcategoryRef parses CAT.SUB
func parseSubcategoryRef(raw string) (int, int, error) {
	catRaw, subRaw, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid subcategory reference %q, expected CAT.SUB", raw)
	}
	cat, err := strconv.Atoi(catRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid category position in %q", raw)
	}
	sub, err := strconv.Atoi(subRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid subcategory position in %q", raw)
	}
	return cat, sub, nil
}

// parseLevel accepts a level id or its display name
func parseLevel(raw string) (string, error) {
	if types.IsValidLevel(raw) {
		return raw, nil
	}
	for _, id := range []string{types.LevelBasic, types.LevelIntermediate, types.LevelProficient, types.LevelAdvanced, types.LevelExpert} {
		if strings.EqualFold(types.LevelName(id), raw) {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown level %q, expected 1-5 or Basic, Intermediate, Proficient, Advanced, Expert", raw)
}

func findCategory(tree types.PersonaTree, pos int) (types.Category, error) {
	for _, c := range tree.Categories {
		if c.Position == pos {
			return c, nil
		}
	}
	return types.Category{}, fmt.Errorf("category %d not found", pos)
}

func findSubcategory(tree types.PersonaTree, catPos, subPos int) (types.Subcategory, error) {
	c, err := findCategory(tree, catPos)
	if err != nil {
		return types.Subcategory{}, err
	}
	for _, s := range c.Subcategories {
		if s.Position == subPos {
			return s, nil
		}
	}
	return types.Subcategory{}, fmt.Errorf("subcategory %d.%d not found", catPos, subPos)
}
