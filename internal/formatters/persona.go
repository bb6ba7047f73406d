package formatters

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"personakit/internal/persona"
	"personakit/internal/types"
)

func percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}

func levelLabel(levelID string) string {
	if name := types.LevelName(levelID); name != "" {
		return name
	}
	return "level " + levelID
}

func bandLabel(tree types.PersonaTree, baseline types.Baseline, catPos int) string {
	lo, hi, ok := persona.Band(tree, baseline, catPos)
	if !ok {
		return ""
	}
	return fmt.Sprintf("recommended %s - %s", percent(lo), percent(hi))
}

// PersonaTextFormatter renders a persona tree as an indented outline
type PersonaTextFormatter struct{}

func (pf *PersonaTextFormatter) Format(data any) (string, error) {
	tree, baseline, err := asDocument(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== PERSONA: %s ===\n", tree.Name)
	if tree.ID != "" {
		fmt.Fprintf(&output, "ID: %s\n", tree.ID)
	}
	if tree.RoleID != "" || tree.RoleName != "" {
		fmt.Fprintf(&output, "Role: %s (%s)\n", tree.RoleName, tree.RoleID)
	}
	if tree.JobDescriptionID != "" {
		fmt.Fprintf(&output, "Job description: %s\n", tree.JobDescriptionID)
	}
	if tree.Notes != "" {
		fmt.Fprintf(&output, "Notes: %s\n", tree.Notes)
	}
	output.WriteString("\n")

	for _, c := range tree.Categories {
		fmt.Fprintf(&output, "[%d] %s  %s", c.Position, c.Name, percent(c.WeightPercentage))
		if band := bandLabel(tree, baseline, c.Position); band != "" {
			fmt.Fprintf(&output, "  (%s)", band)
		}
		output.WriteString("\n")
		for _, s := range c.Subcategories {
			fmt.Fprintf(&output, "    - [%d] %s  %s  %s", s.Position, s.Name, percent(s.WeightPercentage), levelLabel(s.LevelID))
			if techs := persona.FormatTechnologies(s.Skillset.Technologies); techs != "" {
				fmt.Fprintf(&output, "  (%s)", techs)
			}
			output.WriteString("\n")
		}
		if c.Notes.CustomNotes != "" {
			fmt.Fprintf(&output, "    Notes: %s\n", c.Notes.CustomNotes)
		}
	}

	fmt.Fprintf(&output, "\nTotal: %s\n", percent(persona.TotalCategoryWeight(tree)))
	return output.String(), nil
}

func (pf *PersonaTextFormatter) SupportedType() string {
	return TypePersona
}

// PersonaMarkdownFormatter renders a persona tree with one table per category
type PersonaMarkdownFormatter struct{}

func (pf *PersonaMarkdownFormatter) Format(data any) (string, error) {
	tree, baseline, err := asDocument(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n\n", tree.Name)
	if tree.RoleName != "" {
		fmt.Fprintf(&output, "**Role:** %s\n\n", tree.RoleName)
	}
	if tree.Notes != "" {
		fmt.Fprintf(&output, "%s\n\n", tree.Notes)
	}

	for _, c := range tree.Categories {
		fmt.Fprintf(&output, "## %d. %s (%s)\n\n", c.Position, c.Name, percent(c.WeightPercentage))
		if band := bandLabel(tree, baseline, c.Position); band != "" {
			fmt.Fprintf(&output, "_%s_\n\n", band)
		}
		output.WriteString("| # | Skill | Weight | Level | Technologies |\n")
		output.WriteString("|---|-------|--------|-------|--------------|\n")
		for _, s := range c.Subcategories {
			fmt.Fprintf(&output, "| %d | %s | %s | %s | %s |\n",
				s.Position, s.Name, percent(s.WeightPercentage), levelLabel(s.LevelID),
				persona.FormatTechnologies(s.Skillset.Technologies))
		}
		output.WriteString("\n")
		if c.Notes.CustomNotes != "" {
			fmt.Fprintf(&output, "> %s\n\n", c.Notes.CustomNotes)
		}
	}

	fmt.Fprintf(&output, "**Total:** %s\n", percent(persona.TotalCategoryWeight(tree)))
	return output.String(), nil
}

func (pf *PersonaMarkdownFormatter) SupportedType() string {
	return TypePersona
}

// PersonaListTextFormatter renders saved persona summaries as a table
type PersonaListTextFormatter struct{}

func (lf *PersonaListTextFormatter) Format(data any) (string, error) {
	list, ok := data.([]types.PersonaSummary)
	if !ok {
		return "", fmt.Errorf("expected []PersonaSummary, got %T", data)
	}
	if len(list) == 0 {
		return "No personas found.\n", nil
	}

	var output strings.Builder
	w := tabwriter.NewWriter(&output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCATEGORIES\tUPDATED")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.RoleName, p.CategoryCount,
			p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (lf *PersonaListTextFormatter) SupportedType() string {
	return TypePersonaList
}

// JobDescriptionListTextFormatter renders registered job descriptions as a table
type JobDescriptionListTextFormatter struct{}

func (jf *JobDescriptionListTextFormatter) Format(data any) (string, error) {
	list, ok := data.([]types.JobDescription)
	if !ok {
		return "", fmt.Errorf("expected []JobDescription, got %T", data)
	}
	if len(list) == 0 {
		return "No job descriptions found.\n", nil
	}

	var output strings.Builder
	w := tabwriter.NewWriter(&output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tTITLE\tCHARS")
	for _, jd := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", jd.ID, jd.RoleID, jd.Title, len(jd.Content))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (jf *JobDescriptionListTextFormatter) SupportedType() string {
	return TypeJobDescriptionList
}
