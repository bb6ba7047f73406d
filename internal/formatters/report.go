package formatters

import (
	"fmt"
	"strings"

	"personakit/internal/persona"
	"personakit/internal/types"
)

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func validLabel(v bool) string {
	if v {
		return "valid"
	}
	return "INVALID"
}

// ReportTextFormatter renders a validation report for the terminal
type ReportTextFormatter struct{}

func (rf *ReportTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.ValidationReport)
	if !ok {
		return "", fmt.Errorf("expected ValidationReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== VALIDATION REPORT ===\n\n")
	fmt.Fprintf(&output, "Persona: %s (%s)\n", report.Name, validLabel(report.NameValid))
	fmt.Fprintf(&output, "Category total: %s (%s)\n", percent(report.TotalWeight), validLabel(report.TotalValid))
	fmt.Fprintf(&output, "Subcategory totals: %s\n", validLabel(report.EachCategoryValid))
	fmt.Fprintf(&output, "Can save: %s\n\n", yesNo(report.CanSave))

	for _, c := range report.Categories {
		fmt.Fprintf(&output, "[%d] %s  %s  subcategories %s (%s)\n",
			c.Position, c.Name, percent(c.WeightPercentage), percent(c.SubcategoryTotal), validLabel(c.Valid))
		if c.RangeWarning != "" {
			fmt.Fprintf(&output, "    ! %s\n", c.RangeWarning)
		}
	}

	if len(report.Errors) > 0 {
		output.WriteString("\nBlocking issues:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&output, "- %s\n", e)
		}
	}
	if report.HasRangeViolations {
		fmt.Fprintf(&output, "\n%d category weight(s) outside the recommended range; saving requires confirmation.\n",
			len(report.RangeWarnings))
	}

	return output.String(), nil
}

func (rf *ReportTextFormatter) SupportedType() string {
	return TypeValidationReport
}

// ReportMarkdownFormatter renders a validation report as markdown
type ReportMarkdownFormatter struct{}

func (rf *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.ValidationReport)
	if !ok {
		return "", fmt.Errorf("expected ValidationReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Validation: %s\n\n", report.Name)
	fmt.Fprintf(&output, "**Can save:** %s\n\n", yesNo(report.CanSave))
	output.WriteString("| Check | Result |\n|-------|--------|\n")
	fmt.Fprintf(&output, "| Category total (%s) | %s |\n", percent(report.TotalWeight), validLabel(report.TotalValid))
	fmt.Fprintf(&output, "| Subcategory totals | %s |\n", validLabel(report.EachCategoryValid))
	fmt.Fprintf(&output, "| Name | %s |\n\n", validLabel(report.NameValid))

	output.WriteString("## Categories\n\n")
	output.WriteString("| # | Category | Weight | Subcategories | Range |\n")
	output.WriteString("|---|----------|--------|---------------|-------|\n")
	for _, c := range report.Categories {
		rangeNote := "ok"
		if c.RangeWarning != "" {
			rangeNote = c.RangeWarning
		}
		fmt.Fprintf(&output, "| %d | %s | %s | %s (%s) | %s |\n",
			c.Position, c.Name, percent(c.WeightPercentage), percent(c.SubcategoryTotal), validLabel(c.Valid), rangeNote)
	}

	if len(report.Errors) > 0 {
		output.WriteString("\n## Blocking issues\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&output, "- %s\n", e)
		}
	}
	if report.HasRangeViolations {
		output.WriteString("\n## Range warnings\n\n")
		for _, pos := range persona.SortedWarningPositions(report.RangeWarnings) {
			fmt.Fprintf(&output, "- Category %d: %s\n", pos, report.RangeWarnings[pos])
		}
	}

	return output.String(), nil
}

func (rf *ReportMarkdownFormatter) SupportedType() string {
	return TypeValidationReport
}
