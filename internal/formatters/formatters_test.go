package formatters

import (
	"strings"
	"testing"

	"personakit/internal/persona"
	"personakit/internal/types"
	"personakit/internal/utils"
)

func sampleTree() types.PersonaTree {
	return types.PersonaTree{
		Name:     "Data Engineer",
		RoleName: "Data Engineer",
		RoleID:   "role-7",
		Categories: []types.Category{
			{Position: 1, Name: "Pipelines", WeightPercentage: 60, RangeMin: -5, RangeMax: 5,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "Batch", WeightPercentage: 50, LevelID: "4",
						Skillset: types.Skillset{Technologies: []string{"Spark", "Airflow"}}},
					{Position: 2, Name: "Streaming", WeightPercentage: 50, LevelID: "3"},
				}},
			{Position: 2, Name: "Modelling", WeightPercentage: 40, RangeMin: -10, RangeMax: 10,
				Subcategories: []types.Subcategory{
					{Position: 1, Name: "SQL", WeightPercentage: 100, LevelID: "5"},
				}},
		},
	}
}

func TestPersonaTextFormatter(t *testing.T) {
	doc := persona.SaveRequest{PersonaTree: sampleTree(), Baseline: types.Baseline{1: 60, 2: 40}}

	out, err := GlobalRegistry.Format(doc, "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	for _, want := range []string{
		"=== PERSONA: Data Engineer ===",
		"[1] Pipelines  60%  (recommended 55% - 65%)",
		"- [1] Batch  50%  Advanced  (Spark, Airflow)",
		"- [1] SQL  100%  Expert",
		"Total: 100%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPersonaTextWithoutBaseline(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleTree(), "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if strings.Contains(out, "recommended") {
		t.Errorf("Expected no range band without a baseline, got:\n%s", out)
	}
}

func TestPersonaMarkdownFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleTree(), "markdown")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.HasPrefix(out, "# Data Engineer\n") {
		t.Errorf("Expected markdown heading, got:\n%s", out)
	}
	if !strings.Contains(out, "| 1 | Batch | 50% | Advanced | Spark, Airflow |") {
		t.Errorf("Expected subcategory table row, got:\n%s", out)
	}
}

func TestReportFormatters(t *testing.T) {
	tree := sampleTree()
	tree.Categories[0].WeightPercentage = 70
	report := persona.Validate(tree, types.Baseline{1: 60, 2: 40})

	text, err := GlobalRegistry.Format(report, "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(text, "Can save: no") {
		t.Errorf("Expected blocked report, got:\n%s", text)
	}
	if !strings.Contains(text, "Category total: 110% (INVALID)") {
		t.Errorf("Expected invalid total, got:\n%s", text)
	}
	if !strings.Contains(text, "! Weight must be between 55% and 65%") {
		t.Errorf("Expected range warning, got:\n%s", text)
	}

	md, err := GlobalRegistry.Format(report, "markdown")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(md, "## Range warnings") || !strings.Contains(md, "- Category 1:") {
		t.Errorf("Expected range warnings section, got:\n%s", md)
	}
}

func TestYAMLFormatterKeepsJSONNames(t *testing.T) {
	doc := persona.SaveRequest{PersonaTree: sampleTree(), Baseline: types.Baseline{1: 60, 2: 40}}

	out, err := GlobalRegistry.Format(doc, "yaml")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	for _, want := range []string{"name: Data Engineer", "weight_percentage: 60", "level_id: \"4\"", "baseline:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected yaml to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "{") {
		t.Errorf("Expected block style yaml, got:\n%s", out)
	}

	// The yaml document must decode back to the same tree
	decoded, err := persona.DecodeSaveRequest([]byte(mustJSON(t, out)))
	if err != nil {
		t.Fatalf("Round trip decode failed: %v", err)
	}
	if decoded.Categories[0].Subcategories[0].LevelID != "4" || decoded.Baseline[2] != 40 {
		t.Errorf("Unexpected round trip result: %+v", decoded)
	}
}

func mustJSON(t *testing.T, yamlDoc string) string {
	t.Helper()
	out, err := utils.DocumentToJSON([]byte(yamlDoc), "persona.yaml")
	if err != nil {
		t.Fatalf("yaml conversion failed: %v", err)
	}
	return string(out)
}

func TestUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleTree(), "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := GlobalRegistry.Format(map[string]int{"a": 1}, "text"); err == nil {
		t.Error("Expected error for text rendering of an unsupported type")
	}
}

func TestListFormatters(t *testing.T) {
	out, err := GlobalRegistry.Format([]types.PersonaSummary{}, "text")
	if err != nil || out != "No personas found.\n" {
		t.Errorf("Expected empty list message, got %q (%v)", out, err)
	}

	out, err = GlobalRegistry.Format([]types.JobDescription{{ID: "jd-1", RoleID: "role-1", Title: "SRE", Content: "abc"}}, "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "jd-1") || !strings.Contains(out, "SRE") {
		t.Errorf("Expected job description row, got:\n%s", out)
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := GlobalRegistry.GetSupportedFormats()
	want := []string{"json", "markdown", "text", "yaml"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
