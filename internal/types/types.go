package types

import "time"

// Skillset holds the concrete technologies attached to a subcategory
type Skillset struct {
	Technologies []string `json:"technologies" yaml:"technologies"`
}

// Subcategory is a weighted sub-skill inside a category
type Subcategory struct {
	Position         int      `json:"position" yaml:"position"`
	Name             string   `json:"name" yaml:"name"`
	WeightPercentage float64  `json:"weight_percentage" yaml:"weight_percentage"`
	LevelID          string   `json:"level_id" yaml:"level_id"` // "1" (Basic) .. "5" (Expert)
	Skillset         Skillset `json:"skillset" yaml:"skillset"`
	Notes            string   `json:"notes" yaml:"notes"`
}

// CategoryNotes carries free-form notes attached to a category
type CategoryNotes struct {
	CustomNotes string `json:"custom_notes" yaml:"custom_notes"`
}

// Category is a top-level weighted skill area of a persona.
// RangeMin and RangeMax are signed offsets around the originally generated weight.
type Category struct {
	Position         int           `json:"position" yaml:"position"`
	Name             string        `json:"name" yaml:"name"`
	WeightPercentage float64       `json:"weight_percentage" yaml:"weight_percentage"`
	RangeMin         float64       `json:"range_min" yaml:"range_min"`
	RangeMax         float64       `json:"range_max" yaml:"range_max"`
	Subcategories    []Subcategory `json:"subcategories" yaml:"subcategories"`
	Notes            CategoryNotes `json:"notes" yaml:"notes"`
}

// PersonaTree is the full weighted rubric describing an ideal candidate
type PersonaTree struct {
	ID               string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name             string     `json:"name" yaml:"name"`
	Notes            string     `json:"persona_notes" yaml:"persona_notes"`
	RoleID           string     `json:"role_id,omitempty" yaml:"role_id,omitempty"`
	RoleName         string     `json:"role_name,omitempty" yaml:"role_name,omitempty"`
	JobDescriptionID string     `json:"job_description_id,omitempty" yaml:"job_description_id,omitempty"`
	Categories       []Category `json:"categories" yaml:"categories"`
}

// Baseline maps category position to the weight first produced by generation
type Baseline map[int]float64

// RangeCheck is the outcome of validating a category weight against its band
type RangeCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// CategoryReport summarizes the subcategory distribution of one category
type CategoryReport struct {
	Position         int     `json:"position"`
	Name             string  `json:"name"`
	WeightPercentage float64 `json:"weight_percentage"`
	SubcategoryTotal float64 `json:"subcategory_total"`
	Valid            bool    `json:"valid"`
	RangeWarning     string  `json:"range_warning,omitempty"`
}

// ValidationReport is the full save-readiness picture of a persona tree
type ValidationReport struct {
	Name               string           `json:"name"`
	TotalWeight        float64          `json:"total_weight"`
	TotalValid         bool             `json:"total_valid"`
	EachCategoryValid  bool             `json:"each_category_valid"`
	NameValid          bool             `json:"name_valid"`
	CanSave            bool             `json:"can_save"`
	HasRangeViolations bool             `json:"has_range_violations"`
	RangeWarnings      map[int]string   `json:"range_warnings,omitempty"`
	Categories         []CategoryReport `json:"categories"`
	Errors             []string         `json:"errors,omitempty"`
}

// GeneratePersonaInput represents the input for generating a persona from a job description
type GeneratePersonaInput struct {
	RoleID           string `json:"role_id"`
	RoleName         string `json:"role_name,omitempty"`
	JobDescriptionID string `json:"job_description_id"`
	JobDescription   string `json:"jobDescription"`
}

// JobDescription is a registered job posting personas are generated from
type JobDescription struct {
	ID        string    `json:"id" yaml:"id"`
	RoleID    string    `json:"role_id" yaml:"role_id"`
	RoleName  string    `json:"role_name" yaml:"role_name"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// PersonaSummary is a list view of a saved persona
type PersonaSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RoleID           string    `json:"role_id,omitempty"`
	RoleName         string    `json:"role_name,omitempty"`
	JobDescriptionID string    `json:"job_description_id,omitempty"`
	CategoryCount    int       `json:"category_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Proficiency levels accepted in Subcategory.LevelID
const (
	LevelBasic        = "1"
	LevelIntermediate = "2"
	LevelProficient   = "3"
	LevelAdvanced     = "4"
	LevelExpert       = "5"
)

var levelNames = map[string]string{
	LevelBasic:        "Basic",
	LevelIntermediate: "Intermediate",
	LevelProficient:   "Proficient",
	LevelAdvanced:     "Advanced",
	LevelExpert:       "Expert",
}

// LevelName returns the display name of a proficiency level, or "" if unknown
func LevelName(levelID string) string {
	return levelNames[levelID]
}

// IsValidLevel reports whether levelID is one of the five proficiency levels
func IsValidLevel(levelID string) bool {
	_, ok := levelNames[levelID]
	return ok
}
