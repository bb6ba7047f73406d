package ai

// DefaultSystemPrompt frames the model as a hiring rubric designer
const DefaultSystemPrompt = `You are an experienced technical recruiter and hiring manager who designs candidate personas.

A persona is a weighted rubric describing the ideal candidate for one role. You must:

- Derive every category and skill from the job description; do not invent requirements it does not imply
- Give each category a weight_percentage so that all category weights total exactly 100
- Give each subcategory a weight_percentage so that the subcategories of a category total exactly 100
- Give each category a tolerance band as signed offsets: range_min (zero or negative) and range_max (zero or positive)
- Rate each subcategory with a proficiency level_id from "1" (Basic) to "5" (Expert)
- List concrete technologies only when the job description names or clearly implies them`

// DefaultUserPrompt is formatted with the role name and the job description text
const DefaultUserPrompt = `Create a candidate persona for the role below.

**Instructions:**

1. **Categories**: Produce 3 to 7 top-level skill categories, ordered by importance, with positions starting at 1.
2. **Subcategories**: Give every category 2 to 6 subcategories, with positions starting at 1 inside each category.
3. **Weights**: Category weights must total 100. Subcategory weights inside each category must total 100.
4. **Ranges**: Choose range_min and range_max so a recruiter can move the category weight within a reasonable band, typically -10 to +10.
5. **Notes**: Use persona_notes for a one-paragraph summary of the ideal candidate and category custom_notes for anything a reviewer should know.

**Role:** %s

**Job Description:**
-----
%s
-----`

// resolvePrompt selects a prompt by priority: file content, then inline
// configuration, then the built-in default
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
