package persona

import "strings"

// ParseTechnologies splits a comma-delimited list, trimming entries and dropping blanks.
// The result is never nil.
func ParseTechnologies(raw string) []string {
	technologies := []string{}
	for part := range strings.SplitSeq(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			technologies = append(technologies, t)
		}
	}
	return technologies
}

// FormatTechnologies renders technologies as the comma-delimited string ParseTechnologies accepts
func FormatTechnologies(technologies []string) string {
	return strings.Join(technologies, ", ")
}
