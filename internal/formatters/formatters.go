package formatters

import (
	"encoding/json"
	"fmt"
	"sort"

	"personakit/internal/persona"
	"personakit/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type keys used by the registry
const (
	TypeAny                = "any"
	TypePersona            = "Persona"
	TypeValidationReport   = "ValidationReport"
	TypePersonaList        = "PersonaList"
	TypeJobDescriptionList = "JobDescriptionList"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("yaml", TypeAny, &YAMLFormatter{})
	registry.RegisterFormatter("text", TypePersona, &PersonaTextFormatter{})
	registry.RegisterFormatter("markdown", TypePersona, &PersonaMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeValidationReport, &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", TypeValidationReport, &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", TypePersonaList, &PersonaListTextFormatter{})
	registry.RegisterFormatter("markdown", TypePersonaList, &PersonaListTextFormatter{})
	registry.RegisterFormatter("text", TypeJobDescriptionList, &JobDescriptionListTextFormatter{})
	registry.RegisterFormatter("markdown", TypeJobDescriptionList, &JobDescriptionListTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.PersonaTree, persona.SaveRequest:
		return TypePersona
	case types.ValidationReport:
		return TypeValidationReport
	case []types.PersonaSummary:
		return TypePersonaList
	case []types.JobDescription:
		return TypeJobDescriptionList
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// YAMLFormatter renders any value as block YAML using its JSON field names and order
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(jsonData, &node); err != nil {
		return "", fmt.Errorf("failed to convert to yaml: %w", err)
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return TypeAny
}

// blockStyle clears the flow and quoting styles JSON input leaves on every node.
// Scalars whose tag would change without quotes are re-quoted by the encoder.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// asDocument extracts the tree and baseline from the persona shapes the CLI prints
func asDocument(data any) (types.PersonaTree, types.Baseline, error) {
	switch d := data.(type) {
	case types.PersonaTree:
		return d, nil, nil
	case persona.SaveRequest:
		return d.PersonaTree, d.Baseline, nil
	default:
		return types.PersonaTree{}, nil, fmt.Errorf("expected persona, got %T", data)
	}
}

// GlobalRegistry is the registry used by the CLI output handler
var GlobalRegistry = NewFormatterRegistry()
