package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvalign/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ModifyCVOutput", &ModifyTextFormatter{})
	registry.RegisterFormatter("markdown", "ModifyCVOutput", &ModifyMarkdownFormatter{})
	registry.RegisterFormatter("text", "AlignmentScores", &ScoresTextFormatter{})
	registry.RegisterFormatter("markdown", "AlignmentScores", &ScoresMarkdownFormatter{})
	registry.RegisterFormatter("text", "MatchJobsOutput", &MatchesTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchJobsOutput", &MatchesMarkdownFormatter{})

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

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ModifyCVOutput:
		return "ModifyCVOutput"
	case types.AlignmentScores:
		return "AlignmentScores"
	case types.MatchJobsOutput:
		return "MatchJobsOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ModifyTextFormatter handles text formatting for modify results
type ModifyTextFormatter struct{}

func (mtf *ModifyTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ModifyCVOutput)
	if !ok {
		return "", fmt.Errorf("expected ModifyCVOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MODIFIED CV (LATEX) ===\n\n")
	output.WriteString(result.ModifiedCV)
	output.WriteString("\n\n")
	output.WriteString(fmt.Sprintf("Artifact: %s\n", result.Filename))

	return output.String(), nil
}

func (mtf *ModifyTextFormatter) SupportedType() string {
	return "ModifyCVOutput"
}

// ModifyMarkdownFormatter handles markdown formatting for modify results
type ModifyMarkdownFormatter struct{}

func (mmf *ModifyMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ModifyCVOutput)
	if !ok {
		return "", fmt.Errorf("expected ModifyCVOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Modified CV\n\n")
	output.WriteString("```latex\n")
	output.WriteString(result.ModifiedCV)
	output.WriteString("\n```\n\n")
	output.WriteString(fmt.Sprintf("**Artifact:** %s\n", result.Filename))

	return output.String(), nil
}

func (mmf *ModifyMarkdownFormatter) SupportedType() string {
	return "ModifyCVOutput"
}

// ScoresTextFormatter handles text formatting for alignment scores
type ScoresTextFormatter struct{}

func (stf *ScoresTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AlignmentScores)
	if !ok {
		return "", fmt.Errorf("expected AlignmentScores, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== CV ALIGNMENT SCORES ===\n\n")
	output.WriteString(fmt.Sprintf("Fair Match:          %d/100\n", result.FairMatch))
	output.WriteString(fmt.Sprintf("Experience Level:    %d/100\n", result.ExpLevel))
	output.WriteString(fmt.Sprintf("Skill:               %d/100\n", result.Skill))
	output.WriteString(fmt.Sprintf("Industry Experience: %d/100\n", result.IndustryExp))

	return output.String(), nil
}

func (stf *ScoresTextFormatter) SupportedType() string {
	return "AlignmentScores"
}

// ScoresMarkdownFormatter handles markdown formatting for alignment scores
type ScoresMarkdownFormatter struct{}

func (smf *ScoresMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AlignmentScores)
	if !ok {
		return "", fmt.Errorf("expected AlignmentScores, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# CV Alignment Scores\n\n")
	output.WriteString("| Dimension | Score |\n")
	output.WriteString("|-----------|-------|\n")
	output.WriteString(fmt.Sprintf("| Fair Match | %d/100 |\n", result.FairMatch))
	output.WriteString(fmt.Sprintf("| Experience Level | %d/100 |\n", result.ExpLevel))
	output.WriteString(fmt.Sprintf("| Skill | %d/100 |\n", result.Skill))
	output.WriteString(fmt.Sprintf("| Industry Experience | %d/100 |\n", result.IndustryExp))

	return output.String(), nil
}

func (smf *ScoresMarkdownFormatter) SupportedType() string {
	return "AlignmentScores"
}

// MatchesTextFormatter handles text formatting for ranked posting matches
type MatchesTextFormatter struct{}

func (mtf *MatchesTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchJobsOutput)
	if !ok {
		return "", fmt.Errorf("expected MatchJobsOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== TOP JOB MATCHES ===\n\n")
	if len(result.TopMatches) == 0 {
		output.WriteString("No matches.\n")
		return output.String(), nil
	}

	for i, match := range result.TopMatches {
		output.WriteString(fmt.Sprintf("%d. %s at %s (alignment: %d/100)\n",
			i+1, match.JobTitle, match.EmployerName, match.Alignment))
		if match.JobURL != "" {
			output.WriteString(fmt.Sprintf("   Apply: %s\n", match.JobURL))
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (mtf *MatchesTextFormatter) SupportedType() string {
	return "MatchJobsOutput"
}

// MatchesMarkdownFormatter handles markdown formatting for ranked posting matches
type MatchesMarkdownFormatter struct{}

func (mmf *MatchesMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchJobsOutput)
	if !ok {
		return "", fmt.Errorf("expected MatchJobsOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Top Job Matches\n\n")
	if len(result.TopMatches) == 0 {
		output.WriteString("No matches.\n")
		return output.String(), nil
	}

	for i, match := range result.TopMatches {
		output.WriteString(fmt.Sprintf("## %d. %s at %s\n\n", i+1, match.JobTitle, match.EmployerName))
		output.WriteString(fmt.Sprintf("**Alignment:** %d/100\n\n", match.Alignment))
		if match.JobURL != "" {
			output.WriteString(fmt.Sprintf("**Apply:** %s\n\n", match.JobURL))
		}
	}

	return output.String(), nil
}

func (mmf *MatchesMarkdownFormatter) SupportedType() string {
	return "MatchJobsOutput"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
