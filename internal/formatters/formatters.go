package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumescore/internal/scoring"
	"resumescore/internal/types"
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

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchResult", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResult", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "AuditResult", &AuditTextFormatter{})
	registry.RegisterFormatter("markdown", "AuditResult", &AuditMarkdownFormatter{})
	registry.RegisterFormatter("text", "Batch", &BatchTextFormatter{})
	registry.RegisterFormatter("markdown", "Batch", &BatchMarkdownFormatter{})

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
	case *scoring.MatchResult:
		return "MatchResult"
	case *scoring.AuditResult:
		return "AuditResult"
	case []types.BatchItem:
		return "Batch"
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

// MatchTextFormatter handles text formatting for match results
type MatchTextFormatter struct{}

func (f *MatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*scoring.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected *scoring.MatchResult, got %T", data)
	}

	var output strings.Builder
	writeSummaryText(&output, "MATCH SCORE", &result.Summary)

	output.WriteString("=== MATCH DETAILS ===\n")
	fmt.Fprintf(&output, "Semantic overlap: %.1f%%\n", result.MatchDetails.SemanticOverlap)
	fmt.Fprintf(&output, "Structure: %.1f%%\n\n", result.MatchDetails.StructureScore)

	output.WriteString("Missing skills:\n")
	writeTextList(&output, result.MissingSkills, "None, every requested skill was found")
	output.WriteString("\n")

	writeSuggestionsText(&output, result.Suggestions)
	return output.String(), nil
}

func (f *MatchTextFormatter) SupportedType() string {
	return "MatchResult"
}

// MatchMarkdownFormatter handles markdown formatting for match results
type MatchMarkdownFormatter struct{}

func (f *MatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*scoring.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected *scoring.MatchResult, got %T", data)
	}

	var output strings.Builder
	writeSummaryMarkdown(&output, "Match Score", &result.Summary)

	output.WriteString("## Match Details\n\n")
	output.WriteString("| Component | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Semantic overlap | %.1f%% |\n", result.MatchDetails.SemanticOverlap)
	fmt.Fprintf(&output, "| Structure | %.1f%% |\n\n", result.MatchDetails.StructureScore)

	output.WriteString("### Missing Skills\n\n")
	writeMarkdownList(&output, result.MissingSkills, "_None, every requested skill was found._")
	output.WriteString("\n")

	writeSuggestionsMarkdown(&output, result.Suggestions)
	return output.String(), nil
}

func (f *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResult"
}

// AuditTextFormatter handles text formatting for audit results
type AuditTextFormatter struct{}

func (f *AuditTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*scoring.AuditResult)
	if !ok {
		return "", fmt.Errorf("expected *scoring.AuditResult, got %T", data)
	}

	var output strings.Builder
	writeSummaryText(&output, "RESUME AUDIT", &result.Summary)

	output.WriteString("=== BREAKDOWN (max 25 each) ===\n")
	fmt.Fprintf(&output, "Structure:   %4.1f\n", result.Breakdown.Structure)
	fmt.Fprintf(&output, "Skills:      %4.1f\n", result.Breakdown.Skills)
	fmt.Fprintf(&output, "Experience:  %4.1f\n", result.Breakdown.Experience)
	fmt.Fprintf(&output, "Readability: %4.1f\n\n", result.Breakdown.Readability)

	writeSuggestionsText(&output, result.Suggestions)
	return output.String(), nil
}

func (f *AuditTextFormatter) SupportedType() string {
	return "AuditResult"
}

// AuditMarkdownFormatter handles markdown formatting for audit results
type AuditMarkdownFormatter struct{}

func (f *AuditMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*scoring.AuditResult)
	if !ok {
		return "", fmt.Errorf("expected *scoring.AuditResult, got %T", data)
	}

	var output strings.Builder
	writeSummaryMarkdown(&output, "Resume Audit", &result.Summary)

	output.WriteString("## Breakdown\n\n")
	output.WriteString("| Pillar | Points (of 25) |\n|---|---|\n")
	fmt.Fprintf(&output, "| Structure | %.1f |\n", result.Breakdown.Structure)
	fmt.Fprintf(&output, "| Skills | %.1f |\n", result.Breakdown.Skills)
	fmt.Fprintf(&output, "| Experience | %.1f |\n", result.Breakdown.Experience)
	fmt.Fprintf(&output, "| Readability | %.1f |\n\n", result.Breakdown.Readability)

	writeSuggestionsMarkdown(&output, result.Suggestions)
	return output.String(), nil
}

func (f *AuditMarkdownFormatter) SupportedType() string {
	return "AuditResult"
}

// BatchTextFormatter ranks a batch run as a plain table
type BatchTextFormatter struct{}

func (f *BatchTextFormatter) Format(data any) (string, error) {
	items, ok := data.([]types.BatchItem)
	if !ok {
		return "", fmt.Errorf("expected []types.BatchItem, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== BATCH RANKING ===\n\n")
	for _, item := range items {
		if item.Result == nil {
			fmt.Fprintf(&output, " -  %-40s  error: %s\n", item.File, item.Error)
			continue
		}
		base := item.Result.Base()
		fmt.Fprintf(&output, "%2d. %-40s %5.1f  %s\n", item.Rank, item.File, base.Score, base.Recommendation)
		if missing := scoring.MissingSkillsOf(item.Result); len(missing) > 0 {
			fmt.Fprintf(&output, "    missing: %s\n", strings.Join(missing, ", "))
		}
	}
	return output.String(), nil
}

func (f *BatchTextFormatter) SupportedType() string {
	return "Batch"
}

// BatchMarkdownFormatter ranks a batch run as a markdown table
type BatchMarkdownFormatter struct{}

func (f *BatchMarkdownFormatter) Format(data any) (string, error) {
	items, ok := data.([]types.BatchItem)
	if !ok {
		return "", fmt.Errorf("expected []types.BatchItem, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Batch Ranking\n\n")
	output.WriteString("| Rank | File | Score | Recommendation | Missing Skills |\n|---|---|---|---|---|\n")
	for _, item := range items {
		if item.Result == nil {
			fmt.Fprintf(&output, "| - | %s | - | error: %s | |\n", item.File, item.Error)
			continue
		}
		base := item.Result.Base()
		fmt.Fprintf(&output, "| %d | %s | %.1f | %s | %s |\n",
			item.Rank, item.File, base.Score, base.Recommendation, strings.Join(scoring.MissingSkillsOf(item.Result), ", "))
	}
	return output.String(), nil
}

func (f *BatchMarkdownFormatter) SupportedType() string {
	return "Batch"
}

func writeSummaryText(output *strings.Builder, title string, s *scoring.Summary) {
	fmt.Fprintf(output, "=== %s ===\n", title)
	fmt.Fprintf(output, "Score: %.1f/100\n", s.Score)
	fmt.Fprintf(output, "Recommendation: %s\n\n", s.Recommendation)

	output.WriteString("Sections found:\n")
	writeTextList(output, s.SectionsFound, "None")
	output.WriteString("Missing sections:\n")
	writeTextList(output, s.MissingSections, "None")
	output.WriteString("\n")
}

func writeSummaryMarkdown(output *strings.Builder, title string, s *scoring.Summary) {
	fmt.Fprintf(output, "# %s\n\n", title)
	fmt.Fprintf(output, "**Score:** %.1f/100  \n", s.Score)
	fmt.Fprintf(output, "**Recommendation:** %s\n\n", s.Recommendation)

	output.WriteString("## Sections\n\n")
	fmt.Fprintf(output, "- **Found:** %s\n", joinOr(s.SectionsFound, "none"))
	fmt.Fprintf(output, "- **Missing:** %s\n\n", joinOr(s.MissingSections, "none"))
}

func writeSuggestionsText(output *strings.Builder, suggestions []string) {
	output.WriteString("=== SUGGESTIONS ===\n")
	for i, s := range suggestions {
		fmt.Fprintf(output, "%d. %s\n", i+1, s)
	}
}

func writeSuggestionsMarkdown(output *strings.Builder, suggestions []string) {
	output.WriteString("## Suggestions\n\n")
	for i, s := range suggestions {
		fmt.Fprintf(output, "%d. %s\n", i+1, s)
	}
}

func writeTextList(output *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(output, "- %s\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(output, "- %s\n", item)
	}
}

func writeMarkdownList(output *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		output.WriteString(empty + "\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(output, "- `%s`\n", item)
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
