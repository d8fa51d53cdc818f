package models

import (
	"fmt"
	"strings"
)

// SmellType identifies the kind of code smell.
type SmellType string

const (
	SmellLongFunction      SmellType = "long_function"
	SmellHighComplexity    SmellType = "high_complexity"
	SmellTooManyParameters SmellType = "too_many_parameters"
	SmellDeepNesting       SmellType = "deep_nesting"
	SmellLargeFile         SmellType = "large_file"
	SmellCodeDuplication   SmellType = "code_duplication"
)

// String implements fmt.Stringer.
func (t SmellType) String() string { return string(t) }

// SmellTypes lists every smell type in reporting order.
func SmellTypes() []SmellType {
	return []SmellType{
		SmellLongFunction,
		SmellHighComplexity,
		SmellTooManyParameters,
		SmellDeepNesting,
		SmellLargeFile,
		SmellCodeDuplication,
	}
}

// Severity is an ordered smell severity: Info < Warning < Severe.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeveritySevere:
		return "severe"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a severity name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "severe":
		return SeveritySevere, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText encodes the severity by name for JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CodeSmell is a single detected quality issue.
// Line is 0 and Function is empty for file-level smells.
type CodeSmell struct {
	Type     SmellType `json:"type" yaml:"type" toon:"type"`
	Severity Severity  `json:"severity" yaml:"severity" toon:"severity"`
	Message  string    `json:"message" yaml:"message" toon:"message"`
	File     string    `json:"file" yaml:"file" toon:"file"`
	Line     int       `json:"line" yaml:"line" toon:"line"`
	Function string    `json:"function" yaml:"function" toon:"function"`
}

// String renders the smell as "type (severity) at file:line".
func (s CodeSmell) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", s.Type, s.Severity, s.File, s.Line)
}

// SmellSummary counts smells by type and severity.
type SmellSummary struct {
	Total      int               `json:"total" yaml:"total" toon:"total"`
	BySeverity map[string]int    `json:"by_severity" yaml:"by_severity" toon:"by_severity"`
	ByType     map[SmellType]int `json:"by_type" yaml:"by_type" toon:"by_type"`
}

// SummarizeSmells builds a SmellSummary.
func SummarizeSmells(smells []CodeSmell) SmellSummary {
	summary := SmellSummary{
		Total:      len(smells),
		BySeverity: make(map[string]int),
		ByType:     make(map[SmellType]int),
	}
	for _, s := range smells {
		summary.BySeverity[s.Severity.String()]++
		summary.ByType[s.Type]++
	}
	return summary
}
