package projects

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"clipdeck/internal/api"
	"clipdeck/internal/services"
)

// Problem describes one invalid parameter.
type Problem struct {
	Field  string
	Reason string
}

// ValidationError lists every parameter that failed client-side checks.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid parameters"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+" "+p.Reason)
	}
	return strings.Join(parts, "; ")
}

// Is classifies validation failures under services.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == services.ErrValidation
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Field)
	}
	return out
}

// Validate checks params against schema. Required parameters must be present
// and non-blank; text and url values must respect max_length. Fields are
// reported in name order.
func Validate(schema map[string]api.ParameterSpec, params map[string]any) error {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []Problem
	for _, name := range names {
		spec := schema[name]
		value, present := params[name]
		if spec.Required && (!present || isBlank(value)) {
			problems = append(problems, Problem{Field: name, Reason: "is required"})
			continue
		}
		if spec.MaxLength > 0 && present {
			if s, ok := value.(string); ok && utf8.RuneCountInString(s) > spec.MaxLength {
				problems = append(problems, Problem{
					Field:  name,
					Reason: fmt.Sprintf("must be at most %d characters", spec.MaxLength),
				})
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ApplyDefaults returns a copy of params with schema defaults filled in for
// absent keys.
func ApplyDefaults(schema map[string]api.ParameterSpec, params map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+len(params))
	for name, spec := range schema {
		if spec.Default != nil {
			out[name] = spec.Default
		}
	}
	for name, value := range params {
		out[name] = value
	}
	return out
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}
