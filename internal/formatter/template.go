// Package formatter renders leads through user supplied line templates such as
// "{{id}} {{name}} [{{status}}]", with a set of named presets.
package formatter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

var variablePattern = regexp.MustCompile(`\{\{([a-z0-9-]+)\}\}`)

// TemplateEngine parses and expands line templates.
type TemplateEngine interface {
	// Parse returns the variables used by the template, without duplicates.
	Parse(template string) ([]string, error)
	// Substitute expands the template for one lead.
	Substitute(template string, ctx VariableContext) (string, error)
}

type templateEngine struct {
	resolver VariableResolver
}

// NewTemplateEngine creates a template engine using the lead variables.
func NewTemplateEngine() TemplateEngine {
	return &templateEngine{resolver: NewVariableResolver()}
}

func (te *templateEngine) Parse(template string) ([]string, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	variables := []string{}
	for _, match := range variablePattern.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		if !te.resolver.Known(name) {
			return nil, unknownVariable(name)
		}
		seen[name] = true
		variables = append(variables, name)
	}
	return variables, nil
}

func (te *templateEngine) Substitute(template string, ctx VariableContext) (string, error) {
	var firstErr error
	out := variablePattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[2 : len(token)-2]
		value, err := te.resolver.Resolve(name, ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ValidateTemplate checks the variable delimiters are balanced.
func ValidateTemplate(template string) error {
	opens, closes := strings.Count(template, "{{"), strings.Count(template, "}}")
	if opens != closes {
		return fmt.Errorf("mismatched variable delimiters: %d opens, %d closes", opens, closes)
	}
	return nil
}

// TemplateFormatter writes one expanded template line per lead.
type TemplateFormatter struct {
	engine   TemplateEngine
	template string
	pending  map[int]domain.OperationKind
}

// NewTemplateFormatter validates template and returns a formatter for it.
func NewTemplateFormatter(template string) (*TemplateFormatter, error) {
	engine := NewTemplateEngine()
	if _, err := engine.Parse(template); err != nil {
		return nil, err
	}
	return &TemplateFormatter{engine: engine, template: template}, nil
}

// WithPending provides the in-flight operations for the {{pending}} variable.
func (f *TemplateFormatter) WithPending(pending map[int]domain.OperationKind) *TemplateFormatter {
	f.pending = pending
	return f
}

// FormatLeads implements format.Formatter.
func (f *TemplateFormatter) FormatLeads(leads []domain.Lead, writer io.Writer) error {
	for _, l := range leads {
		ctx := VariableContext{Lead: l}
		if op, ok := f.pending[l.ID]; ok {
			ctx.Pending = op
		}
		line, err := f.engine.Substitute(f.template, ctx)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	return nil
}
