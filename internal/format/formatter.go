// Package format renders leads for CLI output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// Formatter writes a list of leads.
type Formatter interface {
	FormatLeads(leads []domain.Lead, writer io.Writer) error
}

// FormatterType names an output style.
type FormatterType string

const (
	// FormatterTypeSimple prints one line per lead: ID, status and name.
	FormatterTypeSimple FormatterType = "simple"
	// FormatterTypeTable prints an aligned table with headers.
	FormatterTypeTable FormatterType = "table"
	// FormatterTypeCompact prints only IDs and names.
	FormatterTypeCompact FormatterType = "compact"
	// FormatterTypeJSON prints a JSON array.
	FormatterTypeJSON FormatterType = "json"
)

// ParseFormatterType validates a --format value.
func ParseFormatterType(s string) (FormatterType, error) {
	switch t := FormatterType(s); t {
	case FormatterTypeSimple, FormatterTypeTable, FormatterTypeCompact, FormatterTypeJSON:
		return t, nil
	case "":
		return FormatterTypeTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want simple, table, compact or json)", s)
	}
}

// NewFormatter creates a formatter of the given type. Unknown types get the table.
func NewFormatter(formatterType FormatterType) Formatter {
	switch formatterType {
	case FormatterTypeSimple:
		return SimpleFormatter{}
	case FormatterTypeCompact:
		return CompactFormatter{}
	case FormatterTypeJSON:
		return JSONFormatter{}
	default:
		return NewTableFormatter()
	}
}

// SimpleFormatter prints "ID  status  name <assignee>".
type SimpleFormatter struct{}

func (SimpleFormatter) FormatLeads(leads []domain.Lead, writer io.Writer) error {
	for _, l := range leads {
		line := fmt.Sprintf("%-6d %-18s %s", l.ID, l.StatusLabel(), l.FullName())
		if l.HasAssignee() {
			line += " -> " + l.Assignee.Name
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	return nil
}

// CompactFormatter prints "ID name".
type CompactFormatter struct{}

func (CompactFormatter) FormatLeads(leads []domain.Lead, writer io.Writer) error {
	for _, l := range leads {
		if _, err := fmt.Fprintf(writer, "%d %s\n", l.ID, l.FullName()); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter prints leads as a JSON array.
type JSONFormatter struct{}

type jsonAssignee struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type jsonLead struct {
	ID        int           `json:"id"`
	Type      string        `json:"type,omitempty"`
	Status    string        `json:"status"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Assignee  *jsonAssignee `json:"assignee"`
	CreatedAt string        `json:"created_at,omitempty"`
	UpdatedAt string        `json:"updated_at,omitempty"`
}

func (JSONFormatter) FormatLeads(leads []domain.Lead, writer io.Writer) error {
	out := make([]jsonLead, 0, len(leads))
	for _, l := range leads {
		j := jsonLead{
			ID:        l.ID,
			Type:      l.Type,
			Status:    l.Status.String(),
			FirstName: l.FirstName,
			LastName:  l.LastName,
			Email:     l.Email,
			Phone:     l.Phone,
			CreatedAt: timestamp(l.CreatedAt),
			UpdatedAt: timestamp(l.UpdatedAt),
		}
		if l.HasAssignee() {
			j.Assignee = &jsonAssignee{ID: l.Assignee.ID, Name: l.Assignee.Name}
		}
		out = append(out, j)
	}
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
