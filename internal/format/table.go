package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
)

// TableConfig holds configuration for table formatting.
type TableConfig struct {
	ShowHeaders bool
	// HeaderColor is an ANSI color sequence, empty for plain output.
	HeaderColor string
	// PendingMarker is appended to the ID of leads with a mutation in flight.
	PendingMarker string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() *TableConfig {
	return &TableConfig{
		ShowHeaders:   true,
		HeaderColor:   colors.Blue,
		PendingMarker: "*",
	}
}

// TableColumn is one table column.
type TableColumn struct {
	Name      string
	Width     int
	Alignment string // left, right or center
	Extractor func(domain.Lead) string
}

// TableFormatter renders leads as an aligned table.
type TableFormatter struct {
	config  *TableConfig
	columns []TableColumn
	pending map[int]domain.OperationKind
}

// NewTableFormatter creates a table with the default lead columns.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		config: DefaultTableConfig(),
		columns: []TableColumn{
			{Name: "ID", Width: 6, Alignment: "right", Extractor: func(l domain.Lead) string { return strconv.Itoa(l.ID) }},
			{Name: "Name", Width: 24, Extractor: func(l domain.Lead) string { return l.FullName() }},
			{Name: "Status", Width: 16, Extractor: func(l domain.Lead) string { return l.StatusLabel() }},
			{Name: "Assignee", Width: 16, Extractor: assigneeName},
			{Name: "Email", Width: 28, Extractor: func(l domain.Lead) string { return l.Email }},
		},
	}
}

// WithConfig replaces the table configuration.
func (f *TableFormatter) WithConfig(config *TableConfig) *TableFormatter {
	f.config = config
	return f
}

// WithColumns appends custom columns.
func (f *TableFormatter) WithColumns(columns ...TableColumn) *TableFormatter {
	f.columns = append(f.columns, columns...)
	return f
}

// WithPending marks the rows of leads with a mutation in flight.
func (f *TableFormatter) WithPending(pending map[int]domain.OperationKind) *TableFormatter {
	f.pending = pending
	return f
}

// FormatLeads writes the table. Nothing is written for an empty list.
func (f *TableFormatter) FormatLeads(leads []domain.Lead, writer io.Writer) error {
	if len(leads) == 0 {
		return nil
	}
	if f.config.ShowHeaders {
		if err := f.writeLine(writer, f.headerCells(), true); err != nil {
			return err
		}
		if err := f.writeLine(writer, f.separatorCells(), true); err != nil {
			return err
		}
	}
	for _, l := range leads {
		if err := f.writeLine(writer, f.rowCells(l), false); err != nil {
			return err
		}
	}
	return nil
}

func (f *TableFormatter) headerCells() []string {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		cells[i] = formatString(col.Name, col.Width, "left")
	}
	return cells
}

func (f *TableFormatter) separatorCells() []string {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		cells[i] = strings.Repeat("-", col.Width)
	}
	return cells
}

func (f *TableFormatter) rowCells(l domain.Lead) []string {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		value := col.Extractor(l)
		if i == 0 && f.pending != nil && f.config.PendingMarker != "" {
			if _, busy := f.pending[l.ID]; busy {
				value += f.config.PendingMarker
			}
		}
		if col.Alignment == "" || col.Alignment == "left" {
			cells[i] = truncateString(value, col.Width)
		} else {
			cells[i] = formatString(value, col.Width, col.Alignment)
		}
	}
	return cells
}

func (f *TableFormatter) writeLine(writer io.Writer, cells []string, header bool) error {
	line := strings.TrimRight(strings.Join(cells, "  "), " ")
	if header && f.config.HeaderColor != "" {
		line = f.config.HeaderColor + line + colors.Reset
	}
	_, err := fmt.Fprintln(writer, line)
	return err
}

func assigneeName(l domain.Lead) string {
	if !l.HasAssignee() {
		return "-"
	}
	if l.Assignee.Name == "" {
		return "#" + strconv.Itoa(l.Assignee.ID)
	}
	return l.Assignee.Name
}

// formatString pads or cuts s to width with the given alignment.
func formatString(s string, width int, alignment string) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return string([]rune(s)[:width])
	}
	pad := width - n
	switch alignment {
	case "right":
		return strings.Repeat(" ", pad) + s
	case "center":
		left := pad / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
	default:
		return s + strings.Repeat(" ", pad)
	}
}

// truncateString pads s to width, cutting it with "..." when too long.
func truncateString(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s + strings.Repeat(" ", width-len(runes))
	}
	if width < 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
