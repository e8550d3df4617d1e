// Package render draws the lead list rows, header and footer.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/format"
)

const (
	idWidth              = 6
	statusWidth          = 17
	assigneeWidth        = 16
	ageWidth             = 5
	pendingWidth         = 2
	spacesBetweenColumns = 10
	defaultNameWidth     = 30
	minNameWidth         = 10
	expandedSymbol       = "▾"
	collapsedSymbol      = "▸"
	pendingSymbol        = "…"
)

// FooterState defines the inputs needed to render the footer.
type FooterState struct {
	Mode        string // "", "search", "assign" or "status"
	SearchInput string
	Summary     string
	Updated     string
	Width       int
}

// RowState defines the inputs needed to render a lead row.
type RowState struct {
	Lead     domain.Lead
	Pending  domain.OperationKind
	Width    int
	Selected bool
	Expanded bool
	Now      time.Time
}

// Header renders the column header.
func Header(width int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))

	header := fmt.Sprintf("%-*s %-*s  %-*s  %-*s  %-*s  %-*s",
		pendingWidth, "",
		idWidth, "ID",
		nameWidth(width), "NAME",
		statusWidth, "STATUS",
		assigneeWidth, "ASSIGNEE",
		ageWidth, "AGE",
	)
	return headerStyle.Render(header)
}

// Title renders the top line: the active filters and a busy indicator.
func Title(filters domain.FilterState, busy string) string {
	title := lipgloss.NewStyle().Bold(true).Render("Leads")
	parts := []string{title}
	if filters.Status != domain.StatusAll {
		parts = append(parts, "status: "+filters.Status.Label())
	}
	if term := filters.SearchTerm(); term != "" {
		parts = append(parts, fmt.Sprintf("search: %q", term))
	}
	for _, p := range filters.Predicates {
		parts = append(parts, fmt.Sprintf("%s %s %s", p.Field, p.Operator, p.Value))
	}
	if busy != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(busy))
	}
	return strings.Join(parts, "  ")
}

// Row renders a single lead row.
func Row(state RowState) string {
	marker := collapsedSymbol
	if state.Expanded {
		marker = expandedSymbol
	}
	if state.Pending != "" {
		marker = pendingSymbol
	}

	assignee := "-"
	if state.Lead.HasAssignee() {
		assignee = state.Lead.Assignee.Name
	}

	width := nameWidth(state.Width)
	row := fmt.Sprintf("%-*s %-*d  %-*s  %-*s  %-*s  %-*s",
		pendingWidth, marker,
		idWidth, state.Lead.ID,
		width, truncate(state.Lead.FullName(), width),
		statusWidth, truncate(state.Lead.StatusLabel(), statusWidth),
		assigneeWidth, truncate(assignee, assigneeWidth),
		ageWidth, calculateAge(state.Lead.CreatedAt, state.Now),
	)
	if state.Selected {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(ansiColorNumber(colors.Blue))).
			Foreground(lipgloss.Color("0")).
			Render(row)
	}
	return renderWithStatusColor(row, state.Lead.Status)
}

// Detail renders the expanded lines shown under a lead row.
func Detail(l domain.Lead, pending domain.OperationKind) []string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(pendingWidth + 1)
	lines := []string{
		fmt.Sprintf("type: %s", valueOr(l.Type, "-")),
		fmt.Sprintf("email: %s  phone: %s", valueOr(l.Email, "-"), valueOr(l.Phone, "-")),
	}
	if !l.CreatedAt.IsZero() {
		lines = append(lines, "created: "+l.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if pending != "" {
		lines = append(lines, "pending: "+string(pending))
	}
	for i, line := range lines {
		lines[i] = style.Render(line)
	}
	return lines
}

// Empty renders the placeholder for an empty list.
func Empty(loaded bool) string {
	text := "Loading leads..."
	if loaded {
		text = "No leads found"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(text)
}

// Picker renders a selection list with the cursor on index selected.
func Picker(title string, options []string, selected int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(colors.Cyan))).Bold(true)
	for i, opt := range options {
		b.WriteString("\n")
		if i == selected {
			b.WriteString(selectedStyle.Render("> " + opt))
			continue
		}
		b.WriteString("  " + opt)
	}
	return b.String()
}

// Message renders a status line message.
func Message(text, kind string) string {
	if text == "" {
		return ""
	}
	var color string
	switch kind {
	case "error":
		color = colors.Red
	case "warning":
		color = colors.Yellow
	case "success":
		color = colors.Green
	default:
		color = colors.Cyan
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(color))).Render(text)
}

// Footer renders the summary and key help.
func Footer(state FooterState) string {
	var help []string
	switch state.Mode {
	case "search":
		help = []string{"/" + state.SearchInput, "enter: keep", "esc: clear"}
	case "assign", "status":
		help = []string{"j/k: move", "enter: select", "esc: cancel"}
	default:
		help = []string{
			"j/k: move", "enter: expand", "/: search", "s: status filter",
			"a: assign", "u: unassign", "t: set status", "n: notify",
			"m: more", "r: refresh", "q: quit",
		}
	}

	summary := state.Summary
	if state.Updated != "" {
		summary += " · updated " + state.Updated
	}
	helpLine := strings.Join(help, "  ")
	if state.Width > 0 && utf8.RuneCountInString(helpLine) > state.Width {
		helpLine = truncate(helpLine, state.Width)
	}
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return footerStyle.Render(summary) + "\n" + footerStyle.Render(helpLine)
}

// Summary renders the loaded count and page position.
func Summary(loaded int, p domain.Pagination) string {
	return format.PageSummary(loaded, p)
}

func renderWithStatusColor(row string, status domain.Status) string {
	color, ok := statusColors[status]
	if !ok {
		return row
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(color))).Render(row)
}

var statusColors = map[domain.Status]string{
	domain.StatusPending:         colors.Yellow,
	domain.StatusContacted:       colors.Cyan,
	domain.StatusNotRelevant:     colors.Red,
	domain.StatusMeetingArranged: colors.Blue,
	domain.StatusHired:           colors.Green,
}

func nameWidth(width int) int {
	if width <= 0 {
		return defaultNameWidth
	}
	w := width - pendingWidth - idWidth - statusWidth - assigneeWidth - ageWidth - spacesBetweenColumns
	if w < minNameWidth {
		return minNameWidth
	}
	return w
}

func calculateAge(created, now time.Time) string {
	if created.IsZero() {
		return ""
	}
	d := now.Sub(created)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", max(int(d.Seconds()), 0))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func ansiColorNumber(ansi string) string {
	if len(ansi) < 2 {
		return ""
	}
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
