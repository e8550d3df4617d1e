package render

import (
	"strings"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleLead() domain.Lead {
	return domain.Lead{
		ID:        42,
		Type:      "buyer",
		Status:    domain.StatusContacted,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Assignee:  &domain.Assignee{ID: 7, Name: "Grace"},
		CreatedAt: now.Add(-3 * time.Hour),
	}
}

func TestRow(t *testing.T) {
	row := Row(RowState{Lead: sampleLead(), Width: 100, Now: now})
	assert.Contains(t, row, "42")
	assert.Contains(t, row, "Ada Lovelace")
	assert.Contains(t, row, "Contacted")
	assert.Contains(t, row, "Grace")
	assert.Contains(t, row, "3h")
	assert.Contains(t, row, collapsedSymbol)
}

func TestRowMarkers(t *testing.T) {
	l := sampleLead()
	l.Assignee = nil

	expanded := Row(RowState{Lead: l, Expanded: true, Now: now})
	assert.Contains(t, expanded, expandedSymbol)
	assert.Contains(t, expanded, " - ")

	pending := Row(RowState{Lead: l, Expanded: true, Pending: domain.OpAssign, Now: now, Selected: true})
	assert.Contains(t, pending, pendingSymbol)
	assert.NotContains(t, pending, expandedSymbol)
}

func TestRowUnknownStatusShowsRawValue(t *testing.T) {
	l := sampleLead()
	l.Status = domain.Status("archived")
	assert.Contains(t, Row(RowState{Lead: l, Now: now}), "archived")
}

func TestDetail(t *testing.T) {
	l := sampleLead()
	l.Phone = ""
	lines := Detail(l, domain.OpNotify)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "type: buyer")
	assert.Contains(t, joined, "email: ada@example.com  phone: -")
	assert.Contains(t, joined, "pending: notify")
}

func TestTitle(t *testing.T) {
	f := domain.FilterState{Search: " ada ", Status: domain.StatusHired}
	title := Title(f, "loading more")
	assert.Contains(t, title, "Leads")
	assert.Contains(t, title, "status: Hired")
	assert.Contains(t, title, `search: "ada"`)
	assert.Contains(t, title, "loading more")

	assert.NotContains(t, Title(domain.FilterState{}, ""), "status:")
}

func TestFooter(t *testing.T) {
	out := Footer(FooterState{Summary: "2 of 5 leads (page 1/3)", Updated: "just now"})
	assert.Contains(t, out, "2 of 5 leads (page 1/3) · updated just now")
	assert.Contains(t, out, "n: notify")

	search := Footer(FooterState{Mode: "search", SearchInput: "ada"})
	assert.Contains(t, search, "/ada")
	assert.NotContains(t, search, "n: notify")

	narrow := Footer(FooterState{Width: 20})
	lines := strings.Split(narrow, "\n")
	assert.LessOrEqual(t, len([]rune(lines[len(lines)-1])), 20)
}

func TestPicker(t *testing.T) {
	out := Picker("Assign to", []string{"Ada", "Grace"}, 1)
	assert.Contains(t, out, "Assign to")
	assert.Contains(t, out, "  Ada")
	assert.Contains(t, out, "> Grace")
}

func TestEmptyAndMessage(t *testing.T) {
	assert.Contains(t, Empty(false), "Loading")
	assert.Contains(t, Empty(true), "No leads found")
	assert.Equal(t, "", Message("", "error"))
	assert.Contains(t, Message("boom", "error"), "boom")
}

func TestCalculateAge(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{72 * time.Hour, "3d"},
		{-time.Minute, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateAge(now.Add(-tt.ago), now), tt.ago.String())
	}
	assert.Equal(t, "", calculateAge(time.Time{}, now))
}

func TestNameWidth(t *testing.T) {
	assert.Equal(t, defaultNameWidth, nameWidth(0))
	assert.Equal(t, minNameWidth, nameWidth(30))
	assert.Equal(t, 120-pendingWidth-idWidth-statusWidth-assigneeWidth-ageWidth-spacesBetweenColumns, nameWidth(120))
}

func TestAnsiColorNumber(t *testing.T) {
	assert.Equal(t, "34", ansiColorNumber(colors.Blue))
	assert.Equal(t, "", ansiColorNumber("x"))
}
