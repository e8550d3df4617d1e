package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// StatusCount is the number of leads in one status.
type StatusCount struct {
	Status domain.Status
	Count  int
}

// CountByStatus counts leads per status in pipeline order. Unknown statuses
// follow in the order they were first seen.
func CountByStatus(leads []domain.Lead) []StatusCount {
	counts := make(map[domain.Status]int)
	var unknown []domain.Status
	for _, l := range leads {
		if _, seen := counts[l.Status]; !seen && !l.Status.IsValid() {
			unknown = append(unknown, l.Status)
		}
		counts[l.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for _, s := range append(domain.Statuses(), unknown...) {
		if n := counts[s]; n > 0 {
			out = append(out, StatusCount{Status: s, Count: n})
		}
	}
	return out
}

// WriteStatusSummary writes "Pending: 3  Hired: 1" for the given leads.
func WriteStatusSummary(leads []domain.Lead, writer io.Writer) error {
	counts := CountByStatus(leads)
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Status.Label(), c.Count))
	}
	_, err := fmt.Fprintln(writer, strings.Join(parts, "  "))
	return err
}

// PageSummary describes how much of the result set is loaded, e.g.
// "30 of 42 leads (page 2/3)".
func PageSummary(loaded int, p domain.Pagination) string {
	return fmt.Sprintf("%d of %d leads (page %d/%d)", loaded, p.Total, p.CurrentPage, max(p.LastPage, 1))
}

// Ago renders an "updated ... ago" duration. Negative means never.
func Ago(d time.Duration) string {
	switch {
	case d < 0:
		return "never"
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
}
