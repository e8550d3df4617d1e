// Package status renders a one-line summary of how many leads sit in each
// pipeline stage, for shell prompts and tmux status bars.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Formats accepted by Render.
const (
	FormatCompact   = "compact"
	FormatDetailed  = "detailed"
	FormatCountOnly = "count-only"
)

// DefaultColors are the tmux colors of each status in detailed output.
const DefaultColors = "pending:yellow,assigned:blue,contacted:cyan,not_relevant:colour244,meeting_arranged:magenta,hired:green"

// Fetcher is the part of the lead repository the counts need.
type Fetcher interface {
	FetchLeads(ctx context.Context, filters domain.FilterState, page, pageSize int) (domain.LeadPage, error)
}

// Counts holds the number of matching leads per status.
type Counts struct {
	Total    int
	ByStatus map[domain.Status]int
}

// Options holds parameters for the panel.
type Options struct {
	Format string // compact, detailed or count-only; empty reads status_format
	// Tmux wraps counts in #[fg=...] color markup.
	Tmux bool
}

// Count asks the API for the total of each status under filters. Each
// status costs one request for a single-row page; they run concurrently.
func Count(ctx context.Context, repo Fetcher, filters domain.FilterState) (Counts, error) {
	statuses := domain.Statuses()
	totals := make([]int, len(statuses))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range statuses {
		f := filters.Clone()
		f.Status = s
		g.Go(func() error {
			page, err := repo.FetchLeads(ctx, f, 1, 1)
			if err != nil {
				return fmt.Errorf("count %s leads: %w", s, err)
			}
			totals[i] = page.Pagination.Total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}

	c := Counts{ByStatus: make(map[domain.Status]int, len(statuses))}
	for i, s := range statuses {
		c.ByStatus[s] = totals[i]
		c.Total += totals[i]
	}
	return c, nil
}

// Render formats counts. Nothing is printed when there are no leads, so a
// status bar segment disappears.
func Render(c Counts, opts Options) (string, error) {
	format := opts.Format
	if format == "" {
		format = config.Get("status_format", FormatCompact)
	}
	if c.Total == 0 {
		switch format {
		case FormatCompact, FormatDetailed, FormatCountOnly:
			return "", nil
		}
	}

	colors := map[string]string{}
	if opts.Tmux {
		colors = parseColors(config.Get("status_colors", DefaultColors))
	}

	switch format {
	case FormatCompact:
		return formatCompact(c, colors), nil
	case FormatDetailed:
		return formatDetailed(c, colors), nil
	case FormatCountOnly:
		return fmt.Sprintf("%d", c.Total), nil
	default:
		return "", fmt.Errorf("unknown format: %s", format)
	}
}

// formatCompact shows the total and how many leads still wait for an owner.
func formatCompact(c Counts, colors map[string]string) string {
	out := fmt.Sprintf("%d leads", c.Total)
	if pending := c.ByStatus[domain.StatusPending]; pending > 0 {
		out += " · " + paint(colors, domain.StatusPending, fmt.Sprintf("%d pending", pending))
	}
	return out
}

func formatDetailed(c Counts, colors map[string]string) string {
	parts := make([]string, 0, len(c.ByStatus))
	for _, s := range domain.Statuses() {
		n := c.ByStatus[s]
		if n == 0 {
			continue
		}
		parts = append(parts, paint(colors, s, fmt.Sprintf("%s:%d", s.Label(), n)))
	}
	return strings.Join(parts, " ")
}

func paint(colors map[string]string, s domain.Status, text string) string {
	color, ok := colors[s.String()]
	if !ok || color == "" {
		return text
	}
	return fmt.Sprintf("#[fg=%s]%s#[default]", color, text)
}

// parseColors reads "status:color,..." pairs.
func parseColors(raw string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			m[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return m
}
