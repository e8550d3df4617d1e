package search

import (
	"strings"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// SubstringProvider matches if any configured field contains the query.
type SubstringProvider struct {
	opts Options
}

// NewSubstringProvider creates a new substring search provider.
func NewSubstringProvider(opts ...Option) Provider {
	return &SubstringProvider{opts: applyOptions(opts)}
}

// Match returns true if any configured field contains the query substring.
func (p *SubstringProvider) Match(lead domain.Lead, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	if p.opts.CaseInsensitive {
		query = strings.ToLower(query)
	}
	return anyField(lead, p.opts.Fields, p.opts.CaseInsensitive, func(v string) bool {
		return strings.Contains(v, query)
	})
}

// Name returns the provider name.
func (p *SubstringProvider) Name() string {
	return "substring"
}
