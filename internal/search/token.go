package search

import (
	"strings"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// TokenProvider splits the query on whitespace. Every token must match at
// least one field. The special tokens "assigned" and "unassigned" filter on
// ownership instead of text.
type TokenProvider struct {
	opts Options
}

// NewTokenProvider creates a new token search provider.
func NewTokenProvider(opts ...Option) Provider {
	return &TokenProvider{opts: applyOptions(opts)}
}

// Match returns true if all text tokens match and the lead passes the
// ownership filter when one is given.
func (p *TokenProvider) Match(lead domain.Lead, query string) bool {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return true
	}

	assigned, unassigned := false, false
	text := make([]string, 0, len(tokens))
	for _, token := range tokens {
		switch strings.ToLower(token) {
		case "assigned":
			assigned = true
		case "unassigned":
			unassigned = true
		default:
			if p.opts.CaseInsensitive {
				token = strings.ToLower(token)
			}
			text = append(text, token)
		}
	}

	// both together cancel out
	if assigned != unassigned {
		if assigned && !lead.HasAssignee() {
			return false
		}
		if unassigned && lead.HasAssignee() {
			return false
		}
	}

	for _, token := range text {
		matched := anyField(lead, p.opts.Fields, p.opts.CaseInsensitive, func(v string) bool {
			return strings.Contains(v, token)
		})
		if !matched {
			return false
		}
	}
	return true
}

// Name returns the provider name.
func (p *TokenProvider) Name() string {
	return "token"
}
