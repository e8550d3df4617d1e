// Package search matches leads against free-text queries.
// It supports multiple strategies (substring, regex, token-based) through a
// common Provider interface so the mock API and local filtering agree on
// what a search term means.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// Provider defines the interface for search providers.
type Provider interface {
	// Match returns true if the lead matches the search query.
	Match(lead domain.Lead, query string) bool

	// Name returns the provider name for identification and debugging.
	Name() string
}

// Options holds configuration options for creating search providers.
type Options struct {
	CaseInsensitive bool     // If true, searches ignore case sensitivity
	Fields          []string // Fields to search in
}

// DefaultOptions returns the default search options: the name, email and
// phone of the lead, case-insensitive.
func DefaultOptions() Options {
	return Options{
		CaseInsensitive: true,
		Fields:          []string{"name", "email", "phone"},
	}
}

// Option is a function that modifies search options.
type Option func(*Options)

// WithCaseInsensitive sets case-insensitive search.
func WithCaseInsensitive(enabled bool) Option {
	return func(o *Options) {
		o.CaseInsensitive = enabled
	}
}

// WithFields sets the fields to search in.
// Valid fields: "id", "name", "email", "phone", "type", "status", "assignee".
func WithFields(fields []string) Option {
	return func(o *Options) {
		o.Fields = fields
	}
}

func applyOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the provider registered under name.
func New(name string, opts ...Option) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "substring":
		return NewSubstringProvider(opts...), nil
	case "token":
		return NewTokenProvider(opts...), nil
	case "regex":
		return NewRegexProvider(opts...), nil
	default:
		return nil, fmt.Errorf("unknown search mode %q (want substring, token or regex)", name)
	}
}

// fieldValues returns the searchable values of one lead field. Status
// matches both its wire name and its label.
func fieldValues(l domain.Lead, field string) []string {
	switch field {
	case "id":
		return []string{strconv.Itoa(l.ID)}
	case "name":
		return []string{l.FullName()}
	case "email":
		return []string{l.Email}
	case "phone":
		return []string{l.Phone}
	case "type":
		return []string{l.Type}
	case "status":
		return []string{l.Status.String(), l.Status.Label()}
	case "assignee":
		if !l.HasAssignee() {
			return nil
		}
		return []string{l.Assignee.Name}
	}
	return nil
}

// anyField reports whether match accepts a non-empty value of any field.
func anyField(l domain.Lead, fields []string, fold bool, match func(string) bool) bool {
	for _, field := range fields {
		for _, v := range fieldValues(l, field) {
			if v == "" {
				continue
			}
			if fold {
				v = strings.ToLower(v)
			}
			if match(v) {
				return true
			}
		}
	}
	return false
}
