package domain

import (
	"fmt"
	"strings"
)

// Operator is a comparison used by an advanced filter predicate.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpContains Operator = "contains"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpIn       Operator = "in"
)

// IsValid checks if the operator is supported.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpContains, OpGt, OpLt, OpIn:
		return true
	default:
		return false
	}
}

// Predicate is a generic {field, operator, value} filter.
type Predicate struct {
	Field    string
	Operator Operator
	Value    string
}

// Validate checks the predicate is well formed.
func (p Predicate) Validate() error {
	if strings.TrimSpace(p.Field) == "" {
		return fmt.Errorf("predicate field cannot be empty")
	}
	if !p.Operator.IsValid() {
		return fmt.Errorf("invalid predicate operator: %q", p.Operator)
	}
	return nil
}

// ParsePredicate parses "field:operator:value" into a predicate.
func ParsePredicate(s string) (Predicate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Predicate{}, fmt.Errorf("invalid predicate %q: want field:operator:value", s)
	}
	p := Predicate{Field: parts[0], Operator: Operator(strings.ToLower(parts[1])), Value: parts[2]}
	if err := p.Validate(); err != nil {
		return Predicate{}, err
	}
	return p, nil
}

// FilterState is the complete set of list filters. It is replaced wholesale,
// never partially mutated; the With* helpers return modified copies.
type FilterState struct {
	Search     string
	Status     Status // StatusAll means no status filter
	Predicates []Predicate
}

// WithSearch returns a copy with the search term replaced.
func (f FilterState) WithSearch(term string) FilterState {
	out := f.Clone()
	out.Search = term
	return out
}

// WithStatus returns a copy with the status filter replaced.
func (f FilterState) WithStatus(status Status) FilterState {
	out := f.Clone()
	out.Status = status
	return out
}

// WithPredicates returns a copy with the advanced predicates replaced.
func (f FilterState) WithPredicates(preds []Predicate) FilterState {
	out := f.Clone()
	out.Predicates = append([]Predicate(nil), preds...)
	return out
}

// Clone returns a deep copy of the filter state.
func (f FilterState) Clone() FilterState {
	out := f
	if f.Predicates != nil {
		out.Predicates = append([]Predicate(nil), f.Predicates...)
	}
	return out
}

// IsEmpty returns true if the filter has no criteria set.
func (f FilterState) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && f.Status == StatusAll && len(f.Predicates) == 0
}

// Equal reports whether two filter states select the same leads.
func (f FilterState) Equal(other FilterState) bool {
	if strings.TrimSpace(f.Search) != strings.TrimSpace(other.Search) || f.Status != other.Status {
		return false
	}
	if len(f.Predicates) != len(other.Predicates) {
		return false
	}
	for i := range f.Predicates {
		if f.Predicates[i] != other.Predicates[i] {
			return false
		}
	}
	return true
}

// SearchTerm returns the trimmed search term.
func (f FilterState) SearchTerm() string {
	return strings.TrimSpace(f.Search)
}

// Payload returns the predicates sent to the server. The status filter becomes a
// status predicate only when a status is selected; the search term is not part of
// the predicate list and is sent separately when non-empty.
func (f FilterState) Payload() []Predicate {
	out := make([]Predicate, 0, len(f.Predicates)+1)
	if f.Status != StatusAll {
		out = append(out, Predicate{Field: "status", Operator: OpEq, Value: f.Status.String()})
	}
	out = append(out, f.Predicates...)
	return out
}
