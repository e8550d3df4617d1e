package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// wireAssignee is the JSON shape of an assignee.
type wireAssignee struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// wireStatus accepts the status as a wire name, display label or legacy numeric code.
type wireStatus string

func (s *wireStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = wireStatus(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("status must be a string or number: %w", err)
	}
	*s = wireStatus(n.String())
	return nil
}

// domainStatus maps a known value to its canonical status and keeps unknown
// values verbatim.
func (s wireStatus) domainStatus() domain.Status {
	if parsed, err := domain.ParseStatus(string(s)); err == nil {
		return parsed
	}
	return domain.Status(s)
}

// wireLead is the JSON shape of a lead.
type wireLead struct {
	ID        int           `json:"id"`
	Type      string        `json:"type"`
	Status    wireStatus    `json:"status"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Assignee  *wireAssignee `json:"assignee"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

func (w wireLead) toDomain() (domain.Lead, error) {
	lead := domain.Lead{
		ID:        w.ID,
		Type:      w.Type,
		Status:    w.Status.domainStatus(),
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Email:     w.Email,
		Phone:     w.Phone,
		CreatedAt: parseTimestamp(w.CreatedAt),
		UpdatedAt: parseTimestamp(w.UpdatedAt),
	}
	if w.Assignee != nil && w.Assignee.ID != 0 {
		lead.Assignee = &domain.Assignee{ID: w.Assignee.ID, Name: w.Assignee.Name}
	}
	if err := lead.Validate(); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// parseTimestamp accepts RFC3339 and the "2006-01-02 15:04:05" form some
// backends emit. Unparseable values become the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// wirePage is the paginated envelope body.
type wirePage struct {
	CurrentPage *int        `json:"current_page"`
	LastPage    *int        `json:"last_page"`
	PerPage     int         `json:"per_page"`
	Total       int         `json:"total"`
	Items       *[]wireLead `json:"items"`
}

type pageEnvelope struct {
	Data *wirePage `json:"data"`
}

type leadEnvelope struct {
	Data *wireLead `json:"data"`
}

type assigneesEnvelope struct {
	Data *[]wireAssignee `json:"data"`
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// wirePredicate is the JSON shape of a filter predicate.
type wirePredicate struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

func encodePredicates(preds []domain.Predicate) (string, error) {
	out := make([]wirePredicate, 0, len(preds))
	for _, p := range preds {
		out = append(out, wirePredicate{Field: p.Field, Operator: string(p.Operator), Value: p.Value})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// toDomain validates the envelope and converts it to a lead page.
func (p *wirePage) toDomain() (domain.LeadPage, error) {
	if p.Items == nil {
		return domain.LeadPage{}, fmt.Errorf("missing items")
	}
	if p.CurrentPage == nil || p.LastPage == nil {
		return domain.LeadPage{}, fmt.Errorf("missing pagination fields")
	}
	current, last := *p.CurrentPage, *p.LastPage
	if current < 1 {
		return domain.LeadPage{}, fmt.Errorf("invalid current_page: %d", current)
	}
	if last < 0 {
		return domain.LeadPage{}, fmt.Errorf("invalid last_page: %d", last)
	}
	leads := make([]domain.Lead, 0, len(*p.Items))
	seen := make(map[int]bool, len(*p.Items))
	for i, w := range *p.Items {
		lead, err := w.toDomain()
		if err != nil {
			return domain.LeadPage{}, fmt.Errorf("item %d: %w", i, err)
		}
		if seen[lead.ID] {
			return domain.LeadPage{}, fmt.Errorf("duplicate lead id %d", lead.ID)
		}
		seen[lead.ID] = true
		leads = append(leads, lead)
	}
	return domain.LeadPage{
		Leads: leads,
		Pagination: domain.Pagination{
			CurrentPage: current,
			LastPage:    last,
			PerPage:     p.PerPage,
			Total:       p.Total,
			HasNextPage: current < last,
			HasPrevPage: current > 1,
		},
	}, nil
}
