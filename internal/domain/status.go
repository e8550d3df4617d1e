package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is a pipeline stage of a lead.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAssigned        Status = "assigned"
	StatusContacted       Status = "contacted"
	StatusNotRelevant     Status = "not_relevant"
	StatusMeetingArranged Status = "meeting_arranged"
	StatusHired           Status = "hired"
)

// StatusAll is the status filter value meaning "no status filter".
const StatusAll Status = ""

// statusOrder is the pipeline order; legacy numeric codes index into it.
var statusOrder = []Status{
	StatusPending,
	StatusAssigned,
	StatusContacted,
	StatusNotRelevant,
	StatusMeetingArranged,
	StatusHired,
}

var statusLabels = map[Status]string{
	StatusPending:         "Pending",
	StatusAssigned:        "Assigned",
	StatusContacted:       "Contacted",
	StatusNotRelevant:     "Not relevant",
	StatusMeetingArranged: "Meeting arranged",
	StatusHired:           "Hired",
}

// wire names used by older backends that map onto the current vocabulary
var statusAliases = map[string]Status{
	"new":              StatusPending,
	"not-relevant":     StatusNotRelevant,
	"notrelevant":      StatusNotRelevant,
	"irrelevant":       StatusNotRelevant,
	"meeting-arranged": StatusMeetingArranged,
	"meeting":          StatusMeetingArranged,
	"meeting_set":      StatusMeetingArranged,
}

// Statuses returns the known statuses in pipeline order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// String returns the wire name of the status.
func (s Status) String() string {
	return string(s)
}

// Label returns the human readable label of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	if s == StatusAll {
		return "All"
	}
	return string(s)
}

// Code returns the legacy numeric code of the status, or -1 if unknown.
func (s Status) Code() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following status in pipeline order, wrapping around.
func (s Status) Next() Status {
	code := s.Code()
	if code < 0 {
		return statusOrder[0]
	}
	return statusOrder[(code+1)%len(statusOrder)]
}

// ParseStatus resolves a wire name, display label, alias or legacy numeric code
// into a known status. Unknown values are rejected.
func ParseStatus(value string) (Status, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("empty status")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n >= 0 && n < len(statusOrder) {
			return statusOrder[n], nil
		}
		return "", fmt.Errorf("unknown status code: %d", n)
	}
	lower := strings.ToLower(v)
	if s := Status(lower); s.IsValid() {
		return s, nil
	}
	if s, ok := statusAliases[lower]; ok {
		return s, nil
	}
	for s, label := range statusLabels {
		if strings.EqualFold(label, v) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status: %s", value)
}

// ParseStatusFilter parses a status filter value where "all" and "" mean no filter.
func ParseStatusFilter(value string) (Status, error) {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "all") {
		return StatusAll, nil
	}
	return ParseStatus(v)
}
