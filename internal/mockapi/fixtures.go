package mockapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

var (
	sampleFirstNames = []string{"Ada", "Alan", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances", "Edsger"}
	sampleLastNames  = []string{"Lovelace", "Turing", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen", "Dijkstra"}
	sampleTypes      = []string{"buyer", "seller", "tenant", "landlord"}
)

// SampleAssignees returns a small assignee directory.
func SampleAssignees() []domain.Assignee {
	return []domain.Assignee{
		{ID: 1, Name: "Alice Agent"},
		{ID: 2, Name: "Bob Broker"},
		{ID: 3, Name: "Carol Closer"},
	}
}

// SampleLeads generates n deterministic leads created one minute apart,
// ending at base. Every third lead is assigned.
func SampleLeads(n int, base time.Time) []domain.Lead {
	statuses := domain.Statuses()
	assignees := SampleAssignees()
	leads := make([]domain.Lead, 0, n)
	for i := 0; i < n; i++ {
		id := i + 1
		first := sampleFirstNames[i%len(sampleFirstNames)]
		last := sampleLastNames[(i/len(sampleFirstNames))%len(sampleLastNames)]
		created := base.Add(-time.Duration(n-id) * time.Minute).UTC()
		l := domain.Lead{
			ID:        id,
			Type:      sampleTypes[i%len(sampleTypes)],
			Status:    statuses[i%len(statuses)],
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), id),
			Phone:     fmt.Sprintf("+1-555-%04d", id),
			CreatedAt: created,
			UpdatedAt: created,
		}
		if i%3 == 0 {
			a := assignees[i%len(assignees)]
			l.Assignee = &a
		}
		leads = append(leads, l)
	}
	return leads
}
