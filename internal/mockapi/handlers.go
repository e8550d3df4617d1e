package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/gin-gonic/gin"
)

type assigneeJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type leadJSON struct {
	ID        int           `json:"id"`
	Type      string        `json:"type"`
	Status    string        `json:"status"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Assignee  *assigneeJSON `json:"assignee"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

type predicateJSON struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type assignRequest struct {
	AssigneeID int `json:"assignee_id" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func toJSON(l domain.Lead) leadJSON {
	out := leadJSON{
		ID:        l.ID,
		Type:      l.Type,
		Status:    l.Status.String(),
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Email:     l.Email,
		Phone:     l.Phone,
	}
	if l.Assignee != nil {
		out.Assignee = &assigneeJSON{ID: l.Assignee.ID, Name: l.Assignee.Name}
	}
	if !l.CreatedAt.IsZero() {
		out.CreatedAt = l.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !l.UpdatedAt.IsZero() {
		out.UpdatedAt = l.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// listLeads serves GET /leads. Leads are ordered newest first.
func (s *Server) listLeads(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPerPage)
	if page < 1 || perPage < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "page and per_page must be positive"})
		return
	}
	var preds []predicateJSON
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &preds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filters: " + err.Error()})
			return
		}
		for _, p := range preds {
			if !domain.Operator(p.Operator).IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unsupported operator %q", p.Operator)})
				return
			}
		}
	}
	search := strings.TrimSpace(c.Query("search"))

	s.mu.Lock()
	matched := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if search != "" && !s.search.Match(l, search) {
			continue
		}
		if !matchesAll(l, preds) {
			continue
		}
		matched = append(matched, l.Clone())
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	items := make([]leadJSON, 0, perPage)
	start := (page - 1) * perPage
	for i := start; i < total && i < start+perPage; i++ {
		items = append(items, toJSON(matched[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"current_page": page,
		"last_page":    lastPage,
		"per_page":     perPage,
		"total":        total,
		"items":        items,
	}})
}

func (s *Server) assign(c *gin.Context) {
	id, ok := leadIDParam(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.updateLead(c, id, func(l *domain.Lead) (int, string) {
		a, found := s.assigneeLocked(req.AssigneeID)
		if !found {
			return http.StatusUnprocessableEntity, fmt.Sprintf("assignee %d not found", req.AssigneeID)
		}
		l.Assignee = &a
		if l.Status == domain.StatusPending {
			l.Status = domain.StatusAssigned
		}
		return 0, ""
	})
}

func (s *Server) unassign(c *gin.Context) {
	id, ok := leadIDParam(c)
	if !ok {
		return
	}
	s.updateLead(c, id, func(l *domain.Lead) (int, string) {
		l.Assignee = nil
		return 0, ""
	})
}

func (s *Server) changeStatus(c *gin.Context) {
	id, ok := leadIDParam(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	s.updateLead(c, id, func(l *domain.Lead) (int, string) {
		l.Status = status
		return 0, ""
	})
}

func (s *Server) notify(c *gin.Context) {
	id, ok := leadIDParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	l, found := s.leads[id]
	s.mu.Unlock()
	switch {
	case !found:
		c.JSON(http.StatusNotFound, gin.H{"message": "Lead not found"})
	case !l.HasAssignee():
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Lead has no assignee"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Notification sent to %s", l.Assignee.Name)})
	}
}

func (s *Server) listAssignees(c *gin.Context) {
	s.mu.Lock()
	out := make([]assigneeJSON, 0, len(s.assignees))
	for _, a := range s.assignees {
		out = append(out, assigneeJSON{ID: a.ID, Name: a.Name})
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// updateLead applies fn to the stored lead and answers with the updated record.
// fn returns a non-zero status to reject the change.
func (s *Server) updateLead(c *gin.Context, id int, fn func(*domain.Lead) (int, string)) {
	s.mu.Lock()
	l, found := s.leads[id]
	if !found {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"message": "Lead not found"})
		return
	}
	l = l.Clone()
	if status, msg := fn(&l); status != 0 {
		s.mu.Unlock()
		c.JSON(status, gin.H{"message": msg})
		return
	}
	l.UpdatedAt = time.Now().UTC()
	s.leads[id] = l
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": toJSON(l)})
}

func (s *Server) assigneeLocked(id int) (domain.Assignee, bool) {
	for _, a := range s.assignees {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Assignee{}, false
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func matchesAll(l domain.Lead, preds []predicateJSON) bool {
	for _, p := range preds {
		if !matches(l, p) {
			return false
		}
	}
	return true
}

func fieldValue(l domain.Lead, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return strconv.Itoa(l.ID)
	case "type":
		return l.Type
	case "status":
		return l.Status.String()
	case "first_name":
		return l.FirstName
	case "last_name":
		return l.LastName
	case "email":
		return l.Email
	case "phone":
		return l.Phone
	case "assignee_id":
		if l.Assignee == nil {
			return ""
		}
		return strconv.Itoa(l.Assignee.ID)
	case "assignee":
		if l.Assignee == nil {
			return ""
		}
		return l.Assignee.Name
	default:
		return ""
	}
}

func matches(l domain.Lead, p predicateJSON) bool {
	actual := fieldValue(l, p.Field)
	want := p.Value
	if strings.EqualFold(p.Field, "status") {
		if st, err := domain.ParseStatus(want); err == nil {
			want = st.String()
		}
	}
	switch domain.Operator(p.Operator) {
	case domain.OpEq:
		return strings.EqualFold(actual, want)
	case domain.OpNeq:
		return !strings.EqualFold(actual, want)
	case domain.OpContains:
		return containsFold(actual, want)
	case domain.OpGt:
		return compare(actual, want) > 0
	case domain.OpLt:
		return compare(actual, want) < 0
	case domain.OpIn:
		for _, v := range strings.Split(want, ",") {
			if strings.EqualFold(actual, strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// compare orders numerically when both sides are numbers and lexically otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
