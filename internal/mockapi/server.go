// Package mockapi is an in-process fake of the lead API.
//
// It serves the same endpoints and envelopes as the real backend from an
// in-memory store, supports bearer token checks and lets tests inject failures
// per route. The CLI exposes it as `leadsync mock-server` for local use.
package mockapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/cristianoliveira/leadsync/internal/search"
	"github.com/gin-gonic/gin"
)

// Route names an endpoint for failure injection and request accounting.
type Route string

const (
	RouteListLeads Route = "list_leads"
	RouteAssign    Route = "assign"
	RouteUnassign  Route = "unassign"
	RouteStatus    Route = "status"
	RouteNotify    Route = "notify"
	RouteAssignees Route = "assignees"
)

const defaultPerPage = 15

// Failure is an injected response. With Malformed set the route answers 200
// with an envelope missing its data.
type Failure struct {
	Status    int
	Message   string
	Malformed bool
}

// Options configures a Server.
type Options struct {
	// Token, when set, must be presented as the bearer token.
	Token string
	// JWTSecret, when set, accepts any unexpired HS256 token signed with it.
	JWTSecret string
	Logger    logging.Logger
	Latency   time.Duration
	// Search matches the search query parameter. Defaults to a
	// case-insensitive substring match on name, email and phone.
	Search search.Provider
}

// Server is the fake API.
type Server struct {
	opts   Options
	log    logging.Logger
	engine *gin.Engine
	search search.Provider

	mu        sync.Mutex
	leads     map[int]domain.Lead
	assignees []domain.Assignee
	failures  map[Route][]Failure
	hits      map[Route]int
	queries   []string
	nextID    int
	latency   time.Duration
}

// New creates a server with an empty store.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		opts:     opts,
		log:      log.With("component", "mockapi"),
		leads:    make(map[int]domain.Lead),
		failures: make(map[Route][]Failure),
		hits:     make(map[Route]int),
		nextID:   1,
		latency:  opts.Latency,
		search:   opts.Search,
	}
	if s.search == nil {
		s.search = search.NewSubstringProvider()
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.delay())

	api := r.Group("/api")
	api.Use(s.authMiddleware())
	{
		api.GET("/leads", s.handle(RouteListLeads, s.listLeads))
		api.POST("/leads/:id/assign", s.handle(RouteAssign, s.assign))
		api.POST("/leads/:id/unassign", s.handle(RouteUnassign, s.unassign))
		api.POST("/leads/:id/status", s.handle(RouteStatus, s.changeStatus))
		api.POST("/leads/:id/notify", s.handle(RouteNotify, s.notify))
		api.GET("/assignees", s.handle(RouteAssignees, s.listAssignees))
	}
	return r
}

// Seed replaces the store content.
func (s *Server) Seed(leads []domain.Lead, assignees []domain.Assignee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = make(map[int]domain.Lead, len(leads))
	s.nextID = 1
	for _, l := range leads {
		s.leads[l.ID] = l.Clone()
		if l.ID >= s.nextID {
			s.nextID = l.ID + 1
		}
	}
	s.assignees = append([]domain.Assignee(nil), assignees...)
}

// Insert adds a lead, assigning the next free ID when l.ID is zero, and
// returns the stored copy.
func (s *Server) Insert(l domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextID
	}
	if l.ID >= s.nextID {
		s.nextID = l.ID + 1
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	s.leads[l.ID] = l.Clone()
	return l.Clone()
}

// Lead returns the stored lead.
func (s *Server) Lead(id int) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	return l.Clone(), ok
}

// FailNext queues failures returned by the next requests to route, in order.
func (s *Server) FailNext(route Route, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failures...)
}

// SetLatency delays every response by d.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Hits returns how many requests route has received.
func (s *Server) Hits(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Queries returns the raw query strings of the lead list requests received.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Churn advances the status of the least recently updated lead, simulating
// activity by other users. It returns the changed lead.
func (s *Server) Churn() (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.leads) == 0 {
		return domain.Lead{}, false
	}
	ids := s.sortedIDsLocked()
	oldest := s.leads[ids[0]]
	for _, id := range ids[1:] {
		if l := s.leads[id]; l.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = l
		}
	}
	oldest.Status = oldest.Status.Next()
	oldest.UpdatedAt = time.Now().UTC()
	s.leads[oldest.ID] = oldest
	s.log.Debug("churned lead", "lead_id", oldest.ID, "status", oldest.Status.String())
	return oldest.Clone(), true
}

// handle counts the request, applies injected failures and otherwise runs h.
func (s *Server) handle(route Route, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.hits[route]++
		if route == RouteListLeads {
			s.queries = append(s.queries, c.Request.URL.RawQuery)
		}
		var failure *Failure
		if queued := s.failures[route]; len(queued) > 0 {
			f := queued[0]
			s.failures[route] = queued[1:]
			failure = &f
		}
		s.mu.Unlock()

		if failure != nil {
			if failure.Malformed {
				c.JSON(http.StatusOK, gin.H{"unexpected": true})
				return
			}
			status := failure.Status
			if status == 0 {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"message": failure.Message})
			return
		}
		h(c)
	}
}

func (s *Server) delay() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		d := s.latency
		s.mu.Unlock()
		if d > 0 {
			select {
			case <-time.After(d):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) sortedIDsLocked() []int {
	ids := make([]int, 0, len(s.leads))
	for id := range s.leads {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func leadIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid lead id %q", c.Param("id"))})
		return 0, false
	}
	return id, true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
