package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/cristianoliveira/leadsync/internal/mockapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newMockClient(t *testing.T, n int) (*Client, *mockapi.Server) {
	t.Helper()
	mock := mockapi.New(mockapi.Options{Token: testToken})
	mock.Seed(mockapi.SampleLeads(n, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)), mockapi.SampleAssignees())
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:     srv.URL + "/api/",
		Credentials: StaticToken(testToken),
		Logger:      logging.Noop(),
	})
	require.NoError(t, err)
	return client, mock
}

// rawServer serves body with status for every request. The returned function
// yields the headers of the last request.
func rawServer(t *testing.T, status int, body string) (*Client, func() http.Header) {
	t.Helper()
	var (
		mu   sync.Mutex
		last http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		last = r.Header.Clone()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, Credentials: StaticToken("tok"), Logger: logging.Noop()})
	require.NoError(t, err)
	return client, func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Credentials: StaticToken("x")})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "ftp://example.com", Credentials: StaticToken("x")})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://example.com"})
	assert.Error(t, err)
}

func TestFetchLeads_Pages(t *testing.T) {
	client, _ := newMockClient(t, 20)
	ctx := context.Background()

	page, err := client.FetchLeads(ctx, domain.FilterState{}, 1, 15)
	require.NoError(t, err)
	require.Len(t, page.Leads, 15)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 2, page.Pagination.LastPage)
	assert.True(t, page.Pagination.HasNextPage)
	assert.False(t, page.Pagination.HasPrevPage)
	assert.Equal(t, 20, page.Pagination.Total)
	assert.False(t, page.Leads[0].CreatedAt.IsZero())

	page, err = client.FetchLeads(ctx, domain.FilterState{}, 2, 15)
	require.NoError(t, err)
	assert.Len(t, page.Leads, 5)
	assert.False(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPrevPage)
}

func TestFetchLeads_StatusOnlyFilterPayload(t *testing.T) {
	client, mock := newMockClient(t, 12)

	filters := domain.FilterState{Search: "", Status: domain.StatusPending}
	page, err := client.FetchLeads(context.Background(), filters, 1, 15)
	require.NoError(t, err)
	for _, l := range page.Leads {
		assert.Equal(t, domain.StatusPending, l.Status)
	}

	queries := mock.Queries()
	require.Len(t, queries, 1)
	q, err := url.ParseQuery(queries[0])
	require.NoError(t, err)
	assert.False(t, q.Has("search"), "empty search term is not sent")
	var preds []wirePredicate
	require.NoError(t, json.Unmarshal([]byte(q.Get("filters")), &preds))
	assert.Equal(t, []wirePredicate{{Field: "status", Operator: "eq", Value: "pending"}}, preds)
}

func TestFetchLeads_SearchAndNoFilters(t *testing.T) {
	client, mock := newMockClient(t, 12)

	_, err := client.FetchLeads(context.Background(), domain.FilterState{Search: "  ada "}, 1, 5)
	require.NoError(t, err)

	q, err := url.ParseQuery(mock.Queries()[0])
	require.NoError(t, err)
	assert.Equal(t, "ada", q.Get("search"))
	assert.Equal(t, "5", q.Get("per_page"))
	assert.False(t, q.Has("filters"), "no status and no predicates means no filter payload")
}

func TestMutateLead_RoundTrip(t *testing.T) {
	client, mock := newMockClient(t, 3)
	ctx := context.Background()

	res, err := client.MutateLead(ctx, 2, domain.Mutation{Kind: domain.OpAssign, AssigneeID: 3})
	require.NoError(t, err)
	require.NotNil(t, res.Lead)
	require.NotNil(t, res.Lead.Assignee)
	assert.Equal(t, "Carol Closer", res.Lead.Assignee.Name)

	res, err = client.MutateLead(ctx, 2, domain.Mutation{Kind: domain.OpChangeStatus, Status: domain.StatusMeetingArranged})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMeetingArranged, res.Lead.Status)

	res, err = client.MutateLead(ctx, 2, domain.Mutation{Kind: domain.OpNotify})
	require.NoError(t, err)
	assert.Nil(t, res.Lead)
	assert.Equal(t, "Notification sent to Carol Closer", res.Message)

	res, err = client.MutateLead(ctx, 2, domain.Mutation{Kind: domain.OpUnassign})
	require.NoError(t, err)
	assert.Nil(t, res.Lead.Assignee)

	stored, _ := mock.Lead(2)
	assert.Nil(t, stored.Assignee)
	assert.Equal(t, domain.StatusMeetingArranged, stored.Status)
}

func TestMutateLead_RejectsInvalidLocally(t *testing.T) {
	client, mock := newMockClient(t, 3)

	_, err := client.MutateLead(context.Background(), 0, domain.Mutation{Kind: domain.OpUnassign})
	assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	_, err = client.MutateLead(context.Background(), 1, domain.Mutation{Kind: domain.OpChangeStatus, Status: "archived"})
	assert.Error(t, err)
	assert.Zero(t, mock.Hits(mockapi.RouteStatus))
}

func TestListAssignees(t *testing.T) {
	client, _ := newMockClient(t, 1)

	assignees, err := client.ListAssignees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mockapi.SampleAssignees(), assignees)
}

func TestErrorClassification(t *testing.T) {
	client, mock := newMockClient(t, 3)
	ctx := context.Background()

	mock.FailNext(mockapi.RouteAssign, mockapi.Failure{Status: http.StatusConflict, Message: "lead already assigned"})
	_, err := client.MutateLead(ctx, 1, domain.Mutation{Kind: domain.OpAssign, AssigneeID: 1})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "lead already assigned", apiErr.Message)

	mock.FailNext(mockapi.RouteListLeads, mockapi.Failure{Malformed: true})
	_, err = client.FetchLeads(ctx, domain.FilterState{}, 1, 15)
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "malformed response")

	_, err = client.MutateLead(ctx, 404, domain.Mutation{Kind: domain.OpUnassign})
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))

	mock.FailNext(mockapi.RouteAssignees, mockapi.Failure{Status: http.StatusBadGateway})
	_, err = client.ListAssignees(ctx)
	assert.Equal(t, http.StatusBadGateway, domain.StatusCode(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client, err := NewClient(Config{BaseURL: addr, Credentials: StaticToken("x"), Logger: logging.Noop()})
	require.NoError(t, err)
	_, err = client.FetchLeads(context.Background(), domain.FilterState{}, 1, 15)
	assert.True(t, domain.IsNetwork(err))
	assert.Zero(t, domain.StatusCode(err))
}

func TestUnauthorized(t *testing.T) {
	mock := mockapi.New(mockapi.Options{Token: testToken})
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL + "/api", Credentials: StaticToken("nope"), Logger: logging.Noop()})
	require.NoError(t, err)
	_, err = client.ListAssignees(context.Background())
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))

	client, err = NewClient(Config{BaseURL: srv.URL + "/api", Credentials: StaticToken(""), Logger: logging.Noop()})
	require.NoError(t, err)
	_, err = client.ListAssignees(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestRequestHeaders(t *testing.T) {
	client, headers := rawServer(t, http.StatusOK, `{"data":[]}`)

	_, err := client.ListAssignees(context.Background())
	require.NoError(t, err)
	h := headers()
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
	assert.Equal(t, "leadsync", h.Get("User-Agent"))
}

func TestErrorBodyFallbacks(t *testing.T) {
	client, _ := rawServer(t, http.StatusInternalServerError, `{"error":"database exploded"}`)
	_, err := client.ListAssignees(context.Background())
	assert.Contains(t, err.Error(), "database exploded")

	client, _ = rawServer(t, http.StatusServiceUnavailable, `<html>down</html>`)
	_, err = client.ListAssignees(context.Background())
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestDecodeLegacyAndUnknownStatus(t *testing.T) {
	body := `{"data":{"current_page":1,"last_page":1,"per_page":15,"total":3,"items":[
		{"id":1,"status":2,"first_name":"Ada","created_at":"2024-03-01 09:00:00"},
		{"id":2,"status":"Meeting arranged","assignee":{"id":4,"name":"Dee"}},
		{"id":3,"status":"escalated","assignee":{"id":0,"name":""}}
	]}}`
	client, _ := rawServer(t, http.StatusOK, body)

	page, err := client.FetchLeads(context.Background(), domain.FilterState{}, 1, 15)
	require.NoError(t, err)
	require.Len(t, page.Leads, 3)
	assert.Equal(t, domain.StatusContacted, page.Leads[0].Status)
	assert.Equal(t, 2024, page.Leads[0].CreatedAt.Year())
	assert.Equal(t, domain.StatusMeetingArranged, page.Leads[1].Status)
	assert.True(t, page.Leads[1].HasAssignee())
	assert.Equal(t, domain.Status("escalated"), page.Leads[2].Status)
	assert.Equal(t, "escalated", page.Leads[2].StatusLabel())
	assert.False(t, page.Leads[2].HasAssignee())
}

func TestDecodeRejectsBrokenPages(t *testing.T) {
	cases := map[string]string{
		"missing data":       `{}`,
		"missing items":      `{"data":{"current_page":1,"last_page":1}}`,
		"missing pagination": `{"data":{"items":[]}}`,
		"zero current page":  `{"data":{"current_page":0,"last_page":1,"items":[]}}`,
		"duplicate ids":      `{"data":{"current_page":1,"last_page":1,"items":[{"id":1},{"id":1}]}}`,
		"invalid id":         `{"data":{"current_page":1,"last_page":1,"items":[{"id":0}]}}`,
		"not json":           `nope`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := rawServer(t, http.StatusOK, body)
			_, err := client.FetchLeads(context.Background(), domain.FilterState{}, 1, 15)
			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Contains(t, apiErr.Message, "malformed response")
		})
	}
}
