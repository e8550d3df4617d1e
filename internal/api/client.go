// Package api is the HTTP client for the lead API.
//
// The client is stateless apart from its configuration: it translates filter and
// pagination parameters into requests, parses the responses into domain types and
// classifies failures as domain.NetworkError or domain.APIError. It never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLen = 4096
)

// Config holds client dependencies.
type Config struct {
	BaseURL     string
	Credentials CredentialProvider
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      logging.Logger
	UserAgent   string
}

// Client talks to the lead API.
type Client struct {
	baseURL    *neturl.URL
	creds      CredentialProvider
	httpClient *http.Client
	log        logging.Logger
	userAgent  string
}

// NewClient creates a client for the API rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	base, err := neturl.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL scheme: %q", base.Scheme)
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential provider is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.GetGlobal()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "leadsync"
	}
	return &Client{
		baseURL:    base,
		creds:      cfg.Credentials,
		httpClient: httpClient,
		log:        log.With("component", "api"),
		userAgent:  ua,
	}, nil
}

// FetchLeads returns one page of leads matching filters.
func (c *Client) FetchLeads(ctx context.Context, filters domain.FilterState, page, pageSize int) (domain.LeadPage, error) {
	const op = "fetch leads"
	if page < 1 {
		page = 1
	}
	q := neturl.Values{}
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("per_page", strconv.Itoa(pageSize))
	}
	if term := filters.SearchTerm(); term != "" {
		q.Set("search", term)
	}
	if preds := filters.Payload(); len(preds) > 0 {
		encoded, err := encodePredicates(preds)
		if err != nil {
			return domain.LeadPage{}, fmt.Errorf("%s: encode filters: %w", op, err)
		}
		q.Set("filters", encoded)
	}

	var env pageEnvelope
	if err := c.do(ctx, op, http.MethodGet, "/leads", q, nil, &env); err != nil {
		return domain.LeadPage{}, err
	}
	if env.Data == nil {
		return domain.LeadPage{}, malformed(op, "missing data")
	}
	result, err := env.Data.toDomain()
	if err != nil {
		return domain.LeadPage{}, malformed(op, err.Error())
	}
	return result, nil
}

// MutateLead applies a mutation to a lead on the server.
func (c *Client) MutateLead(ctx context.Context, leadID int, m domain.Mutation) (domain.MutationResult, error) {
	op := string(m.Kind)
	if leadID <= 0 {
		return domain.MutationResult{}, fmt.Errorf("%s: %w", op, domain.ErrLeadNotFound)
	}
	if err := m.Validate(); err != nil {
		return domain.MutationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		path string
		body any
	)
	base := "/leads/" + strconv.Itoa(leadID)
	switch m.Kind {
	case domain.OpAssign:
		path, body = base+"/assign", map[string]int{"assignee_id": m.AssigneeID}
	case domain.OpUnassign:
		path = base + "/unassign"
	case domain.OpChangeStatus:
		path, body = base+"/status", map[string]string{"status": m.Status.String()}
	case domain.OpNotify:
		var msg messageBody
		if err := c.do(ctx, op, http.MethodPost, base+"/notify", nil, nil, &msg); err != nil {
			return domain.MutationResult{}, err
		}
		return domain.MutationResult{Message: msg.Message}, nil
	}

	var env leadEnvelope
	if err := c.do(ctx, op, http.MethodPost, path, nil, body, &env); err != nil {
		return domain.MutationResult{}, err
	}
	if env.Data == nil {
		return domain.MutationResult{}, malformed(op, "missing data")
	}
	lead, err := env.Data.toDomain()
	if err != nil {
		return domain.MutationResult{}, malformed(op, err.Error())
	}
	return domain.MutationResult{Lead: &lead}, nil
}

// ListAssignees returns the candidate assignees.
func (c *Client) ListAssignees(ctx context.Context) ([]domain.Assignee, error) {
	const op = "list assignees"
	var env assigneesEnvelope
	if err := c.do(ctx, op, http.MethodGet, "/assignees", nil, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, malformed(op, "missing data")
	}
	out := make([]domain.Assignee, 0, len(*env.Data))
	for _, a := range *env.Data {
		if a.ID <= 0 {
			return nil, malformed(op, fmt.Sprintf("invalid assignee id %d", a.ID))
		}
		out = append(out, domain.Assignee{ID: a.ID, Name: a.Name})
	}
	return out, nil
}

// do performs one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path string, query neturl.Values, body, out any) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: credentials: %w", op, err)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", op, "request_id", requestID, "error", err)
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("request completed", "op", op, "method", method, "path", u.Path,
		"status", resp.StatusCode, "request_id", requestID, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &domain.NetworkError{Op: op, Err: err}
		}
		return malformed(op, fmt.Sprintf("invalid response body: %v", err))
	}
	return nil
}

// errorMessage extracts the server's message from an error response, falling
// back to the HTTP status text.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	var body messageBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}

func malformed(op, detail string) error {
	return &domain.APIError{Op: op, Message: "malformed response: " + detail}
}
