package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/api"
	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/hooks"
	"github.com/cristianoliveira/leadsync/internal/listsync"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/cristianoliveira/leadsync/internal/version"
)

// app carries the global flags and builds the lead repository on demand, so
// commands that never touch the API do not need one configured.
type app struct {
	baseURL string
	token   string
	now     func() time.Time

	newRepository func() (listsync.Repository, error)
	newHooks      func() *hooks.Runner
}

func newApp() *app {
	a := &app{now: time.Now}
	a.newRepository = a.apiClient
	a.newHooks = func() *hooks.Runner { return hooks.NewRunner(hooks.OptionsFromConfig()) }
	return a
}

func (a *app) hookRunner() *hooks.Runner {
	return a.newHooks()
}

func (a *app) repository() (listsync.Repository, error) {
	return a.newRepository()
}

func (a *app) apiClient() (listsync.Repository, error) {
	baseURL := a.baseURL
	if baseURL == "" {
		baseURL = config.Get("api_base_url", "")
	}
	token := a.token
	if token == "" {
		token = config.Get("api_token", "")
	}
	warnExpiredToken(token, a.now())

	return api.NewClient(api.Config{
		BaseURL:     baseURL,
		Credentials: api.StaticToken(token),
		Timeout:     config.GetDuration("request_timeout_seconds", time.Second, 15*time.Second),
		Logger:      logging.GetGlobal(),
		UserAgent:   version.UserAgent(),
	})
}

// warnExpiredToken warns when token is a JWT whose expiry has passed. Opaque
// tokens are left to the server.
func warnExpiredToken(token string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	info, err := api.InspectToken(token)
	if err != nil || !info.Expired(now) {
		return false
	}
	who := info.Subject
	if who == "" {
		who = "the configured user"
	}
	colors.Warning(fmt.Sprintf("API token for %s expired at %s; requests will be rejected", who, info.ExpiresAt.Local().Format(time.RFC1123)))
	return true
}

// controllerOptions maps the configuration onto engine options.
func controllerOptions() (listsync.Options, error) {
	status, err := domain.ParseStatusFilter(config.Get("default_status_filter", "all"))
	if err != nil {
		return listsync.Options{}, fmt.Errorf("default_status_filter: %w", err)
	}
	filters := domain.FilterState{Status: status}
	return listsync.Options{
		PageSize:       config.GetInt("page_size", listsync.DefaultPageSize),
		DebounceDelay:  config.GetDuration("debounce_ms", time.Millisecond, listsync.DefaultDebounceDelay),
		PollInterval:   config.GetDuration("poll_interval_seconds", time.Second, listsync.DefaultPollInterval),
		Logger:         logging.GetGlobal(),
		InitialFilters: filters,
	}, nil
}

// parseFilters builds a filter state from the shared list flags.
func parseFilters(search, status string, predicates []string) (domain.FilterState, error) {
	s, err := domain.ParseStatusFilter(status)
	if err != nil {
		return domain.FilterState{}, err
	}
	f := domain.FilterState{Search: search, Status: s}
	for _, raw := range predicates {
		p, err := domain.ParsePredicate(raw)
		if err != nil {
			return domain.FilterState{}, err
		}
		f.Predicates = append(f.Predicates, p)
	}
	return f, nil
}
