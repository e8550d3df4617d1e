package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/cristianoliveira/leadsync/internal/mockapi"
	"github.com/cristianoliveira/leadsync/internal/search"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

type mockServerOptions struct {
	addr       string
	leads      int
	token      string
	jwtSecret  string
	issueFor   string
	tokenTTL   time.Duration
	churnEvery time.Duration
	latency    time.Duration
	searchMode string
}

// NewMockServerCmd creates the mock-server command.
func NewMockServerCmd() *cobra.Command {
	var opts mockServerOptions

	mockCmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a fake lead API for demos and manual testing",
		Long: `Serve a fake lead API under /api with generated leads.

With --churn the server advances the status of one lead at every interval so
polling clients see changes. With --issue-token the command prints an HS256
token signed with --jwt-secret and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.issueFor != "" {
				if opts.jwtSecret == "" {
					return fmt.Errorf("--issue-token requires --jwt-secret")
				}
				token, err := mockapi.IssueToken(opts.jwtSecret, opts.issueFor, opts.tokenTTL)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveMock(ctx, opts)
		},
	}

	flags := mockCmd.Flags()
	flags.StringVar(&opts.addr, "addr", "127.0.0.1:8080", "Listen address")
	flags.IntVar(&opts.leads, "leads", 50, "Number of generated leads")
	flags.StringVar(&opts.token, "token", "", "Static bearer token to require")
	flags.StringVar(&opts.jwtSecret, "jwt-secret", "", "Accept HS256 tokens signed with this secret")
	flags.StringVar(&opts.issueFor, "issue-token", "", "Print a token for this subject and exit")
	flags.DurationVar(&opts.tokenTTL, "ttl", 24*time.Hour, "Lifetime of issued tokens")
	flags.DurationVar(&opts.churnEvery, "churn", 0, "Change one lead at this interval (0 disables)")
	flags.DurationVar(&opts.latency, "latency", 0, "Delay added to every response")
	flags.StringVar(&opts.searchMode, "search-mode", "substring", "How the search parameter matches: substring, token or regex")
	return mockCmd
}

func serveMock(ctx context.Context, opts mockServerOptions) error {
	provider, err := search.New(opts.searchMode)
	if err != nil {
		return err
	}
	log := logging.GetGlobal()
	srv := mockapi.New(mockapi.Options{
		Token:     opts.token,
		JWTSecret: opts.jwtSecret,
		Logger:    log,
		Latency:   opts.latency,
		Search:    provider,
	})
	srv.Seed(mockapi.SampleLeads(opts.leads, time.Now()), mockapi.SampleAssignees())

	if opts.churnEvery > 0 {
		scheduler := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
		scheduler.Schedule(cron.Every(opts.churnEvery), cron.FuncJob(func() {
			if l, ok := srv.Churn(); ok {
				log.Info("lead changed", "lead_id", l.ID, "status", l.Status.String())
			}
		}))
		scheduler.Start()
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	colors.Info(fmt.Sprintf("Mock lead API listening on http://%s/api (%d leads)", opts.addr, opts.leads))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
