package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cristianoliveira/leadsync/internal/errors"
	"github.com/cristianoliveira/leadsync/internal/format"
	"github.com/cristianoliveira/leadsync/internal/hooks"
	"github.com/cristianoliveira/leadsync/internal/listsync"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd(a *app) *cobra.Command {
	var (
		search, status, formatName, template string
		predicates                           []string
		interval                             time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the first page of leads whenever it changes",
		Long: `Print the first page of leads, then poll the API and print it again
whenever a poll brings new data. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(search, status, predicates)
			if err != nil {
				return err
			}
			out, err := newLeadWriter(formatName, template)
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			opts, err := controllerOptions()
			if err != nil {
				return err
			}
			opts.InitialFilters = filters
			if interval > 0 {
				opts.PollInterval = interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			runner := a.hookRunner()
			defer runner.Wait()
			return watchLeads(ctx, repo, opts, out, cmd.OutOrStdout(), runner)
		},
	}

	flags := watchCmd.Flags()
	flags.StringVar(&search, "search", "", "Search name, email and phone")
	flags.StringVar(&status, "status", "", "Only leads in this status")
	flags.StringArrayVar(&predicates, "filter", nil, "Extra predicate field:operator:value (repeatable)")
	flags.StringVar(&formatName, "format", "", "Output format: table, simple, compact, json")
	flags.StringVar(&template, "template", "", "Line template or preset name")
	flags.DurationVar(&interval, "interval", 0, "Poll interval (default poll_interval_seconds)")
	return watchCmd
}

// watchLeads runs a controller until ctx is done and prints every snapshot
// that carries newly synchronized data. After the first print, leads that
// appear or whose updated time moves fire the lead-changed hooks.
func watchLeads(ctx context.Context, repo listsync.Repository, opts listsync.Options, out leadWriter, w io.Writer, runner *hooks.Runner) error {
	updates := newSnapshotBox()
	opts.Reporter = errors.NewDefaultCLIHandler()
	opts.OnChange = updates.put
	ctrl := listsync.New(repo, opts)
	defer ctrl.Close()

	if err := ctrl.Activate(ctx); err != nil {
		return err
	}

	var printed time.Time
	seen := make(map[int]time.Time)
	show := func(s listsync.Snapshot) error {
		if !s.LastUpdated.After(printed) {
			return nil
		}
		first := printed.IsZero()
		printed = s.LastUpdated
		for _, l := range s.Leads {
			prev, ok := seen[l.ID]
			seen[l.ID] = l.UpdatedAt
			if first || runner == nil || (ok && prev.Equal(l.UpdatedAt)) {
				continue
			}
			if err := runner.RunLead(ctx, hooks.LeadChanged, l); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\n-- %s · %s\n", s.LastUpdated.Local().Format("15:04:05"),
			format.PageSummary(len(s.Leads), s.Pagination.Pagination)); err != nil {
			return err
		}
		return out.FormatLeads(s.Leads, w)
	}
	if err := show(ctrl.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates.ready:
			s, ok := updates.take()
			if !ok {
				continue
			}
			if err := show(s); err != nil {
				return err
			}
		}
	}
}

// snapshotBox holds the newest snapshot for a slow printer. put never blocks
// and replaces whatever the printer has not taken yet.
type snapshotBox struct {
	mu     sync.Mutex
	latest *listsync.Snapshot
	ready  chan struct{}
}

func newSnapshotBox() *snapshotBox {
	return &snapshotBox{ready: make(chan struct{}, 1)}
}

func (b *snapshotBox) put(s listsync.Snapshot) {
	b.mu.Lock()
	if b.latest == nil || s.Version >= b.latest.Version {
		b.latest = &s
	}
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *snapshotBox) take() (listsync.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return listsync.Snapshot{}, false
	}
	s := *b.latest
	b.latest = nil
	return s, true
}
