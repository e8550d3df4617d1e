package main

import (
	"fmt"
	"io"

	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/format"
	"github.com/cristianoliveira/leadsync/internal/formatter"
	"github.com/cristianoliveira/leadsync/internal/listsync"
	"github.com/spf13/cobra"
)

const listCommandLong = `List leads with filters and formats.

USAGE:
    leadsync list [OPTIONS]

OPTIONS:
    --search <term>          Search name, email and phone
    --status <status>        Only leads in status (pending, assigned, contacted,
                             not_relevant, meeting_arranged, hired, all)
    --filter <f:op:value>    Extra predicate, repeatable (ops: eq neq contains gt lt in)
    --page <n>               Page to fetch (default 1)
    --per-page <n>           Page size (default page_size)
    --all                    Fetch every page
    --format <format>        Output format: table (default), simple, compact, json
    --template <tpl|preset>  Render each lead with a template, e.g. "{{id}} {{name}}",
                             or a preset: line, contact, tsv, pipeline
    --summary                Print counts per status instead of leads
    -h, --help               Show this help`

type listOptions struct {
	search     string
	status     string
	predicates []string
	page       int
	perPage    int
	all        bool
	format     string
	template   string
	summary    bool
}

// NewListCmd creates the list command.
func NewListCmd(a *app) *cobra.Command {
	var opts listOptions

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List leads with filters and formats",
		Long:  listCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(opts.search, opts.status, opts.predicates)
			if err != nil {
				return err
			}
			out, err := newLeadWriter(opts.format, opts.template)
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			perPage := opts.perPage
			if perPage <= 0 {
				perPage = config.GetInt("page_size", listsync.DefaultPageSize)
			}

			ctx := cmd.Context()
			page, err := repo.FetchLeads(ctx, filters, opts.page, perPage)
			if err != nil {
				return err
			}
			leads := page.Leads
			for opts.all && page.Pagination.HasNextPage {
				page, err = repo.FetchLeads(ctx, filters, page.Pagination.CurrentPage+1, perPage)
				if err != nil {
					return err
				}
				leads = append(leads, page.Leads...)
			}

			w := cmd.OutOrStdout()
			if opts.summary {
				return format.WriteStatusSummary(leads, w)
			}
			if len(leads) == 0 {
				_, err := fmt.Fprintln(w, "No leads found")
				return err
			}
			if err := out.FormatLeads(leads, w); err != nil {
				return err
			}
			if opts.template == "" && (opts.format == "" || opts.format == string(format.FormatterTypeTable)) {
				_, err = fmt.Fprintln(w, format.PageSummary(len(leads), page.Pagination))
			}
			return err
		},
	}

	flags := listCmd.Flags()
	flags.StringVar(&opts.search, "search", "", "Search name, email and phone")
	flags.StringVar(&opts.status, "status", "", "Only leads in this status")
	flags.StringArrayVar(&opts.predicates, "filter", nil, "Extra predicate field:operator:value (repeatable)")
	flags.IntVar(&opts.page, "page", 1, "Page to fetch")
	flags.IntVar(&opts.perPage, "per-page", 0, "Page size")
	flags.BoolVar(&opts.all, "all", false, "Fetch every page")
	flags.StringVar(&opts.format, "format", "", "Output format: table, simple, compact, json")
	flags.StringVar(&opts.template, "template", "", "Line template or preset name")
	flags.BoolVar(&opts.summary, "summary", false, "Print counts per status")
	return listCmd
}

// leadWriter writes a list of leads.
type leadWriter interface {
	FormatLeads(leads []domain.Lead, w io.Writer) error
}

// newLeadWriter picks the template formatter when a template is given and the
// --format formatter otherwise.
func newLeadWriter(formatName, template string) (leadWriter, error) {
	if template != "" {
		if formatName != "" {
			return nil, fmt.Errorf("--format and --template are mutually exclusive")
		}
		tpl := formatter.Resolve(formatter.NewPresetRegistry(), template)
		return formatter.NewTemplateFormatter(tpl)
	}
	ft, err := format.ParseFormatterType(formatName)
	if err != nil {
		return nil, err
	}
	return format.NewFormatter(ft), nil
}
