// Package hooks runs user scripts when leads change.
//
// Scripts live in {hooks_dir}/{point}/ and run in name order. Each receives
// the lead as LEADSYNC_LEAD_* environment variables. A failing script aborts,
// warns or is ignored according to the failure mode.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"golang.org/x/sync/semaphore"
)

// Point names the event a hook directory reacts to.
type Point string

const (
	PostAssign   Point = "post-assign"
	PostUnassign Point = "post-unassign"
	PostStatus   Point = "post-status"
	PostNotify   Point = "post-notify"
	// LeadChanged fires from watch when a polled lead differs from the last
	// seen copy.
	LeadChanged Point = "lead-changed"
)

// PointFor maps a mutation to its hook point.
func PointFor(kind domain.OperationKind) Point {
	switch kind {
	case domain.OpAssign:
		return PostAssign
	case domain.OpUnassign:
		return PostUnassign
	case domain.OpChangeStatus:
		return PostStatus
	default:
		return PostNotify
	}
}

// FailureMode decides what a failing script does to the caller.
type FailureMode string

const (
	FailAbort  FailureMode = "abort"
	FailWarn   FailureMode = "warn"
	FailIgnore FailureMode = "ignore"
)

// Options configures a Runner.
type Options struct {
	Enabled     bool
	Dir         string
	FailureMode FailureMode
	Async       bool
	Timeout     time.Duration
	MaxAsync    int
	Logger      logging.Logger
	// Output receives the scripts' stdout and stderr. Defaults to os.Stderr.
	Output io.Writer
}

// OptionsFromConfig reads the hooks_* configuration keys.
func OptionsFromConfig() Options {
	return Options{
		Enabled:     config.GetBool("hooks_enabled", true),
		Dir:         config.Get("hooks_dir", ""),
		FailureMode: FailureMode(config.Get("hooks_failure_mode", string(FailWarn))),
		Async:       config.GetBool("hooks_async", false),
		Timeout:     config.GetDuration("hooks_timeout_seconds", time.Second, 30*time.Second),
		MaxAsync:    config.GetInt("hooks_max_async", 10),
		Logger:      logging.GetGlobal(),
	}
}

// Runner executes hook scripts.
type Runner struct {
	opts    Options
	log     logging.Logger
	sem     *semaphore.Weighted
	pending sync.WaitGroup
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAsync <= 0 {
		opts.MaxAsync = 10
	}
	if opts.FailureMode == "" {
		opts.FailureMode = FailWarn
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Runner{
		opts: opts,
		log:  log.With("component", "hooks"),
		sem:  semaphore.NewWeighted(int64(opts.MaxAsync)),
	}
}

// Env returns the environment a script sees for lead at point.
func Env(point Point, lead domain.Lead, now time.Time) map[string]string {
	env := map[string]string{
		"LEADSYNC_HOOK_POINT":     string(point),
		"LEADSYNC_HOOK_TIMESTAMP": now.UTC().Format(time.RFC3339),
		"LEADSYNC_LEAD_ID":        strconv.Itoa(lead.ID),
		"LEADSYNC_LEAD_NAME":      lead.FullName(),
		"LEADSYNC_LEAD_TYPE":      lead.Type,
		"LEADSYNC_LEAD_STATUS":    lead.Status.String(),
		"LEADSYNC_LEAD_EMAIL":     lead.Email,
		"LEADSYNC_LEAD_PHONE":     lead.Phone,
	}
	if lead.HasAssignee() {
		env["LEADSYNC_LEAD_ASSIGNEE_ID"] = strconv.Itoa(lead.Assignee.ID)
		env["LEADSYNC_LEAD_ASSIGNEE"] = lead.Assignee.Name
	}
	if exe, err := os.Executable(); err == nil {
		env["LEADSYNC_BINARY"] = exe
	}
	return env
}

// RunLead runs the scripts for point with the lead's environment.
func (r *Runner) RunLead(ctx context.Context, point Point, lead domain.Lead) error {
	return r.Run(ctx, point, Env(point, lead, time.Now()))
}

// Run executes the scripts of point. With async enabled it returns once
// the scripts are started; scripts over the MaxAsync limit are skipped.
func (r *Runner) Run(ctx context.Context, point Point, env map[string]string) error {
	if !r.opts.Enabled || r.opts.Dir == "" {
		return nil
	}
	scripts := r.scripts(point)
	if len(scripts) == 0 {
		return nil
	}
	r.log.Debug("running hooks", "point", string(point), "count", len(scripts))

	for _, script := range scripts {
		if r.opts.Async {
			if !r.sem.TryAcquire(1) {
				colors.Warning(fmt.Sprintf("too many async hooks pending (max: %d), skipping %s", r.opts.MaxAsync, script))
				continue
			}
			r.pending.Add(1)
			go func(path string) {
				defer r.pending.Done()
				defer r.sem.Release(1)
				_ = r.runScript(context.WithoutCancel(ctx), path, env)
			}(script)
			continue
		}
		if err := r.runScript(ctx, script, env); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every async script has finished.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// scripts lists the executable files of point, sorted by name.
func (r *Runner) scripts(point Point) []string {
	dir := filepath.Join(r.opts.Dir, string(point))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Mode()&0111 == 0 {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

func (r *Runner) runScript(ctx context.Context, path string, env map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	name := filepath.Base(path)
	start := time.Now()
	cmd := exec.CommandContext(ctx, path)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdout = r.opts.Output
	cmd.Stderr = r.opts.Output
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	duration := time.Since(start)
	if err == nil {
		r.log.Debug("hook completed", "hook", name, "duration", duration)
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s", r.opts.Timeout)
	}
	r.log.Warn("hook failed", "hook", name, "error", err, "duration", duration)

	switch r.opts.FailureMode {
	case FailAbort:
		return fmt.Errorf("hook %s failed: %w", name, err)
	case FailIgnore:
		return nil
	default:
		colors.Warning(fmt.Sprintf("hook %s failed: %v", name, err))
		return nil
	}
}
