package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLead = domain.Lead{
	ID:        9,
	Type:      "buyer",
	Status:    domain.StatusContacted,
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "ada@example.com",
	Assignee:  &domain.Assignee{ID: 3, Name: "Bob Broker"},
}

// syncBuffer is written by scripts while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeScript(t *testing.T, dir string, point Point, name, body string, mode os.FileMode) {
	t.Helper()
	pointDir := filepath.Join(dir, string(point))
	require.NoError(t, os.MkdirAll(pointDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pointDir, name), []byte("#!/bin/sh\n"+body+"\n"), mode))
}

func newRunner(t *testing.T, opts Options) (*Runner, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	opts.Enabled = true
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	opts.Output = out
	return NewRunner(opts), out
}

func silenceColors(t *testing.T) *bytes.Buffer {
	t.Helper()
	var errOut bytes.Buffer
	restore := colors.SetOutput(&bytes.Buffer{}, &errOut)
	t.Cleanup(restore)
	return &errOut
}

func TestPointFor(t *testing.T) {
	assert.Equal(t, PostAssign, PointFor(domain.OpAssign))
	assert.Equal(t, PostUnassign, PointFor(domain.OpUnassign))
	assert.Equal(t, PostStatus, PointFor(domain.OpChangeStatus))
	assert.Equal(t, PostNotify, PointFor(domain.OpNotify))
}

func TestEnv(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := Env(PostStatus, testLead, now)

	assert.Equal(t, "post-status", env["LEADSYNC_HOOK_POINT"])
	assert.Equal(t, "2024-05-01T12:00:00Z", env["LEADSYNC_HOOK_TIMESTAMP"])
	assert.Equal(t, "9", env["LEADSYNC_LEAD_ID"])
	assert.Equal(t, "Ada Lovelace", env["LEADSYNC_LEAD_NAME"])
	assert.Equal(t, "contacted", env["LEADSYNC_LEAD_STATUS"])
	assert.Equal(t, "3", env["LEADSYNC_LEAD_ASSIGNEE_ID"])
	assert.Equal(t, "Bob Broker", env["LEADSYNC_LEAD_ASSIGNEE"])

	unassigned := testLead.Clone()
	unassigned.Assignee = nil
	env = Env(PostUnassign, unassigned, now)
	_, ok := env["LEADSYNC_LEAD_ASSIGNEE"]
	assert.False(t, ok)
}

func TestRunExecutesScriptsInNameOrder(t *testing.T) {
	r, out := newRunner(t, Options{})
	writeScript(t, r.opts.Dir, PostAssign, "20-second", `echo "second $LEADSYNC_LEAD_ID"`, 0755)
	writeScript(t, r.opts.Dir, PostAssign, "10-first", `echo "first $LEADSYNC_LEAD_ASSIGNEE"`, 0755)
	writeScript(t, r.opts.Dir, PostAssign, "30-not-executable", `echo skipped`, 0644)

	require.NoError(t, r.RunLead(context.Background(), PostAssign, testLead))

	assert.Equal(t, "first Bob Broker\nsecond 9\n", out.String())
}

func TestRunWithoutScripts(t *testing.T) {
	r, out := newRunner(t, Options{})

	require.NoError(t, r.RunLead(context.Background(), PostNotify, testLead))
	assert.Empty(t, out.String())
}

func TestRunDisabled(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, PostStatus, "hook", "echo ran", 0755)
	out := &syncBuffer{}
	r := NewRunner(Options{Enabled: false, Dir: dir, Output: out})

	require.NoError(t, r.RunLead(context.Background(), PostStatus, testLead))
	assert.Empty(t, out.String())
}

func TestFailureModes(t *testing.T) {
	tests := []struct {
		mode    FailureMode
		wantErr bool
		warned  bool
	}{
		{FailAbort, true, false},
		{FailWarn, false, true},
		{FailIgnore, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			errOut := silenceColors(t)
			r, out := newRunner(t, Options{FailureMode: tt.mode})
			writeScript(t, r.opts.Dir, PostStatus, "10-fail", "exit 3", 0755)
			writeScript(t, r.opts.Dir, PostStatus, "20-after", "echo after", 0755)

			err := r.RunLead(context.Background(), PostStatus, testLead)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "hook 10-fail failed")
				assert.Empty(t, out.String(), "abort stops the remaining scripts")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "after\n", out.String())
			assert.Equal(t, tt.warned, strings.Contains(errOut.String(), "hook 10-fail failed"))
		})
	}
}

func TestRunTimeout(t *testing.T) {
	r, _ := newRunner(t, Options{FailureMode: FailAbort, Timeout: 100 * time.Millisecond})
	writeScript(t, r.opts.Dir, LeadChanged, "slow", "exec sleep 5", 0755)

	err := r.RunLead(context.Background(), LeadChanged, testLead)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunAsync(t *testing.T) {
	r, out := newRunner(t, Options{Async: true})
	writeScript(t, r.opts.Dir, PostNotify, "hook", `echo "notified $LEADSYNC_LEAD_NAME"`, 0755)

	require.NoError(t, r.RunLead(context.Background(), PostNotify, testLead))
	r.Wait()

	assert.Equal(t, "notified Ada Lovelace\n", out.String())
}

func TestRunAsyncSkipsOverLimit(t *testing.T) {
	errOut := silenceColors(t)
	r, _ := newRunner(t, Options{Async: true, MaxAsync: 1})
	writeScript(t, r.opts.Dir, LeadChanged, "10-slow", "sleep 0.3", 0755)
	writeScript(t, r.opts.Dir, LeadChanged, "20-skipped", "echo never", 0755)

	require.NoError(t, r.RunLead(context.Background(), LeadChanged, testLead))
	r.Wait()

	assert.Contains(t, errOut.String(), "skipping")
}
