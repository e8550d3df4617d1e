package errors

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockColorOutput records every call.
type mockColorOutput struct {
	mu       sync.Mutex
	errors   []string
	warnings []string
	infos    []string
	success  []string
}

func (m *mockColorOutput) Error(msgs ...string)   { m.record(&m.errors, msgs) }
func (m *mockColorOutput) Warning(msgs ...string) { m.record(&m.warnings, msgs) }
func (m *mockColorOutput) Info(msgs ...string)    { m.record(&m.infos, msgs) }
func (m *mockColorOutput) Success(msgs ...string) { m.record(&m.success, msgs) }

func (m *mockColorOutput) record(into *[]string, msgs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(msgs) > 0 {
		*into = append(*into, msgs[0])
	}
}

func TestCLIHandler_Delegates(t *testing.T) {
	out := &mockColorOutput{}
	h := NewCLIHandler(out)

	h.Error("e")
	h.Warning("w")
	h.Info("i")
	h.Success("s")

	assert.Equal(t, []string{"e"}, out.errors)
	assert.Equal(t, []string{"w"}, out.warnings)
	assert.Equal(t, []string{"i"}, out.infos)
	assert.Equal(t, []string{"s"}, out.success)
}

func TestCLIHandler_SuppressesRepeatedErrors(t *testing.T) {
	out := &mockColorOutput{}
	h := NewCLIHandler(out)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	h.Error("server down")
	h.Error("server down")
	h.Error("bad filter")
	h.Error("bad filter")
	now = now.Add(DefaultRepeatWindow + time.Second)
	h.Error("bad filter")

	assert.Equal(t, []string{"server down", "bad filter", "bad filter"}, out.errors)
}

func TestCLIHandler_ZeroWindowPrintsEverything(t *testing.T) {
	out := &mockColorOutput{}
	h := NewCLIHandler(out).WithRepeatWindow(0)

	h.Error("x")
	h.Error("x")
	assert.Len(t, out.errors, 2)
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		reported bool
		warning  bool
		contains string
	}{
		{name: "nil", err: nil},
		{name: "stale completion", err: fmt.Errorf("assign: %w", domain.ErrStaleOperation)},
		{name: "canceled", err: context.Canceled},
		{name: "busy lead is a warning", err: &domain.BusyError{LeadID: 3, Pending: domain.OpAssign}, reported: true, warning: true, contains: "#3"},
		{name: "api error", err: &domain.APIError{Op: "assign", StatusCode: 422, Message: "assignee inactive"}, reported: true, contains: "assignee inactive"},
		{name: "network", err: &domain.NetworkError{Op: "fetch", Err: context.DeadlineExceeded}, reported: true, contains: "Could not reach"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &mockColorOutput{}
			got := Handle(NewCLIHandler(out), tt.err)
			assert.Equal(t, tt.reported, got)
			if !tt.reported {
				assert.Empty(t, out.errors)
				assert.Empty(t, out.warnings)
				return
			}
			if tt.warning {
				require.Len(t, out.warnings, 1)
				assert.Contains(t, out.warnings[0], tt.contains)
				return
			}
			require.Len(t, out.errors, 1)
			assert.Contains(t, out.errors[0], tt.contains)
		})
	}
}

func TestDefaultCLIHandler_WritesToConsole(t *testing.T) {
	var stdout, stderr bytes.Buffer
	restore := colors.SetOutput(&stdout, &stderr)
	defer restore()

	h := NewDefaultCLIHandler()
	h.Error("boom")
	h.Success("done")

	assert.Contains(t, stderr.String(), "Error:")
	assert.Contains(t, stderr.String(), "boom")
	assert.Contains(t, stdout.String(), "done")
}
