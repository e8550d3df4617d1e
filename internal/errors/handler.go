// Package errors turns engine and command failures into user-facing messages.
//
// CLIHandler prints through the colors package and is used by one-shot
// commands and watch mode. TUIHandler keeps a message history for the
// terminal UI status bar. Both satisfy the listsync reporter interface.
package errors

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// ErrorHandler is the interface for surfacing messages to the user.
type ErrorHandler interface {
	Error(msg string)
	Warning(msg string)
	Info(msg string)
	Success(msg string)
}

// ColorOutput is the printer behind a CLIHandler.
type ColorOutput interface {
	Error(msgs ...string)
	Warning(msgs ...string)
	Info(msgs ...string)
	Success(msgs ...string)
}

// DefaultRepeatWindow is how long an identical error is suppressed.
const DefaultRepeatWindow = 10 * time.Second

// CLIHandler prints messages. An error identical to the previous one printed
// within the repeat window is dropped, so a watch loop hitting the same failure
// does not flood the terminal.
type CLIHandler struct {
	colors ColorOutput
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	lastErr  string
	lastTime time.Time
}

// NewCLIHandler creates a handler printing through colors.
func NewCLIHandler(colors ColorOutput) *CLIHandler {
	return &CLIHandler{colors: colors, window: DefaultRepeatWindow, now: time.Now}
}

// WithRepeatWindow sets the duplicate suppression window. Zero disables it.
func (h *CLIHandler) WithRepeatWindow(d time.Duration) *CLIHandler {
	h.window = d
	return h
}

func (h *CLIHandler) Error(msg string) {
	h.mu.Lock()
	now := h.now()
	if h.window > 0 && msg == h.lastErr && now.Sub(h.lastTime) < h.window {
		h.mu.Unlock()
		return
	}
	h.lastErr, h.lastTime = msg, now
	h.mu.Unlock()

	h.colors.Error(msg)
}

func (h *CLIHandler) Warning(msg string) {
	h.colors.Warning(msg)
}

func (h *CLIHandler) Info(msg string) {
	h.colors.Info(msg)
}

func (h *CLIHandler) Success(msg string) {
	h.colors.Success(msg)
}

// Handle reports err through h unless it is silent. It returns whether
// anything was reported.
func Handle(h ErrorHandler, err error) bool {
	if Silent(err) {
		return false
	}
	if domain.IsBusy(err) {
		h.Warning(domain.UserMessage(err))
		return true
	}
	h.Error(domain.UserMessage(err))
	return true
}

// Silent reports whether err must never be shown: nil, completions dropped
// after teardown and canceled contexts.
func Silent(err error) bool {
	return err == nil ||
		stderrors.Is(err, domain.ErrStaleOperation) ||
		stderrors.Is(err, context.Canceled)
}
