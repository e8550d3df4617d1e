package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLeadNotFound is returned when a mutation targets a lead that is not loaded.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrStaleOperation marks a completion that arrived after teardown. It is
	// never surfaced to the user.
	ErrStaleOperation = errors.New("stale operation dropped")
)

// NetworkError means the request got no response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError means the server answered with a non-2xx status or a malformed envelope.
// StatusCode is zero when the envelope was malformed on a 2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// BusyError is returned when a lead already has a mutation in flight.
type BusyError struct {
	LeadID  int
	Pending OperationKind
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("lead %d is busy: %s in progress", e.LeadID, e.Pending)
}

// NoAssigneeError is returned when notify targets a lead with no assignee.
type NoAssigneeError struct {
	LeadID int
}

func (e *NoAssigneeError) Error() string {
	return fmt.Sprintf("lead %d has no assignee to notify", e.LeadID)
}

// IsBusy reports whether err is a BusyError.
func IsBusy(err error) bool {
	var busy *BusyError
	return errors.As(err, &busy)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage returns a human readable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		apiErr   *APIError
		netErr   *NetworkError
		busy     *BusyError
		noAssign *NoAssigneeError
	)
	switch {
	case errors.As(err, &busy):
		return fmt.Sprintf("Lead #%d is still being updated, try again in a moment", busy.LeadID)
	case errors.As(err, &noAssign):
		return fmt.Sprintf("Lead #%d has no assignee to notify", noAssign.LeadID)
	case errors.As(err, &netErr):
		return "Could not reach the server, check your connection"
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Request failed with status %d", apiErr.StatusCode)
	case errors.Is(err, ErrLeadNotFound):
		return "Lead is no longer in the list"
	default:
		return err.Error()
	}
}
