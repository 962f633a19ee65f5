package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrNilQueryInput = errors.New("query options is nil")
	// ErrInvariant marks programming errors such as malformed type tags.
	ErrInvariant = errors.New("invariant violation")
)

// Permission request policy failures. They are reported to the caller and
// never retried.
var (
	ErrRequestAlreadyExists  = errors.New("request already exists")
	ErrRequestAlreadyGranted = errors.New("group already has the requested permission")
	ErrNoOwnersAvailable     = errors.New("no owners available")
	ErrInvalidRequestID      = errors.New("invalid request id")
	ErrUserNotAuditor        = errors.New("user is not an auditor")
	ErrInvalidTransition     = errors.New("invalid status transition")
)

// PluginRejection is returned by a plugin that explicitly refuses an
// operation. Unlike other plugin failures it aborts the caller.
type PluginRejection struct {
	Plugin string
	Reason string
}

func (e *PluginRejection) Error() string {
	return fmt.Sprintf("plugin %s rejected the operation: %s", e.Plugin, e.Reason)
}
