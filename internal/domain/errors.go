package domain

import "fmt"

// Error types for consistent error handling across the sync engine.
// The sync taxonomy (initialization, write, subscription) is recoverable
// by design: the UI keeps operating on the local store and failures only
// surface as status flags.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrInitialization indicates the remote read-or-create on session start
// failed. The session still proceeds to the subscription phase.
type ErrInitialization struct {
	Err error
}

func (e *ErrInitialization) Error() string {
	return fmt.Sprintf("sync initialization failed: %v", e.Err)
}

func (e *ErrInitialization) Unwrap() error {
	return e.Err
}

// ErrSyncWrite indicates a debounced remote write failed. The next local
// edit naturally re-triggers scheduling, which acts as the retry.
type ErrSyncWrite struct {
	Err error
}

func (e *ErrSyncWrite) Error() string {
	return fmt.Sprintf("sync write failed: %v", e.Err)
}

func (e *ErrSyncWrite) Unwrap() error {
	return e.Err
}

// ErrSubscription indicates the live remote subscription channel failed.
// It is not reopened automatically.
type ErrSubscription struct {
	Err error
}

func (e *ErrSubscription) Error() string {
	return fmt.Sprintf("remote subscription failed: %v", e.Err)
}

func (e *ErrSubscription) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
