// Package hiveerrors defines the error kinds shared across the core (§7 of
// the specification): SessionNotFound, ProtocolViolation, ValidationError,
// ModelBackendUnavailable (with Timeout and RateLimited subclasses), and
// DependencyStillPending. Grounded on the sentinel-error-plus-wrapper-type
// pattern in _examples/itsneelabh-gomind/core/errors.go.
package hiveerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrProtocolViolation   = errors.New("protocol violation")
	ErrValidation          = errors.New("validation error")
	ErrModelUnavailable    = errors.New("model backend unavailable")
	ErrTimeout             = errors.New("model backend timeout")
	ErrRateLimited         = errors.New("model backend rate limited")
	ErrDependencyPending   = errors.New("dependency still pending")
	ErrMaxRetriesExceeded  = errors.New("maximum retries exceeded")
)

// Kind tags a HiveError with the error kind named in §7.
type Kind string

const (
	KindSessionNotFound   Kind = "session_not_found"
	KindProtocolViolation Kind = "protocol_violation"
	KindValidation        Kind = "validation_error"
	KindModelUnavailable  Kind = "model_backend_unavailable"
	KindTimeout           Kind = "timeout"
	KindRateLimited       Kind = "rate_limited"
	KindDependencyPending Kind = "dependency_still_pending"
)

// HiveError carries structured context: the operation that failed, the
// error kind, the entity id involved (session id, worker type, ...), and
// the wrapped underlying error.
type HiveError struct {
	Op      string
	Kind    Kind
	ID      string
	Message string
	Err     error
}

func (e *HiveError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *HiveError) Unwrap() error { return e.Err }

// kindSentinels lets errors.Is(err, ErrSessionNotFound) succeed against a
// HiveError whose Kind matches even when the wrapped Err is a plain
// fmt.Errorf detail message rather than the sentinel itself.
var kindSentinels = map[Kind]error{
	KindSessionNotFound:   ErrSessionNotFound,
	KindProtocolViolation: ErrProtocolViolation,
	KindValidation:        ErrValidation,
	KindModelUnavailable:  ErrModelUnavailable,
	KindTimeout:           ErrTimeout,
	KindRateLimited:       ErrRateLimited,
	KindDependencyPending: ErrDependencyPending,
}

// Is reports whether target is the sentinel associated with e.Kind, so
// callers can match on classification (errors.Is(err, ErrSessionNotFound))
// without every call site having to wrap the sentinel into Err by hand.
func (e *HiveError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// New builds a HiveError wrapping a sentinel kind error.
func New(op string, kind Kind, id string, err error) *HiveError {
	return &HiveError{Op: op, Kind: kind, ID: id, Err: err}
}

// RateLimitedError carries the suggested wait duration (seconds) for a
// RateLimited classification of ModelBackendUnavailable.
type RateLimitedError struct {
	WaitSeconds int
	Err         error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds: %v", e.WaitSeconds, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// TimeoutError carries the timeout duration that elapsed.
type TimeoutError struct {
	TimeoutSeconds int
	Err            error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %ds: %v", e.TimeoutSeconds, e.Err)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsRetryable reports whether err is a transient model-backend condition
// the Orchestrator's retry policy (§4.E) should act on.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
