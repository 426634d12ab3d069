package dml

import (
	"errors"
	"fmt"
)

// Status is the outcome reported to callers by validation, submission and execution.
type Status uint8

const (
	StatusOK Status = iota
	StatusFalsePredicate
	StatusPartialCompletion
	StatusNullptrError
	StatusBadSize
	StatusBadLength
	StatusInconsistentSize
	StatusDualcastBadPadding
	StatusBadAlignment
	StatusBuffersOverlapping
	StatusDeltaBadSize
	StatusDeltaDeltaEmpty
	StatusBatchOverflow
	StatusExecutionFailed
	StatusUnsupportedOperation
	StatusQueueBusy
	StatusError
)

var statusNames = [...]string{
	StatusOK:                   "ok",
	StatusFalsePredicate:       "false_predicate",
	StatusPartialCompletion:    "partial_completion",
	StatusNullptrError:         "nullptr_error",
	StatusBadSize:              "bad_size",
	StatusBadLength:            "bad_length",
	StatusInconsistentSize:     "inconsistent_size",
	StatusDualcastBadPadding:   "dualcast_bad_padding",
	StatusBadAlignment:         "bad_alignment",
	StatusBuffersOverlapping:   "buffers_overlapping",
	StatusDeltaBadSize:         "delta_bad_size",
	StatusDeltaDeltaEmpty:      "delta_delta_empty",
	StatusBatchOverflow:        "batch_overflow",
	StatusExecutionFailed:      "execution_failed",
	StatusUnsupportedOperation: "unsupported_operation",
	StatusQueueBusy:            "queue_busy",
	StatusError:                "error",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Validation reports whether the status is produced by input validation.
func (s Status) Validation() bool {
	switch s {
	case StatusNullptrError, StatusBadSize, StatusBadLength, StatusInconsistentSize,
		StatusDualcastBadPadding, StatusBadAlignment, StatusBuffersOverlapping,
		StatusDeltaBadSize, StatusDeltaDeltaEmpty, StatusBatchOverflow:
		return true
	}
	return false
}

// Err returns nil for StatusOK and an *Error otherwise.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return &Error{Status: s}
}

var (
	// ErrValidation matches every input validation failure.
	ErrValidation = errors.New("dml: validation failed")
	// ErrSubmission matches failures of the submission channel.
	ErrSubmission = errors.New("dml: submission failed")
	// ErrExecution matches failures reported in the completion record.
	ErrExecution = errors.New("dml: execution failed")
	// ErrQueueBusy is returned when the work queue has no free slots.
	ErrQueueBusy = errors.New("dml: queue busy")
	// ErrUnsupported is returned for operations the path cannot execute.
	ErrUnsupported = errors.New("dml: unsupported operation")
)

// Error wraps a non-ok Status as an error.
type Error struct {
	Status Status
	// Raw is the completion record status, zero if execution never started.
	Raw uint8
}

func (e *Error) Error() string {
	if e.Raw != 0 {
		return fmt.Sprintf("dml: %s (raw status %#x)", e.Status, e.Raw)
	}
	return "dml: " + e.Status.String()
}

// Is allows errors.Is(err, ErrValidation) and friends.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Status.Validation()
	case ErrQueueBusy:
		return e.Status == StatusQueueBusy
	case ErrSubmission:
		return e.Status == StatusQueueBusy || (e.Status == StatusError && e.Raw == 0)
	case ErrUnsupported:
		return e.Status == StatusUnsupportedOperation
	case ErrExecution:
		return e.Raw != 0
	}
	return false
}

// statusFromRaw maps a completion record status to the caller taxonomy.
func statusFromRaw(raw uint8) Status {
	switch raw & DSA_COMP_STATUS_MASK {
	case DSA_COMP_NONE:
		return StatusError
	case DSA_COMP_SUCCESS:
		return StatusOK
	case DSA_COMP_SUCCESS_PRED:
		return StatusFalsePredicate
	case DSA_COMP_PAGE_FAULT_NOBOF, DSA_COMP_PAGE_FAULT_IR, DSA_COMP_BATCH_PAGE_FAULT:
		return StatusPartialCompletion
	case DSA_COMP_BAD_OPCODE:
		return StatusUnsupportedOperation
	}
	return StatusExecutionFailed
}
