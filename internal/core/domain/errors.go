package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary provider failure")
	ErrPermanent           = errors.New("permanent provider failure")
	ErrNoStructuredPayload = errors.New("no structured payload")
	ErrStorage             = errors.New("storage unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FailureDetail is the structured error payload carried by a failed job.
type FailureDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ClassifyFailure converts a pipeline error into the detail payload exposed on
// a failed job. Raw errors never cross the job status surface.
func ClassifyFailure(err error) FailureDetail {
	switch {
	case IsKind(err, ErrTemporary):
		return FailureDetail{Kind: "transient_provider_error", Message: err.Error(), Retryable: true}
	case IsKind(err, ErrPermanent):
		return FailureDetail{Kind: "permanent_provider_error", Message: err.Error()}
	case IsKind(err, ErrNoStructuredPayload):
		return FailureDetail{Kind: "normalization_error", Message: err.Error()}
	case IsKind(err, ErrStorage):
		return FailureDetail{Kind: "storage_error", Message: err.Error()}
	case IsKind(err, ErrInvalidInput):
		return FailureDetail{Kind: "invalid_input", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return FailureDetail{Kind: "timeout", Message: err.Error(), Retryable: true}
	default:
		return FailureDetail{Kind: "internal_error", Message: err.Error()}
	}
}
