package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "gemini status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("gemini %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("gemini %s status: %s: %s", e.Operation, e.Status, e.Body)
}

// ContentBlockedError is a content-policy rejection. Never retried.
type ContentBlockedError struct {
	Operation string
	Reason    string
}

func (e *ContentBlockedError) Error() string {
	return fmt.Sprintf("gemini %s blocked by content policy: %s", e.Operation, e.Reason)
}

func classifyProviderError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retry: false, CountAsFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retry: true, CountAsFailure: true}
	}

	var blocked *ContentBlockedError
	if errors.As(err, &blocked) {
		return resilience.Verdict{Retry: false, CountAsFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Verdict{Retry: true, CountAsFailure: true}
		}
		return resilience.Verdict{Retry: false, CountAsFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retry: true, CountAsFailure: true}
	}

	return resilience.Verdict{Retry: false, CountAsFailure: true}
}

// wrapProviderError maps an exhausted or non-retryable failure onto the
// domain error kinds the orchestrator exposes on the job surface.
func wrapProviderError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrPermanent) {
		return err
	}

	verdict := classifyProviderError(err)
	if verdict.Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}

	var blocked *ContentBlockedError
	var statusErr *HTTPStatusError
	switch {
	case errors.As(err, &blocked), errors.As(err, &statusErr):
		// Auth failures, malformed requests and policy rejections alike.
		return domain.WrapError(domain.ErrPermanent, operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.WrapError(domain.ErrTemporary, operation, err)
	default:
		return err
	}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
