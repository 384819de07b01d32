package httpmodel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "oracle status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("oracle %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("oracle %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// MalformedReplyError is a 2xx reply whose body is not a usable
// translation result.
type MalformedReplyError struct {
	Operation string
	Err       error
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("oracle %s reply malformed: %v", e.Operation, e.Err)
}

func (e *MalformedReplyError) Unwrap() error {
	return e.Err
}

// classifyOracleError decides retry and breaker accounting per failure:
//   - 408/429/5xx and network errors: retry, count against the model
//   - other 4xx: the request is wrong, the model is fine
//   - malformed 2xx reply: the model is broken, a retry returns the same
func classifyOracleError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var malformed *MalformedReplyError
	if errors.As(err, &malformed) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		retryable := isRetryableHTTPStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// toDomainError attaches the error kind the HTTP layer maps to a status:
// a bad reply is ErrLatticeShape (502), an unreachable model ErrTemporary (503).
func toDomainError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrLatticeShape) {
		return err
	}

	var malformed *MalformedReplyError
	if errors.As(err, &malformed) {
		return domain.WrapError(domain.ErrLatticeShape, operation, err)
	}
	if classifyOracleError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= http.StatusInternalServerError && statusCode != http.StatusNotImplemented
	}
}
