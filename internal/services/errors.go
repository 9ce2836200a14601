package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
	ErrMissingDependency = errors.New("missing dependency")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails summarizes an error for log fields and operator notifications.
type ErrorDetails struct {
	Kind string
	Hint string
}

// Details classifies err by its sentinel marker.
func Details(err error) ErrorDetails {
	switch {
	case err == nil:
		return ErrorDetails{}
	case errors.Is(err, ErrMissingDependency):
		return ErrorDetails{Kind: "missing_dependency", Hint: "complete or roll back to the upstream phase first"}
	case errors.Is(err, ErrConfiguration):
		return ErrorDetails{Kind: "configuration", Hint: "check loom config (loom config validate)"}
	case errors.Is(err, ErrValidation):
		return ErrorDetails{Kind: "validation", Hint: "inspect the generated artifact and retry the phase"}
	case errors.Is(err, ErrNotFound):
		return ErrorDetails{Kind: "not_found", Hint: "verify the run id and artifact paths"}
	case errors.Is(err, ErrTimeout):
		return ErrorDetails{Kind: "timeout", Hint: "raise llm.timeout_seconds or retry later"}
	case errors.Is(err, ErrExternalTool):
		return ErrorDetails{Kind: "provider", Hint: "check provider credentials and status, then resume"}
	default:
		return ErrorDetails{Kind: "transient", Hint: "resume the run to retry"}
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
