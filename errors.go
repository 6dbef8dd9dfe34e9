package recgo

import "fmt"

// ValidationError indicates malformed caller input. It is always
// returned before any side effect: no embedding call, no index
// mutation, no cache change has happened.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Msg)
}

// ExternalServiceError indicates a failure of the remote index or the
// embedding function. The operation that failed is named in Op.
//
// The original underlying error can be accessed via errors.Unwrap.
type ExternalServiceError struct {
	Op    string // "embed", "upsert", "query" or "delete"
	cause error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service: %s failed: %v", e.Op, e.cause)
}

func (e *ExternalServiceError) Unwrap() error { return e.cause }

func externalError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Op: op, cause: err}
}
