package domain

import (
	"errors"
	"fmt"
)

// ErrMissingCredential means no model-service key is configured. Nothing in
// the wizard can proceed until one is supplied.
var ErrMissingCredential = errors.New("model service API key is not configured")

// CredentialEnvVars lists where the model-service key is looked up, in order.
var CredentialEnvVars = []string{"TWA_API_KEY", "API_KEY", "GEMINI_API_KEY"}

// ServiceError covers malformed responses and transport failures. The user
// may resubmit the same step.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewServiceError(op string, err error) error {
	return &ServiceError{Op: op, Err: err}
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
