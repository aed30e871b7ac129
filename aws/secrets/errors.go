package secrets

import (
	"fmt"
	"strings"
)

// InvalidCredentialsError is returned when a secret is missing, unparseable or has the wrong set of keys.
type InvalidCredentialsError struct {
	Role    string
	Message string
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials for %v: %v", e.Role, e.Message)
}

func newKeySetError(role string, expected []string, got []string) *InvalidCredentialsError {
	return &InvalidCredentialsError{
		Role:    role,
		Message: fmt.Sprintf("expected keys [%v]; got [%v]", strings.Join(expected, ","), strings.Join(got, ",")),
	}
}
