// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when an owner id no longer resolves to a user.
var ErrUserNotFound = errors.New("user does not exist")

// ErrNoConnectors is returned when an operation needs at least one enabled connector.
var ErrNoConnectors = errors.New("there are no enabled repository plugins")

// ErrInvalidRepoFormat is returned when a GitHub URL does not carry an 'owner/name' path.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrUnknownConnector is returned when the configuration enables a connector id that is not registered.
type ErrUnknownConnector struct {
	ID string
}

func (e *ErrUnknownConnector) Error() string {
	return fmt.Sprintf("unknown repository connector: %q", e.ID)
}

// ErrDuplicateConnector is returned when the configuration enables the same connector id twice.
type ErrDuplicateConnector struct {
	ID string
}

func (e *ErrDuplicateConnector) Error() string {
	return fmt.Sprintf("repository connector %q is enabled more than once", e.ID)
}

// ErrURLsStillDeclared is returned when stored records cannot be purged because users still declare URLs.
var ErrURLsStillDeclared = errors.New("users still declare repository urls")
