package models

import "errors"

// Domain errors. The message of each is what a client sees in an exception event.
var (
	ErrPollNotFound            = errors.New("Poll not found")
	ErrPollAlreadyExists       = errors.New("Poll already exists")
	ErrPollHasStarted          = errors.New("Poll has started")
	ErrPollNoStart             = errors.New("Poll no start")
	ErrAdminPrivilegesRequired = errors.New("Admin privileges required")
	ErrNoNomination            = errors.New("No nomination")
	ErrUnknownNomination       = errors.New("Unknown nomination")
	ErrUnsupportedEvent        = errors.New("Unsupported websocket event")

	ErrMissingCredentials = errors.New("Missing credentials")
	ErrInvalidToken       = errors.New("Invalid token")
	ErrTokenCreation      = errors.New("Token creation")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "Invalid " + e.Field + ": " + e.Reason
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
