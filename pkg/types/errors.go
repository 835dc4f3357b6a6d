package types

import "errors"

// Service-level errors shared by the HTTP layer to pick a status code.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrInvalidArgument    = errors.New("invalid argument")
)
