package identity

import "errors"

var (
	// ErrInvalidCredentials is returned when username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCannotModifyAdmin is returned when mutating a configured admin account.
	ErrCannotModifyAdmin = errors.New("configured admin accounts cannot be modified")
)
