package user

import "errors"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a bad email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken indicates a missing, expired or malformed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidInput indicates invalid registration or login input.
	ErrInvalidInput = errors.New("invalid user input")
)
