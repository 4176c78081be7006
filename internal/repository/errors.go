package repository

import "errors"

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by Create when the email is already stored.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateAPIKey is returned by Create when the api key is already stored.
	ErrDuplicateAPIKey = errors.New("api key already exists")
)
