// Package apperr defines the sentinel errors shared across envx components.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrInvalidName    = errors.New("invalid name")
	ErrParse          = errors.New("parse error")
	ErrPersistence    = errors.New("persistence failed")
	ErrCyclicProfile  = errors.New("cyclic profile inheritance")
	ErrOutOfBounds    = errors.New("index out of bounds")
	ErrValidation     = errors.New("validation failed")
)
