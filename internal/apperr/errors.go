// Package apperr holds the sentinel errors shared by services and handlers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrIsDirectory   = errors.New("is a directory")
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidInput  = errors.New("invalid input")
)
