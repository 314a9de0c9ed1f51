// Package apperr holds the sentinel errors shared by the stores, the item
// service and the HTTP layer.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidInput = errors.New("invalid input")
)
