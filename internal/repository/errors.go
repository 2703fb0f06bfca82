package repository

import "errors"

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("not found")
