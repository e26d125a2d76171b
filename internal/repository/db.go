package repository

import "errors"

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

const timeFormat = "2006-01-02T15:04:05Z"
