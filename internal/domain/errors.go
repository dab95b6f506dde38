package domain

import "errors"

// Domain errors
var (
	ErrNoDocument     = errors.New("no document loaded")
	ErrNoPages        = errors.New("document has no pages")
	ErrRunActive      = errors.New("a conversion run is already in progress")
	ErrNoActiveRun    = errors.New("no conversion run is active")
	ErrPageOutOfRange = errors.New("page index out of range")
)
