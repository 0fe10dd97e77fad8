package entity

import "errors"

// Domain-specific errors
var (
	ErrUnknownSource     = errors.New("unknown external source")
	ErrMissingIntentID   = errors.New("import intent id expected")
	ErrMissingAnime      = errors.New("anime entity is missing")
	ErrImportInProgress  = errors.New("import is already in progress")
	ErrTaskAlreadyClosed = errors.New("task is already finished")
)
