package anidb

import "errors"

// Parse errors; all of them cause the offending element to be skipped
var (
	errMissingID          = errors.New("entry id is missing")
	errMissingTitle       = errors.New("entry has no main title")
	errMalformedAttribute = errors.New("malformed attribute")
	errMalformedTitle     = errors.New("malformed title")
	errUnknownTitleKind   = errors.New("unknown title kind")
	errUnexpectedState    = errors.New("unexpected scanner state")
)
