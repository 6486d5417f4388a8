package models

import "errors"

var (
	// ErrNotFound indicates a file or quiz target is missing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateResult indicates a result save matched an existing record
	// within the duplicate-submission window. Benign; callers log and move on.
	ErrDuplicateResult = errors.New("duplicate quiz result")
)
