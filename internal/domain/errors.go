package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks fetch failures: network errors and non-success responses.
	ErrTransport = errors.New("transport failure")
	// ErrExtraction marks pages that violate the structure the extractors rely on.
	ErrExtraction = errors.New("extraction failure")
)

// ExtractionError names the page and the required field that could not be read.
type ExtractionError struct {
	URL   string
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s from %s: %v", e.Field, e.URL, e.Err)
	}
	return fmt.Sprintf("extract %s from %s: field missing", e.Field, e.URL)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExtraction, e.Err}
	}
	return []error{ErrExtraction}
}
