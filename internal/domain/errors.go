package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyLocation is returned by ParseLocation for absent or blank location text.
var ErrEmptyLocation = errors.New("location is empty")

// FetchError reports that the feed could not be read or returned malformed rows.
// It is fatal to an ingestion run.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch feed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// StoreError reports a schema or connection failure of the record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// GeometryParseError reports an unusable incident location or AOI file.
// Subject names the record (case number) or the AOI file.
type GeometryParseError struct {
	Subject string
	Err     error
}

func (e *GeometryParseError) Error() string {
	return fmt.Sprintf("parse geometry for %s: %v", e.Subject, e.Err)
}
func (e *GeometryParseError) Unwrap() error { return e.Err }

// NotificationError reports a failed delivery of one AOI notification to one sink.
type NotificationError struct {
	AOI  string
	Sink string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s via %s: %v", e.AOI, e.Sink, e.Err)
}
func (e *NotificationError) Unwrap() error { return e.Err }
