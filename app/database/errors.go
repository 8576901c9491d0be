package database

import (
	"errors"
	"fmt"
)

var ErrReportNotFound = errors.New("report not found")

// StoreReadError wraps a failed query.
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

// StoreWriteError wraps a failed insert or update, including writes that
// matched no row.
type StoreWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
