package tasks

import (
	"fmt"
)

// FetchError reports a transport failure or a non-2xx response from the feed source.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch feed %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RunError aborts an ingestion run. Err is the fetch, parse or store failure
// that stopped it.
type RunError struct {
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("error processing RSS feed: %v", e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
