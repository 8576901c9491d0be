package feed

import "fmt"

// MalformedFeedError reports a document that is not well-formed XML or lacks
// the rss/channel structure.
type MalformedFeedError struct {
	Err error
}

func (e *MalformedFeedError) Error() string {
	return fmt.Sprintf("malformed feed: %v", e.Err)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}

// InvalidDateError reports an entry whose publication date cannot be parsed.
type InvalidDateError struct {
	GUID  string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid publication date for entry %q: date is missing", e.GUID)
	}
	return fmt.Sprintf("invalid publication date %q for entry %q: %v", e.Value, e.GUID, e.Err)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}
