package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBookID is returned for a fetched book record without an id.
	ErrMissingBookID = errors.New("book record has no id")
	// ErrMissingAuthorName is returned for an author sub-record without a name.
	ErrMissingAuthorName = errors.New("author record has no name")
	// ErrInvalidDownloadCount is returned for a negative download count.
	ErrInvalidDownloadCount = errors.New("download count is negative")
	// ErrUnresolvedAuthor is returned when a book references an author that was never stored.
	ErrUnresolvedAuthor = errors.New("book references an unresolved author")
	// ErrBookNotFound is returned when a book is not in the catalog.
	ErrBookNotFound = errors.New("book not found")
	// ErrNameMatchingMismatch is returned when a catalog is opened with a
	// different name matching mode than the one its author keys were built with.
	ErrNameMatchingMismatch = errors.New("catalog was built with a different name matching mode")
)

// RecordError marks the failure of a single fetched record.
// Index is the zero-based position of the record in its batch.
type RecordError struct {
	Index  int
	BookID *int64
	Title  string
	Err    error
}

func (e *RecordError) Error() string {
	if e.BookID != nil {
		return fmt.Sprintf("record %d (book %d): %v", e.Index, *e.BookID, e.Err)
	}
	if e.Title != "" {
		return fmt.Sprintf("record %d (%q): %v", e.Index, e.Title, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsRecordError reports whether err carries a RecordError.
func IsRecordError(err error) bool {
	var recErr *RecordError
	return errors.As(err, &recErr)
}
