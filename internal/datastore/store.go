package datastore

import (
	"context"
	"fmt"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
)

const (
	// DriverSQLite selects the embedded SQLite backend.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL backend.
	DriverPostgres = "postgres"
)

// Store is a catalog.Store with the read projections, run ledger and
// lifecycle every backend provides.
type Store interface {
	catalog.Store

	// Connect establishes the connection and creates missing tables
	Connect(ctx context.Context) error

	GetBook(ctx context.Context, key catalog.BookKey) (catalog.Book, error)
	AuthorBooks(ctx context.Context, authorID int64) ([]catalog.Book, error)
	BooksByLanguage(ctx context.Context, lang string) ([]catalog.Book, error)
	TopBooks(ctx context.Context, n int) ([]catalog.Book, error)
	AuthorsAliveIn(ctx context.Context, year int) ([]catalog.Author, error)
	Stats(ctx context.Context) (catalog.Stats, error)

	// EnsureNameMatching records mode on first use and fails with
	// catalog.ErrNameMatchingMismatch when the catalog already uses another one
	EnsureNameMatching(ctx context.Context, mode catalog.NameMatching) error

	RecordRun(ctx context.Context, run catalog.Run) error
	RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error)

	// Close closes the connection to the data store
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Open creates and connects the store for driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var store Store
	switch driver {
	case "", DriverSQLite:
		store = NewSQLiteStore(dsn)
	case DriverPostgres:
		store = NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q (want %q or %q)", driver, DriverSQLite, DriverPostgres)
	}

	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// metaNameMatching is the catalog_meta key holding the name matching mode.
const metaNameMatching = "name_matching"

func checkNameMatching(stored string, requested catalog.NameMatching) error {
	if catalog.NameMatching(stored) != requested {
		return fmt.Errorf("catalog uses %q, requested %q: %w", stored, requested, catalog.ErrNameMatchingMismatch)
	}
	return nil
}

func validateBook(book catalog.Book) error {
	if book.DownloadCount < 0 {
		return fmt.Errorf("book %d: %w", book.ID, catalog.ErrInvalidDownloadCount)
	}
	for _, a := range book.Authors {
		if a.ID == 0 {
			return fmt.Errorf("book %d, author %q: %w", book.ID, a.Name, catalog.ErrUnresolvedAuthor)
		}
	}
	return nil
}

func validateAuthorData(data catalog.AuthorData) error {
	if data.Name == "" {
		return catalog.ErrMissingAuthorName
	}
	return nil
}

// normalizeBook drops repeated subjects, languages and author references.
// Nil collections stay nil.
func normalizeBook(book catalog.Book) catalog.Book {
	if book.Subjects != nil {
		book.Subjects = uniqueStrings(book.Subjects)
	}
	if book.Languages != nil {
		book.Languages = uniqueStrings(book.Languages)
	}
	if book.Authors != nil {
		book.Authors = uniqueAuthors(book.Authors)
	}
	return book
}

// uniqueStrings drops repeated values, keeping first occurrences in order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

// uniqueAuthors drops repeated author references, keeping first occurrences.
func uniqueAuthors(authors []catalog.Author) []catalog.Author {
	seen := make(map[int64]bool, len(authors))
	result := make([]catalog.Author, 0, len(authors))
	for _, a := range authors {
		if !seen[a.ID] {
			seen[a.ID] = true
			result = append(result, a)
		}
	}
	return result
}

// bookChildren collects child rows per book id while loading books.
type bookChildren struct {
	summaries map[int64][]string
	subjects  map[int64][]string
	languages map[int64][]string
	authors   map[int64][]catalog.Author
}

func newBookChildren() *bookChildren {
	return &bookChildren{
		summaries: make(map[int64][]string),
		subjects:  make(map[int64][]string),
		languages: make(map[int64][]string),
		authors:   make(map[int64][]catalog.Author),
	}
}

func (c *bookChildren) attach(books []catalog.Book) []catalog.Book {
	for i := range books {
		id := books[i].ID
		books[i].Summaries = c.summaries[id]
		books[i].Subjects = c.subjects[id]
		books[i].Languages = c.languages[id]
		books[i].Authors = c.authors[id]
	}
	return books
}

func bookIDs(books []catalog.Book) []int64 {
	ids := make([]int64, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}
