package catalog

import "context"

// Store is durable keyed storage for books, authors and their relation.
// Every mutating call is durable before it returns.
type Store interface {
	// BookExists reports whether a book with the key is stored.
	BookExists(ctx context.Context, key BookKey) (bool, error)

	// UpsertBook inserts the book when absent and returns the stored row.
	// A book that is already present is returned untouched; created is false.
	UpsertBook(ctx context.Context, book Book) (stored Book, created bool, err error)

	// FindOrCreateAuthor returns the author stored under key, inserting data
	// when none exists. Data is ignored for an existing author.
	FindOrCreateAuthor(ctx context.Context, key AuthorKey, data AuthorData) (author Author, created bool, err error)

	// ListAllBooks returns a snapshot of every stored book.
	ListAllBooks(ctx context.Context) ([]Book, error)

	// ListAllAuthors returns a snapshot of every stored author.
	ListAllAuthors(ctx context.Context) ([]Author, error)
}
