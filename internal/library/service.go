// Package library is the catalog query façade: local read projections over
// the stored catalog plus remote searches that feed the reconciliation engine.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/reconcile"
)

// Catalog is the read side of the stored catalog.
type Catalog interface {
	ListAllBooks(ctx context.Context) ([]catalog.Book, error)
	ListAllAuthors(ctx context.Context) ([]catalog.Author, error)
	GetBook(ctx context.Context, key catalog.BookKey) (catalog.Book, error)
	AuthorBooks(ctx context.Context, authorID int64) ([]catalog.Book, error)
	BooksByLanguage(ctx context.Context, lang string) ([]catalog.Book, error)
	TopBooks(ctx context.Context, n int) ([]catalog.Book, error)
	AuthorsAliveIn(ctx context.Context, year int) ([]catalog.Author, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// Source is the remote catalog searched by the service.
type Source interface {
	SearchText(ctx context.Context, text string) ([]catalog.RawBook, error)
	ByLanguage(ctx context.Context, lang string) ([]catalog.RawBook, error)
	Popular(ctx context.Context) ([]catalog.RawBook, error)
	AuthorsAliveBetween(ctx context.Context, from, to int) ([]catalog.RawBook, error)
}

// Reconciler merges fetched records into the catalog.
type Reconciler interface {
	Reconcile(ctx context.Context, records []catalog.RawBook) (*reconcile.Report, error)
}

// Chooser lets the user pick one of several candidates when no title matches
// exactly. It returns ok=false when nothing was chosen.
type Chooser func(query string, candidates []catalog.RawBook) (choice catalog.RawBook, ok bool, err error)

// Service combines the stored catalog, the remote source and the engine.
type Service struct {
	catalog    Catalog
	source     Source
	reconciler Reconciler
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(c Catalog, source Source, reconciler Reconciler) *Service {
	return &Service{
		catalog:    c,
		source:     source,
		reconciler: reconciler,
		logger:     slog.Default(),
	}
}

// AuthorEntry is an author with the stored books that reference it.
type AuthorEntry struct {
	catalog.Author
	Books []catalog.Book `json:"books"`
}

// Books returns every stored book.
func (s *Service) Books(ctx context.Context) ([]catalog.Book, error) {
	return s.catalog.ListAllBooks(ctx)
}

// Authors returns every stored author.
func (s *Service) Authors(ctx context.Context) ([]catalog.Author, error) {
	return s.catalog.ListAllAuthors(ctx)
}

// AuthorsWithBooks returns every stored author with its book back-references.
func (s *Service) AuthorsWithBooks(ctx context.Context) ([]AuthorEntry, error) {
	authors, err := s.catalog.ListAllAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return s.withBooks(ctx, authors)
}

// AuthorsAliveIn returns stored authors alive in year, with their books.
func (s *Service) AuthorsAliveIn(ctx context.Context, year int) ([]AuthorEntry, error) {
	authors, err := s.catalog.AuthorsAliveIn(ctx, year)
	if err != nil {
		return nil, err
	}
	return s.withBooks(ctx, authors)
}

func (s *Service) withBooks(ctx context.Context, authors []catalog.Author) ([]AuthorEntry, error) {
	entries := make([]AuthorEntry, 0, len(authors))
	for _, a := range authors {
		books, err := s.catalog.AuthorBooks(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("books of author %d: %w", a.ID, err)
		}
		entries = append(entries, AuthorEntry{Author: a, Books: books})
	}
	return entries, nil
}

// BooksInLanguage returns stored books with the language code.
func (s *Service) BooksInLanguage(ctx context.Context, lang string) ([]catalog.Book, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return nil, fmt.Errorf("language code is empty")
	}
	return s.catalog.BooksByLanguage(ctx, lang)
}

// TopDownloaded returns the n most downloaded stored books.
func (s *Service) TopDownloaded(ctx context.Context, n int) ([]catalog.Book, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", n)
	}
	return s.catalog.TopBooks(ctx, n)
}

// Book returns a stored book.
func (s *Service) Book(ctx context.Context, id int64) (catalog.Book, error) {
	return s.catalog.GetBook(ctx, catalog.ResolveBookKey(id))
}

// AuthorBooks returns the stored books that reference the author.
func (s *Service) AuthorBooks(ctx context.Context, authorID int64) ([]catalog.Book, error) {
	return s.catalog.AuthorBooks(ctx, authorID)
}

// Stats returns the catalog counts.
func (s *Service) Stats(ctx context.Context) (catalog.Stats, error) {
	return s.catalog.Stats(ctx)
}
