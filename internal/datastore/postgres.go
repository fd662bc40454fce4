package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lepinkainen/gutenshelf/internal/catalog"
)

const bookColumns = "id, title, download_count"

// PostgresStore implements the Store interface on a PostgreSQL pool
type PostgresStore struct {
	db  *pgxpool.Pool
	dsn string
}

// NewPostgresStore creates a new PostgresStore for the connection string
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

// Connect opens the pool, verifies it and creates the catalog tables
func (s *PostgresStore) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}

	s.db = pool
	slog.Debug("Catalog store connected", "driver", DriverPostgres)
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// BookExists reports whether a book with the key is stored
func (s *PostgresStore) BookExists(ctx context.Context, key catalog.BookKey) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)", key.Int64()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check book %d: %w", key.Int64(), err)
	}
	return exists, nil
}

// EnsureNameMatching pins the catalog to one name matching mode
func (s *PostgresStore) EnsureNameMatching(ctx context.Context, mode catalog.NameMatching) error {
	if _, err := s.db.Exec(ctx,
		"INSERT INTO catalog_meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		metaNameMatching, string(mode)); err != nil {
		return fmt.Errorf("failed to record name matching: %w", err)
	}

	var stored string
	if err := s.db.QueryRow(ctx,
		"SELECT value FROM catalog_meta WHERE key = $1", metaNameMatching).Scan(&stored); err != nil {
		return fmt.Errorf("failed to read name matching: %w", err)
	}
	return checkNameMatching(stored, mode)
}

// FindOrCreateAuthor returns the author stored under key, inserting data when absent
func (s *PostgresStore) FindOrCreateAuthor(ctx context.Context, key catalog.AuthorKey, data catalog.AuthorData) (catalog.Author, bool, error) {
	if err := validateAuthorData(data); err != nil {
		return catalog.Author{}, false, err
	}

	const insertSQL = `
		INSERT INTO authors (external_id, name, birth_year, death_year, identity_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_key) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRow(ctx, insertSQL, data.ExternalID, data.Name, data.BirthYear, data.DeathYear, key.String()).Scan(&id)
	switch {
	case err == nil:
		return catalog.Author{
			ID:         id,
			ExternalID: data.ExternalID,
			Name:       data.Name,
			BirthYear:  data.BirthYear,
			DeathYear:  data.DeathYear,
		}, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return catalog.Author{}, false, fmt.Errorf("failed to insert author %q: %w", data.Name, err)
	}

	var a catalog.Author
	err = s.db.QueryRow(ctx,
		"SELECT id, external_id, name, birth_year, death_year FROM authors WHERE identity_key = $1",
		key.String()).Scan(&a.ID, &a.ExternalID, &a.Name, &a.BirthYear, &a.DeathYear)
	if err != nil {
		return catalog.Author{}, false, fmt.Errorf("failed to re-read author %q: %w", data.Name, err)
	}
	return a, false, nil
}

// UpsertBook inserts the book and its child rows when absent. A stored book is never updated.
func (s *PostgresStore) UpsertBook(ctx context.Context, book catalog.Book) (catalog.Book, bool, error) {
	if err := validateBook(book); err != nil {
		return catalog.Book{}, false, err
	}
	book = normalizeBook(book)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		"INSERT INTO books (id, title, download_count) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		book.ID, book.Title, book.DownloadCount)
	if err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to insert book %d: %w", book.ID, err)
	}

	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		existing, err := s.GetBook(ctx, book.Key())
		if err != nil {
			return catalog.Book{}, false, fmt.Errorf("failed to re-read book %d: %w", book.ID, err)
		}
		return existing, false, nil
	}

	batch := &pgx.Batch{}
	for i, summary := range book.Summaries {
		batch.Queue("INSERT INTO book_summaries (book_id, position, summary) VALUES ($1, $2, $3)", book.ID, i, summary)
	}
	for i, subject := range book.Subjects {
		batch.Queue("INSERT INTO book_subjects (book_id, position, subject) VALUES ($1, $2, $3)", book.ID, i, subject)
	}
	for i, lang := range book.Languages {
		batch.Queue("INSERT INTO book_languages (book_id, position, language) VALUES ($1, $2, $3)", book.ID, i, lang)
	}
	for i, author := range book.Authors {
		batch.Queue("INSERT INTO book_authors (book_id, author_id, position) VALUES ($1, $2, $3)", book.ID, author.ID, i)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return catalog.Book{}, false, fmt.Errorf("failed to insert child rows for book %d: %w", book.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to commit book %d: %w", book.ID, err)
	}
	return book, true, nil
}

// GetBook returns a single stored book with its authors
func (s *PostgresStore) GetBook(ctx context.Context, key catalog.BookKey) (catalog.Book, error) {
	books, err := s.queryBooks(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", key.Int64())
	if err != nil {
		return catalog.Book{}, err
	}
	if len(books) == 0 {
		return catalog.Book{}, fmt.Errorf("book %d: %w", key.Int64(), catalog.ErrBookNotFound)
	}
	return books[0], nil
}

// ListAllBooks returns every stored book ordered by id
func (s *PostgresStore) ListAllBooks(ctx context.Context) ([]catalog.Book, error) {
	return s.queryBooks(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id")
}

// AuthorBooks returns the books linked to an author, ordered by id
func (s *PostgresStore) AuthorBooks(ctx context.Context, authorID int64) ([]catalog.Book, error) {
	return s.queryBooks(ctx, `
		SELECT b.id, b.title, b.download_count FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = $1
		ORDER BY b.id`, authorID)
}

// BooksByLanguage returns the books tagged with a language code
func (s *PostgresStore) BooksByLanguage(ctx context.Context, lang string) ([]catalog.Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE id IN (SELECT book_id FROM book_languages WHERE lower(language) = lower($1))
		ORDER BY id`, lang)
}

// TopBooks returns the n most downloaded books
func (s *PostgresStore) TopBooks(ctx context.Context, n int) ([]catalog.Book, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryBooks(ctx,
		"SELECT "+bookColumns+" FROM books ORDER BY download_count DESC, id LIMIT $1", n)
}

// ListAllAuthors returns every stored author in creation order
func (s *PostgresStore) ListAllAuthors(ctx context.Context) ([]catalog.Author, error) {
	return s.queryAuthors(ctx, "SELECT id, external_id, name, birth_year, death_year FROM authors ORDER BY id")
}

// AuthorsAliveIn returns authors born on or before year who had not died before it
func (s *PostgresStore) AuthorsAliveIn(ctx context.Context, year int) ([]catalog.Author, error) {
	return s.queryAuthors(ctx, `
		SELECT id, external_id, name, birth_year, death_year FROM authors
		WHERE birth_year IS NOT NULL AND birth_year <= $1
		  AND (death_year IS NULL OR death_year >= $1)
		ORDER BY birth_year, id`, year)
}

// Stats counts books, authors and book-author relations
func (s *PostgresStore) Stats(ctx context.Context) (catalog.Stats, error) {
	var stats catalog.Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books),
			(SELECT COUNT(*) FROM authors),
			(SELECT COUNT(*) FROM book_authors)`).Scan(&stats.Books, &stats.Authors, &stats.Relations)
	if err != nil {
		return catalog.Stats{}, fmt.Errorf("failed to count catalog: %w", err)
	}
	return stats, nil
}

// RecordRun appends a reconciliation run to the ledger
func (s *PostgresStore) RecordRun(ctx context.Context, run catalog.Run) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reconcile_runs (id, started_at, finished_at, records, books_created, books_skipped,
			authors_created, authors_reused, failures, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Records, run.BooksCreated, run.BooksSkipped,
		run.AuthorsCreated, run.AuthorsReused, run.Failures, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit ledger entries, newest first
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, started_at, finished_at, records, books_created, books_skipped,
			authors_created, authors_reused, failures, error
		FROM reconcile_runs ORDER BY started_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []catalog.Run
	for rows.Next() {
		var run catalog.Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Records, &run.BooksCreated,
			&run.BooksSkipped, &run.AuthorsCreated, &run.AuthorsReused, &run.Failures, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) queryAuthors(ctx context.Context, query string, args ...any) ([]catalog.Author, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	var authors []catalog.Author
	for rows.Next() {
		var a catalog.Author
		if err := rows.Scan(&a.ID, &a.ExternalID, &a.Name, &a.BirthYear, &a.DeathYear); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

func (s *PostgresStore) queryBooks(ctx context.Context, query string, args ...any) ([]catalog.Book, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Book, error) {
		var b catalog.Book
		err := row.Scan(&b.ID, &b.Title, &b.DownloadCount)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan books: %w", err)
	}
	if len(books) == 0 {
		return books, nil
	}

	children := newBookChildren()
	ids := bookIDs(books)

	if err := s.collectStrings(ctx,
		"SELECT book_id, summary FROM book_summaries WHERE book_id = ANY($1) ORDER BY book_id, position",
		ids, children.summaries); err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	if err := s.collectStrings(ctx,
		"SELECT book_id, subject FROM book_subjects WHERE book_id = ANY($1) ORDER BY book_id, position",
		ids, children.subjects); err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}
	if err := s.collectStrings(ctx,
		"SELECT book_id, language FROM book_languages WHERE book_id = ANY($1) ORDER BY book_id, position",
		ids, children.languages); err != nil {
		return nil, fmt.Errorf("failed to load languages: %w", err)
	}

	authorRows, err := s.db.Query(ctx, `
		SELECT ba.book_id, a.id, a.external_id, a.name, a.birth_year, a.death_year
		FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1) ORDER BY ba.book_id, ba.position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load book authors: %w", err)
	}
	defer authorRows.Close()
	for authorRows.Next() {
		var bookID int64
		var a catalog.Author
		if err := authorRows.Scan(&bookID, &a.ID, &a.ExternalID, &a.Name, &a.BirthYear, &a.DeathYear); err != nil {
			return nil, fmt.Errorf("failed to scan book author: %w", err)
		}
		children.authors[bookID] = append(children.authors[bookID], a)
	}
	if err := authorRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load book authors: %w", err)
	}

	return children.attach(books), nil
}

func (s *PostgresStore) collectStrings(ctx context.Context, query string, ids []int64, into map[int64][]string) error {
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var v string
		if err := rows.Scan(&id, &v); err != nil {
			return err
		}
		into[id] = append(into[id], v)
	}
	return rows.Err()
}
