package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	_ "modernc.org/sqlite"
)

// sqliteBatchSize bounds the number of ids bound into one IN (...) list.
const sqliteBatchSize = 500

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
	}
}

// Connect opens the SQLite database and creates the catalog tables
func (s *SQLiteStore) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}

	s.db = db
	slog.Debug("Catalog store connected", "driver", DriverSQLite, "path", s.dbPath)
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BookExists reports whether a book with the key is stored
func (s *SQLiteStore) BookExists(ctx context.Context, key catalog.BookKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM books WHERE id = ?", key.Int64()).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check book %d: %w", key.Int64(), err)
	}
	return true, nil
}

// EnsureNameMatching pins the catalog to one name matching mode
func (s *SQLiteStore) EnsureNameMatching(ctx context.Context, mode catalog.NameMatching) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO catalog_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING",
		metaNameMatching, string(mode)); err != nil {
		return fmt.Errorf("failed to record name matching: %w", err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx,
		"SELECT value FROM catalog_meta WHERE key = ?", metaNameMatching).Scan(&stored); err != nil {
		return fmt.Errorf("failed to read name matching: %w", err)
	}
	return checkNameMatching(stored, mode)
}

// FindOrCreateAuthor returns the author stored under key, inserting data when absent
func (s *SQLiteStore) FindOrCreateAuthor(ctx context.Context, key catalog.AuthorKey, data catalog.AuthorData) (catalog.Author, bool, error) {
	if err := validateAuthorData(data); err != nil {
		return catalog.Author{}, false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO authors (external_id, name, birth_year, death_year, identity_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO NOTHING`,
		data.ExternalID, data.Name, data.BirthYear, data.DeathYear, key.String())
	if err != nil {
		return catalog.Author{}, false, fmt.Errorf("failed to insert author %q: %w", data.Name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return catalog.Author{}, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if affected == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return catalog.Author{}, false, fmt.Errorf("failed to read author id: %w", err)
		}
		return catalog.Author{
			ID:         id,
			ExternalID: data.ExternalID,
			Name:       data.Name,
			BirthYear:  data.BirthYear,
			DeathYear:  data.DeathYear,
		}, true, nil
	}

	// Conflict: the key is already stored, return it unchanged.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, birth_year, death_year
		FROM authors WHERE identity_key = ?`, key.String())
	author, err := scanAuthor(row)
	if err != nil {
		return catalog.Author{}, false, fmt.Errorf("failed to re-read author %q: %w", data.Name, err)
	}
	return author, false, nil
}

// UpsertBook inserts the book and its child rows when absent. A stored book is never updated.
func (s *SQLiteStore) UpsertBook(ctx context.Context, book catalog.Book) (catalog.Book, bool, error) {
	if err := validateBook(book); err != nil {
		return catalog.Book{}, false, err
	}
	book = normalizeBook(book)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO books (id, title, download_count) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
		book.ID, book.Title, book.DownloadCount)
	if err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to insert book %d: %w", book.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if affected == 0 {
		// Release the connection before reading the existing row.
		_ = tx.Rollback()
		existing, err := s.GetBook(ctx, book.Key())
		if err != nil {
			return catalog.Book{}, false, fmt.Errorf("failed to re-read book %d: %w", book.ID, err)
		}
		return existing, false, nil
	}

	if err := insertChildren(ctx, tx, book); err != nil {
		return catalog.Book{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return catalog.Book{}, false, fmt.Errorf("failed to commit book %d: %w", book.ID, err)
	}
	return book, true, nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, book catalog.Book) error {
	for i, summary := range book.Summaries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_summaries (book_id, position, summary) VALUES (?, ?, ?)",
			book.ID, i, summary); err != nil {
			return fmt.Errorf("failed to insert summary for book %d: %w", book.ID, err)
		}
	}
	for i, subject := range book.Subjects {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_subjects (book_id, position, subject) VALUES (?, ?, ?)",
			book.ID, i, subject); err != nil {
			return fmt.Errorf("failed to insert subject for book %d: %w", book.ID, err)
		}
	}
	for i, lang := range book.Languages {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_languages (book_id, position, language) VALUES (?, ?, ?)",
			book.ID, i, lang); err != nil {
			return fmt.Errorf("failed to insert language for book %d: %w", book.ID, err)
		}
	}
	for i, author := range book.Authors {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_authors (book_id, author_id, position) VALUES (?, ?, ?)",
			book.ID, author.ID, i); err != nil {
			return fmt.Errorf("failed to link author %d to book %d: %w", author.ID, book.ID, err)
		}
	}
	return nil
}

// GetBook returns a single stored book with its authors
func (s *SQLiteStore) GetBook(ctx context.Context, key catalog.BookKey) (catalog.Book, error) {
	books, err := s.queryBooks(ctx, "SELECT id, title, download_count FROM books WHERE id = ?", key.Int64())
	if err != nil {
		return catalog.Book{}, err
	}
	if len(books) == 0 {
		return catalog.Book{}, fmt.Errorf("book %d: %w", key.Int64(), catalog.ErrBookNotFound)
	}
	return books[0], nil
}

// ListAllBooks returns every stored book ordered by id
func (s *SQLiteStore) ListAllBooks(ctx context.Context) ([]catalog.Book, error) {
	return s.queryBooks(ctx, "SELECT id, title, download_count FROM books ORDER BY id")
}

// AuthorBooks returns the books linked to an author, ordered by id
func (s *SQLiteStore) AuthorBooks(ctx context.Context, authorID int64) ([]catalog.Book, error) {
	return s.queryBooks(ctx, `
		SELECT b.id, b.title, b.download_count FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = ?
		ORDER BY b.id`, authorID)
}

// BooksByLanguage returns the books tagged with a language code
func (s *SQLiteStore) BooksByLanguage(ctx context.Context, lang string) ([]catalog.Book, error) {
	return s.queryBooks(ctx, `
		SELECT id, title, download_count FROM books
		WHERE id IN (SELECT book_id FROM book_languages WHERE lower(language) = lower(?))
		ORDER BY id`, lang)
}

// TopBooks returns the n most downloaded books
func (s *SQLiteStore) TopBooks(ctx context.Context, n int) ([]catalog.Book, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryBooks(ctx,
		"SELECT id, title, download_count FROM books ORDER BY download_count DESC, id LIMIT ?", n)
}

// ListAllAuthors returns every stored author in creation order
func (s *SQLiteStore) ListAllAuthors(ctx context.Context) ([]catalog.Author, error) {
	return s.queryAuthors(ctx, "SELECT id, external_id, name, birth_year, death_year FROM authors ORDER BY id")
}

// AuthorsAliveIn returns authors born on or before year who had not died before it
func (s *SQLiteStore) AuthorsAliveIn(ctx context.Context, year int) ([]catalog.Author, error) {
	return s.queryAuthors(ctx, `
		SELECT id, external_id, name, birth_year, death_year FROM authors
		WHERE birth_year IS NOT NULL AND birth_year <= ?
		  AND (death_year IS NULL OR death_year >= ?)
		ORDER BY birth_year, id`, year, year)
}

// Stats counts books, authors and book-author relations
func (s *SQLiteStore) Stats(ctx context.Context) (catalog.Stats, error) {
	var stats catalog.Stats
	err := s.db.QueryRowContext(ctx, `
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
func (s *SQLiteStore) RecordRun(ctx context.Context, run catalog.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, started_at, finished_at, records, books_created, books_skipped,
			authors_created, authors_reused, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Records, run.BooksCreated, run.BooksSkipped,
		run.AuthorsCreated, run.AuthorsReused, run.Failures, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit ledger entries, newest first
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, records, books_created, books_skipped,
			authors_created, authors_reused, failures, error
		FROM reconcile_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []catalog.Run
	for rows.Next() {
		var run catalog.Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Records, &run.BooksCreated, &run.BooksSkipped,
			&run.AuthorsCreated, &run.AuthorsReused, &run.Failures, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) queryAuthors(ctx context.Context, query string, args ...any) ([]catalog.Author, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var authors []catalog.Author
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}
	return authors, rows.Err()
}

// queryBooks runs a query selecting (id, title, download_count) and attaches child rows.
// The book rows are fully read before the children are loaded; the store has a single connection.
func (s *SQLiteStore) queryBooks(ctx context.Context, query string, args ...any) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}

	var books []catalog.Book
	for rows.Next() {
		var b catalog.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.DownloadCount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	_ = rows.Close()

	if len(books) == 0 {
		return books, nil
	}

	children := newBookChildren()
	ids := bookIDs(books)
	for start := 0; start < len(ids); start += sqliteBatchSize {
		end := min(start+sqliteBatchSize, len(ids))
		if err := s.loadChildren(ctx, ids[start:end], children); err != nil {
			return nil, err
		}
	}
	return children.attach(books), nil
}

func (s *SQLiteStore) loadChildren(ctx context.Context, ids []int64, children *bookChildren) error {
	in, args := inClause(ids)

	err := s.eachRow(ctx,
		"SELECT book_id, summary FROM book_summaries WHERE book_id IN "+in+" ORDER BY book_id, position",
		args, func(rows *sql.Rows) error {
			var id int64
			var v string
			if err := rows.Scan(&id, &v); err != nil {
				return err
			}
			children.summaries[id] = append(children.summaries[id], v)
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to load summaries: %w", err)
	}

	err = s.eachRow(ctx,
		"SELECT book_id, subject FROM book_subjects WHERE book_id IN "+in+" ORDER BY book_id, position",
		args, func(rows *sql.Rows) error {
			var id int64
			var v string
			if err := rows.Scan(&id, &v); err != nil {
				return err
			}
			children.subjects[id] = append(children.subjects[id], v)
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to load subjects: %w", err)
	}

	err = s.eachRow(ctx,
		"SELECT book_id, language FROM book_languages WHERE book_id IN "+in+" ORDER BY book_id, position",
		args, func(rows *sql.Rows) error {
			var id int64
			var v string
			if err := rows.Scan(&id, &v); err != nil {
				return err
			}
			children.languages[id] = append(children.languages[id], v)
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to load languages: %w", err)
	}

	err = s.eachRow(ctx, `
		SELECT ba.book_id, a.id, a.external_id, a.name, a.birth_year, a.death_year
		FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id IN `+in+` ORDER BY ba.book_id, ba.position`,
		args, func(rows *sql.Rows) error {
			var id int64
			var a catalog.Author
			var ext sql.NullInt64
			var birth, death sql.NullInt32
			if err := rows.Scan(&id, &a.ID, &ext, &a.Name, &birth, &death); err != nil {
				return err
			}
			a.ExternalID, a.BirthYear, a.DeathYear = nullInt64(ext), nullInt(birth), nullInt(death)
			children.authors[id] = append(children.authors[id], a)
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to load book authors: %w", err)
	}
	return nil
}

func (s *SQLiteStore) eachRow(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthor(row rowScanner) (catalog.Author, error) {
	var a catalog.Author
	var ext sql.NullInt64
	var birth, death sql.NullInt32
	if err := row.Scan(&a.ID, &ext, &a.Name, &birth, &death); err != nil {
		return catalog.Author{}, err
	}
	a.ExternalID, a.BirthYear, a.DeathYear = nullInt64(ext), nullInt(birth), nullInt(death)
	return a, nil
}

func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(placeholders, ", ") + ")", args
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
