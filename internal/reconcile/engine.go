// Package reconcile merges freshly fetched book records into the catalog.
//
// Each record is processed in two phases: its authors are resolved to
// stored entities first, then the book is written referencing those
// entities. A book whose id is already stored is left untouched.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/gutenshelf/internal/catalog"
)

// RunLog persists one ledger entry per reconciliation call.
type RunLog interface {
	RecordRun(ctx context.Context, run catalog.Run) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the identity resolver. The default matches names exactly.
func WithResolver(r catalog.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithRunLog records every call in the given ledger.
func WithRunLog(runs RunLog) Option {
	return func(e *Engine) {
		e.runs = runs
	}
}

// WithLogger sets the logger used for progress and ledger failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine reconciles raw records against a catalog.Store.
type Engine struct {
	store    catalog.Store
	resolver catalog.Resolver
	runs     RunLog
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine writing through store.
func New(store catalog.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report describes the outcome of one Reconcile call.
type Report struct {
	RunID uuid.UUID
	// Records is the full input sequence, persisted or not.
	Records []catalog.RawBook
	// Books holds the stored entity for every record that was resolved,
	// whether created by this call or already present.
	Books          []catalog.Book
	BooksCreated   int
	BooksSkipped   int
	AuthorsCreated int
	AuthorsReused  int
	Failures       []*catalog.RecordError
}

// Err joins the record failures, nil when every record succeeded.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Reconcile merges records into the catalog. A failing record is reported
// and skipped; the remaining records are still processed. The returned
// error joins every record failure and is accompanied by the full report.
// Cancelling ctx stops processing; records after that point are not persisted.
func (e *Engine) Reconcile(ctx context.Context, records []catalog.RawBook) (*Report, error) {
	started := e.now()
	report := &Report{
		RunID:   uuid.New(),
		Records: records,
	}
	logger := e.logger.With("run_id", report.RunID.String())

	var ctxErr error
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		if err := e.reconcileRecord(ctx, report, raw); err != nil {
			recErr := &catalog.RecordError{Index: i, BookID: raw.ID, Title: raw.Title, Err: err}
			report.Failures = append(report.Failures, recErr)
			logger.Warn("Skipping record", "index", i, "title", raw.Title, "error", err)
		}
	}

	err := errors.Join(report.Err(), ctxErr)

	logger.Debug("Reconciliation finished",
		"records", len(records),
		"books_created", report.BooksCreated,
		"books_skipped", report.BooksSkipped,
		"authors_created", report.AuthorsCreated,
		"authors_reused", report.AuthorsReused,
		"failures", len(report.Failures))

	e.recordRun(ctx, logger, report, started, err)
	return report, err
}

func (e *Engine) reconcileRecord(ctx context.Context, report *Report, raw catalog.RawBook) error {
	if err := raw.Validate(); err != nil {
		return err
	}

	// Phase 1: every author becomes a stored entity before the book is touched.
	authors, err := e.resolveAuthors(ctx, report, raw.Authors)
	if err != nil {
		return err
	}

	// Phase 2: the book, only when its id is not stored yet.
	key := e.resolver.BookKey(*raw.ID)
	exists, err := e.store.BookExists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		report.BooksSkipped++
		e.logger.Debug("Book already stored", "book_id", key.Int64())
		if stored, ok := e.storedBook(ctx, key); ok {
			report.Books = append(report.Books, stored)
		}
		return nil
	}

	stored, created, err := e.store.UpsertBook(ctx, buildBook(raw, authors))
	if err != nil {
		return err
	}
	if created {
		report.BooksCreated++
		e.logger.Debug("Book stored", "book_id", stored.ID, "title", stored.Title)
	} else {
		report.BooksSkipped++
	}
	report.Books = append(report.Books, stored)
	return nil
}

// resolveAuthors returns the stored authors in source order, each at most once.
func (e *Engine) resolveAuthors(ctx context.Context, report *Report, raws []catalog.RawAuthor) ([]catalog.Author, error) {
	if raws == nil {
		return nil, nil
	}

	authors := make([]catalog.Author, 0, len(raws))
	seen := make(map[int64]bool, len(raws))
	for _, raw := range raws {
		key := e.resolver.AuthorKey(raw.Name, raw.BirthYear, raw.DeathYear)
		author, created, err := e.store.FindOrCreateAuthor(ctx, key, raw.Data())
		if err != nil {
			return nil, err
		}
		if created {
			report.AuthorsCreated++
			e.logger.Debug("Author stored", "author", author.Name, "author_id", author.ID)
		} else {
			report.AuthorsReused++
		}
		if !seen[author.ID] {
			seen[author.ID] = true
			authors = append(authors, author)
		}
	}
	return authors, nil
}

// storedBook reads the existing entity when the store exposes single-book reads.
func (e *Engine) storedBook(ctx context.Context, key catalog.BookKey) (catalog.Book, bool) {
	getter, ok := e.store.(interface {
		GetBook(context.Context, catalog.BookKey) (catalog.Book, error)
	})
	if !ok {
		return catalog.Book{}, false
	}
	book, err := getter.GetBook(ctx, key)
	if err != nil {
		e.logger.Debug("Could not read stored book", "book_id", key.Int64(), "error", err)
		return catalog.Book{}, false
	}
	return book, true
}

func (e *Engine) recordRun(ctx context.Context, logger *slog.Logger, report *Report, started time.Time, runErr error) {
	if e.runs == nil {
		return
	}

	run := catalog.Run{
		ID:             report.RunID.String(),
		StartedAt:      started,
		FinishedAt:     e.now(),
		Records:        len(report.Records),
		BooksCreated:   report.BooksCreated,
		BooksSkipped:   report.BooksSkipped,
		AuthorsCreated: report.AuthorsCreated,
		AuthorsReused:  report.AuthorsReused,
		Failures:       len(report.Failures),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// The ledger write must not be lost to a cancelled request.
	if err := e.runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record reconciliation run", "error", err)
	}
}

func buildBook(raw catalog.RawBook, authors []catalog.Author) catalog.Book {
	return catalog.Book{
		ID:            *raw.ID,
		Title:         raw.Title,
		Summaries:     cloneStrings(raw.Summaries),
		Subjects:      cloneStrings(raw.Subjects),
		Languages:     cloneStrings(raw.Languages),
		DownloadCount: raw.DownloadCount,
		Authors:       authors,
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
