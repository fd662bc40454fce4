package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/datastore"
	"github.com/lepinkainen/gutenshelf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intPtr   = testutil.IntPtr
	int64Ptr = testutil.Int64Ptr
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func herbert() catalog.RawAuthor {
	return catalog.RawAuthor{Name: "Herbert, Frank", BirthYear: intPtr(1920), DeathYear: intPtr(1986)}
}

func dune() catalog.RawBook {
	return catalog.RawBook{ID: int64Ptr(1), Title: "Dune", Languages: []string{"en"}, DownloadCount: 50, Authors: []catalog.RawAuthor{herbert()}}
}

func duneMessiah() catalog.RawBook {
	return catalog.RawBook{ID: int64Ptr(2), Title: "Dune Messiah", Languages: []string{"en"}, DownloadCount: 20, Authors: []catalog.RawAuthor{herbert()}}
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *datastore.SQLiteStore) {
	t.Helper()
	store := testutil.NewMemoryStore(t)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(store, opts...), store
}

func requireStats(t *testing.T, store *datastore.SQLiteStore, want catalog.Stats) {
	t.Helper()
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, stats)
}

func TestReconcile_Scenarios(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	// A: first fetch creates book, author and relation.
	report, err := engine.Reconcile(ctx, []catalog.RawBook{dune()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BooksCreated)
	assert.Equal(t, 1, report.AuthorsCreated)
	requireStats(t, store, catalog.Stats{Books: 1, Authors: 1, Relations: 1})

	// B: the same payload again changes nothing.
	report, err = engine.Reconcile(ctx, []catalog.RawBook{dune()})
	require.NoError(t, err)
	assert.Equal(t, 0, report.BooksCreated)
	assert.Equal(t, 1, report.BooksSkipped)
	assert.Equal(t, 1, report.AuthorsReused)
	requireStats(t, store, catalog.Stats{Books: 1, Authors: 1, Relations: 1})

	// C: a new book by the same author reuses the stored author.
	report, err = engine.Reconcile(ctx, []catalog.RawBook{duneMessiah()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BooksCreated)
	assert.Equal(t, 0, report.AuthorsCreated)
	requireStats(t, store, catalog.Stats{Books: 2, Authors: 1, Relations: 2})

	// D: a record without an id fails on its own and adds no book.
	report, err = engine.Reconcile(ctx, []catalog.RawBook{{Title: "No id", Authors: []catalog.RawAuthor{herbert()}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrMissingBookID)
	assert.True(t, catalog.IsRecordError(err))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 0, report.Failures[0].Index)
	requireStats(t, store, catalog.Stats{Books: 2, Authors: 1, Relations: 2})
}

func TestReconcile_NonOverwrite(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	first := catalog.RawBook{ID: int64Ptr(100), Title: "Stable", DownloadCount: 50}
	_, err := engine.Reconcile(ctx, []catalog.RawBook{first})
	require.NoError(t, err)

	refetched := catalog.RawBook{ID: int64Ptr(100), Title: "Stable (new edition)", DownloadCount: 75}
	report, err := engine.Reconcile(ctx, []catalog.RawBook{refetched})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BooksSkipped)

	// The caller still receives the fetched record.
	require.Len(t, report.Records, 1)
	assert.Equal(t, 75, report.Records[0].DownloadCount)

	// The stored row is untouched.
	book, err := store.GetBook(ctx, catalog.ResolveBookKey(100))
	require.NoError(t, err)
	assert.Equal(t, 50, book.DownloadCount)
	assert.Equal(t, "Stable", book.Title)
	require.Len(t, report.Books, 1)
	assert.Equal(t, 50, report.Books[0].DownloadCount)
}

func TestReconcile_IdentityEquivalenceAcrossCalls(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	a := herbert()
	a.ID = int64Ptr(7)
	b := herbert()
	b.ID = int64Ptr(8)

	_, err := engine.Reconcile(ctx, []catalog.RawBook{{ID: int64Ptr(1), Title: "Dune", Authors: []catalog.RawAuthor{a}}})
	require.NoError(t, err)
	_, err = engine.Reconcile(ctx, []catalog.RawBook{{ID: int64Ptr(2), Title: "Children of Dune", Authors: []catalog.RawAuthor{b}}})
	require.NoError(t, err)

	authors, err := store.ListAllAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	require.NotNil(t, authors[0].ExternalID)
	assert.Equal(t, int64(7), *authors[0].ExternalID, "first-seen data is kept")
}

func TestReconcile_RelationIntegrity(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	raw := catalog.RawBook{
		ID:    int64Ptr(10),
		Title: "Good Omens",
		Authors: []catalog.RawAuthor{
			{Name: "Pratchett, Terry", BirthYear: intPtr(1948), DeathYear: intPtr(2015)},
			{Name: "Gaiman, Neil", BirthYear: intPtr(1960)},
		},
	}
	_, err := engine.Reconcile(ctx, []catalog.RawBook{raw})
	require.NoError(t, err)

	book, err := store.GetBook(ctx, catalog.ResolveBookKey(10))
	require.NoError(t, err)
	require.Len(t, book.Authors, 2)
	assert.Equal(t, "Pratchett, Terry", book.Authors[0].Name)
	assert.Equal(t, "Gaiman, Neil", book.Authors[1].Name)

	for _, author := range book.Authors {
		books, err := store.AuthorBooks(ctx, author.ID)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, int64(10), books[0].ID)
	}
}

func TestReconcile_RepeatedAuthorInRecord(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	raw := dune()
	raw.Authors = append(raw.Authors, herbert())

	report, err := engine.Reconcile(ctx, []catalog.RawBook{raw})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AuthorsCreated)
	assert.Equal(t, 1, report.AuthorsReused)
	requireStats(t, store, catalog.Stats{Books: 1, Authors: 1, Relations: 1})
}

func TestReconcile_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	records := []catalog.RawBook{
		dune(),
		{ID: int64Ptr(3), Title: "Nameless", Authors: []catalog.RawAuthor{{Name: "  "}}},
		{ID: int64Ptr(4), Title: "Negative", DownloadCount: -1},
		duneMessiah(),
	}

	report, err := engine.Reconcile(ctx, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrMissingAuthorName)
	assert.ErrorIs(t, err, catalog.ErrInvalidDownloadCount)
	assert.Len(t, report.Records, 4)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Equal(t, 2, report.Failures[1].Index)
	assert.Equal(t, 2, report.BooksCreated)
	requireStats(t, store, catalog.Stats{Books: 2, Authors: 1, Relations: 2})
}

func TestReconcile_NilAuthorsStoresBookWithoutRelations(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	_, err := engine.Reconcile(ctx, []catalog.RawBook{{ID: int64Ptr(5), Title: "Anonymous work"}})
	require.NoError(t, err)

	book, err := store.GetBook(ctx, catalog.ResolveBookKey(5))
	require.NoError(t, err)
	assert.Empty(t, book.Authors)
	assert.Nil(t, book.Subjects)
}

func TestReconcile_FoldedNameMatching(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, WithResolver(catalog.NewResolver(catalog.MatchFolded)))

	_, err := engine.Reconcile(ctx, []catalog.RawBook{
		{ID: int64Ptr(1), Title: "Jane Eyre", Authors: []catalog.RawAuthor{{Name: "Brontë, Charlotte", BirthYear: intPtr(1816), DeathYear: intPtr(1855)}}},
		{ID: int64Ptr(2), Title: "Villette", Authors: []catalog.RawAuthor{{Name: "BRONTE,  Charlotte", BirthYear: intPtr(1816), DeathYear: intPtr(1855)}}},
	})
	require.NoError(t, err)

	authors, err := store.ListAllAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Brontë, Charlotte", authors[0].Name)
}

func TestReconcile_ExactNameMatchingIsDefault(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t)

	_, err := engine.Reconcile(ctx, []catalog.RawBook{
		{ID: int64Ptr(1), Title: "Jane Eyre", Authors: []catalog.RawAuthor{{Name: "Brontë, Charlotte", BirthYear: intPtr(1816)}}},
		{ID: int64Ptr(2), Title: "Villette", Authors: []catalog.RawAuthor{{Name: "Bronte, Charlotte", BirthYear: intPtr(1816)}}},
	})
	require.NoError(t, err)
	requireStats(t, store, catalog.Stats{Books: 2, Authors: 2, Relations: 2})
}

func TestReconcile_SwitchingNameMatchingIsRefused(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)

	require.NoError(t, store.EnsureNameMatching(ctx, catalog.MatchExact))
	exact := New(store, WithLogger(quietLogger()))
	_, err := exact.Reconcile(ctx, []catalog.RawBook{dune()})
	require.NoError(t, err)

	// Folded keys differ from the stored exact ones, so the store must refuse the switch.
	err = store.EnsureNameMatching(ctx, catalog.MatchFolded)
	require.ErrorIs(t, err, catalog.ErrNameMatchingMismatch)

	again := New(store, WithLogger(quietLogger()))
	report, err := again.Reconcile(ctx, []catalog.RawBook{dune(), duneMessiah()})
	require.NoError(t, err)
	assert.Equal(t, 0, report.AuthorsCreated)
	requireStats(t, store, catalog.Stats{Books: 2, Authors: 1, Relations: 2})
}

func TestReconcile_RecordsRun(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	engine := New(store, WithLogger(quietLogger()), WithRunLog(store))

	report, err := engine.Reconcile(ctx, []catalog.RawBook{dune(), {Title: "broken"}})
	require.Error(t, err)

	runs, err := store.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID.String(), runs[0].ID)
	assert.Equal(t, 2, runs[0].Records)
	assert.Equal(t, 1, runs[0].BooksCreated)
	assert.Equal(t, 1, runs[0].Failures)
	assert.Contains(t, runs[0].Error, "book record has no id")
}

type failingRunLog struct{ calls int }

func (f *failingRunLog) RecordRun(context.Context, catalog.Run) error {
	f.calls++
	return errors.New("ledger offline")
}

func TestReconcile_RunLogFailureIsNotReturned(t *testing.T) {
	runs := &failingRunLog{}
	engine, _ := newEngine(t, WithRunLog(runs))

	_, err := engine.Reconcile(context.Background(), []catalog.RawBook{dune()})
	require.NoError(t, err)
	assert.Equal(t, 1, runs.calls)
}

func TestReconcile_CancelledContext(t *testing.T) {
	engine, store := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := engine.Reconcile(ctx, []catalog.RawBook{dune()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Records, 1)
	requireStats(t, store, catalog.Stats{})
}

// flakyStore fails author creation for one name.
type flakyStore struct {
	catalog.Store
	failName string
}

func (s *flakyStore) FindOrCreateAuthor(ctx context.Context, key catalog.AuthorKey, data catalog.AuthorData) (catalog.Author, bool, error) {
	if data.Name == s.failName {
		return catalog.Author{}, false, errors.New("constraint violated")
	}
	return s.Store.FindOrCreateAuthor(ctx, key, data)
}

func TestReconcile_AuthorFailureSkipsBook(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	engine := New(&flakyStore{Store: store, failName: "Herbert, Frank"}, WithLogger(quietLogger()))

	report, err := engine.Reconcile(ctx, []catalog.RawBook{
		dune(),
		{ID: int64Ptr(9), Title: "Other", Authors: []catalog.RawAuthor{{Name: "Someone Else"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violated")
	require.Len(t, report.Failures, 1)
	require.NotNil(t, report.Failures[0].BookID)
	assert.Equal(t, int64(1), *report.Failures[0].BookID)

	exists, err := store.BookExists(ctx, catalog.ResolveBookKey(1))
	require.NoError(t, err)
	assert.False(t, exists)
	requireStats(t, store, catalog.Stats{Books: 1, Authors: 1, Relations: 1})
}
