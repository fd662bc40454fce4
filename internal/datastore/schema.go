package datastore

// SQL schemas for the catalog tables.
// Authors carry a surrogate id; identity_key holds catalog.AuthorKey.String()
// so that authors with unknown years deduplicate (UNIQUE treats NULLs as distinct).
// catalog_meta records settings the stored keys depend on, such as the name
// matching mode.

// SQLiteSchema creates the catalog tables in SQLite.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id INTEGER,
	name TEXT NOT NULL,
	birth_year INTEGER,
	death_year INTEGER,
	identity_key TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	download_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS book_summaries (
	book_id INTEGER NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	summary TEXT NOT NULL,
	PRIMARY KEY (book_id, position)
);

CREATE TABLE IF NOT EXISTS book_subjects (
	book_id INTEGER NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	subject TEXT NOT NULL,
	PRIMARY KEY (book_id, subject)
);

CREATE TABLE IF NOT EXISTS book_languages (
	book_id INTEGER NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	language TEXT NOT NULL,
	PRIMARY KEY (book_id, language)
);

CREATE TABLE IF NOT EXISTS book_authors (
	book_id INTEGER NOT NULL REFERENCES books(id),
	author_id INTEGER NOT NULL REFERENCES authors(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (book_id, author_id)
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id TEXT PRIMARY KEY NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	records INTEGER NOT NULL,
	books_created INTEGER NOT NULL,
	books_skipped INTEGER NOT NULL,
	authors_created INTEGER NOT NULL,
	authors_reused INTEGER NOT NULL,
	failures INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS catalog_meta (
	key TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_book_authors_author ON book_authors(author_id);
CREATE INDEX IF NOT EXISTS idx_book_languages_language ON book_languages(language);
CREATE INDEX IF NOT EXISTS idx_books_download_count ON books(download_count);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_started_at ON reconcile_runs(started_at);
`

// PostgresSchema creates the catalog tables in PostgreSQL.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS authors (
	id BIGSERIAL PRIMARY KEY,
	external_id BIGINT,
	name TEXT NOT NULL,
	birth_year INTEGER,
	death_year INTEGER,
	identity_key TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS books (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	download_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS book_summaries (
	book_id BIGINT NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	summary TEXT NOT NULL,
	PRIMARY KEY (book_id, position)
);

CREATE TABLE IF NOT EXISTS book_subjects (
	book_id BIGINT NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	subject TEXT NOT NULL,
	PRIMARY KEY (book_id, subject)
);

CREATE TABLE IF NOT EXISTS book_languages (
	book_id BIGINT NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	language TEXT NOT NULL,
	PRIMARY KEY (book_id, language)
);

CREATE TABLE IF NOT EXISTS book_authors (
	book_id BIGINT NOT NULL REFERENCES books(id),
	author_id BIGINT NOT NULL REFERENCES authors(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (book_id, author_id)
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	records INTEGER NOT NULL,
	books_created INTEGER NOT NULL,
	books_skipped INTEGER NOT NULL,
	authors_created INTEGER NOT NULL,
	authors_reused INTEGER NOT NULL,
	failures INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS catalog_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_book_authors_author ON book_authors(author_id);
CREATE INDEX IF NOT EXISTS idx_book_languages_language ON book_languages(language);
CREATE INDEX IF NOT EXISTS idx_books_download_count ON books(download_count);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_started_at ON reconcile_runs(started_at);
`
