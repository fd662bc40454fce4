// Package export writes the stored catalog to disk as a JSON snapshot or as
// one Obsidian markdown note per book.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/fileutil"
	"github.com/lepinkainen/gutenshelf/internal/obsidian"
)

const ebookURL = "https://www.gutenberg.org/ebooks/"

// Catalog is the read side the exporters need.
type Catalog interface {
	ListAllBooks(ctx context.Context) ([]catalog.Book, error)
	ListAllAuthors(ctx context.Context) ([]catalog.Author, error)
}

// Snapshot is the JSON export document.
type Snapshot struct {
	ExportedAt time.Time        `json:"exported_at"`
	Books      []catalog.Book   `json:"books"`
	Authors    []catalog.Author `json:"authors"`
}

// Result counts the files an export produced.
type Result struct {
	Written int
	Skipped int
}

var now = time.Now

// JSON writes a snapshot of every stored book and author to path.
func JSON(ctx context.Context, c Catalog, path string, overwrite bool) (Result, error) {
	books, err := c.ListAllBooks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list books: %w", err)
	}
	authors, err := c.ListAllAuthors(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list authors: %w", err)
	}

	snap := Snapshot{
		ExportedAt: now().UTC(),
		Books:      books,
		Authors:    authors,
	}
	if snap.Books == nil {
		snap.Books = []catalog.Book{}
	}
	if snap.Authors == nil {
		snap.Authors = []catalog.Author{}
	}

	written, err := fileutil.WriteJSONFile(snap, path, overwrite)
	if err != nil {
		return Result{}, err
	}
	if !written {
		return Result{Skipped: 1}, nil
	}
	return Result{Written: 1}, nil
}

// Markdown writes one note per stored book into dir. Existing notes are kept
// unless overwrite is set.
func Markdown(ctx context.Context, c Catalog, dir string, overwrite bool) (Result, error) {
	books, err := c.ListAllBooks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list books: %w", err)
	}

	var res Result
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		content, err := BookNote(book).Build()
		if err != nil {
			return res, fmt.Errorf("build note for book %d: %w", book.ID, err)
		}

		path := fileutil.BookNotePath(book.Title, book.ID, dir)
		written, err := fileutil.WriteFileWithOverwrite(path, content, 0o644, overwrite)
		if err != nil {
			return res, fmt.Errorf("write note for book %d: %w", book.ID, err)
		}
		if !written {
			slog.Debug("Note exists, skipping", "book_id", book.ID, "path", path)
			res.Skipped++
			continue
		}
		res.Written++
	}

	slog.Info("Markdown export finished", "dir", dir, "written", res.Written, "skipped", res.Skipped)
	return res, nil
}

// BookNote renders a stored book as a note.
func BookNote(book catalog.Book) *obsidian.Note {
	note := obsidian.NewNote(book.Title, noteBody(book))
	fm := note.Frontmatter

	fm.Set("gutenberg_id", book.ID)
	fm.Set("download_count", book.DownloadCount)
	fm.Set("url", ebookURL+strconv.FormatInt(book.ID, 10))
	fm.SetStrings("languages", book.Languages)

	names := make([]string, 0, len(book.Authors))
	for _, a := range book.Authors {
		names = append(names, a.Name)
	}
	fm.SetStrings("authors", names)

	tags := obsidian.NewTagSet()
	tags.Add("gutenberg")
	for _, subject := range book.Subjects {
		tags.AddSubject("subject", subject)
	}
	for _, lang := range book.Languages {
		tags.Add("lang/" + lang)
	}
	fm.Set("tags", tags.GetSorted())

	return note
}

func noteBody(book catalog.Book) string {
	var b strings.Builder

	for _, s := range book.Summaries {
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n\n")
	}

	if len(book.Authors) > 0 {
		b.WriteString("## Authors\n\n")
		for _, a := range book.Authors {
			fmt.Fprintf(&b, "- %s (%s)\n", a.Name, a.Lifespan())
		}
		b.WriteString("\n")
	}

	if len(book.Subjects) > 0 {
		b.WriteString("## Subjects\n\n")
		for _, s := range book.Subjects {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return b.String()
}
