package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/library"
)

// BooksCmd represents the books command
type BooksCmd struct {
	Language string `short:"l" help:"Only books in this language code"`
	Top      int    `help:"Only the N most downloaded books"`
}

// BookCmd represents the book command
type BookCmd struct {
	ID int64 `arg:"" help:"Project Gutenberg book id"`
}

// AuthorsCmd represents the authors command
type AuthorsCmd struct {
	AliveIn *int `help:"Only authors alive in this year"`
}

// StatsCmd represents the stats command
type StatsCmd struct{}

// HistoryCmd represents the history command
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"10"`
}

func (b *BooksCmd) Run(ctx context.Context) error {
	if b.Language != "" && b.Top > 0 {
		return fmt.Errorf("--language and --top cannot be combined")
	}

	return withApp(ctx, func(a *app) error {
		var (
			books []catalog.Book
			err   error
		)
		switch {
		case b.Language != "":
			books, err = a.service.BooksInLanguage(ctx, b.Language)
			printHeader(stdout, "Stored books in %q", b.Language)
		case b.Top > 0:
			books, err = a.service.TopDownloaded(ctx, b.Top)
			printHeader(stdout, "Top %d stored books", b.Top)
		default:
			books, err = a.service.Books(ctx)
			printHeader(stdout, "Stored books")
		}
		if err != nil {
			return err
		}
		printBooks(stdout, books)
		return nil
	})
}

func (b *BookCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		book, err := a.service.Book(ctx, b.ID)
		if errors.Is(err, catalog.ErrBookNotFound) {
			return fmt.Errorf("book %d is not in the local catalog", b.ID)
		}
		if err != nil {
			return err
		}

		printBookDetail(stdout, book)
		for _, author := range book.Authors {
			others, err := a.service.AuthorBooks(ctx, author.ID)
			if err != nil {
				return err
			}
			others = without(others, book.ID)
			if len(others) == 0 {
				continue
			}
			fmt.Fprintln(stdout)
			printHeader(stdout, "Also by %s", author.Name)
			printBooks(stdout, others)
		}
		return nil
	})
}

func without(books []catalog.Book, id int64) []catalog.Book {
	out := make([]catalog.Book, 0, len(books))
	for _, b := range books {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

func (c *AuthorsCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		var (
			entries []library.AuthorEntry
			err     error
		)
		if c.AliveIn != nil {
			entries, err = a.service.AuthorsAliveIn(ctx, *c.AliveIn)
			printHeader(stdout, "Stored authors alive in %d", *c.AliveIn)
		} else {
			entries, err = a.service.AuthorsWithBooks(ctx)
			printHeader(stdout, "Stored authors")
		}
		if err != nil {
			return err
		}
		printAuthors(stdout, entries)
		return nil
	})
}

func (s *StatsCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		stats, err := a.service.Stats(ctx)
		if err != nil {
			return err
		}
		printStats(stdout, stats)
		return nil
	})
}

func (h *HistoryCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		runs, err := a.store.RecentRuns(ctx, h.Limit)
		if err != nil {
			return err
		}
		printHeader(stdout, "Recent reconciliation runs")
		printRuns(stdout, runs)
		return nil
	})
}
