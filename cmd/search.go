package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	apperrors "github.com/lepinkainen/gutenshelf/internal/errors"
	"github.com/lepinkainen/gutenshelf/internal/library"
)

// SearchCmd groups the remote catalog searches
type SearchCmd struct {
	Title    SearchTitleCmd    `cmd:"" help:"Find a book by title and store it"`
	Author   SearchAuthorCmd   `cmd:"" help:"Find books by author and store all of them"`
	Language SearchLanguageCmd `cmd:"" help:"List remote books in a language"`
	Top      SearchTopCmd      `cmd:"" help:"List the most downloaded remote books"`
	Alive    SearchAliveCmd    `cmd:"" help:"List remote books by authors alive in a year range"`
}

// SearchTitleCmd represents the search title command
type SearchTitleCmd struct {
	Title       string `arg:"" help:"Title to search for"`
	Interactive bool   `short:"i" help:"Pick from the results when no title matches exactly"`
}

// SearchAuthorCmd represents the search author command
type SearchAuthorCmd struct {
	Name string `arg:"" help:"Author name to search for"`
}

// SearchLanguageCmd represents the search language command
type SearchLanguageCmd struct {
	Code string `arg:"" help:"Two-letter language code, e.g. fi"`
	Save bool   `help:"Also merge the results into the local catalog"`
}

// SearchTopCmd represents the search top command
type SearchTopCmd struct {
	Limit int  `short:"n" help:"Number of books to show" default:"10"`
	Save  bool `help:"Also merge the results into the local catalog"`
}

// SearchAliveCmd represents the search alive command
type SearchAliveCmd struct {
	From int  `help:"First year of the range" required:""`
	To   int  `help:"Last year of the range" required:""`
	Save bool `help:"Also merge the results into the local catalog"`
}

func (s *SearchTitleCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		var choose library.Chooser
		if s.Interactive {
			choose = a.choose
		}

		result, err := a.service.FindByTitle(ctx, s.Title, choose)
		if apperrors.IsStopProcessingError(err) {
			slog.Info("Selection stopped")
			return nil
		}
		if result == nil {
			return err
		}

		if result.Match == nil {
			printHeader(stdout, "No exact match for %q", s.Title)
			printRawBooks(stdout, result.Candidates)
			return err
		}

		if result.Stored != nil {
			printBookDetail(stdout, *result.Stored)
		} else {
			printRawBooks(stdout, []catalog.RawBook{*result.Match})
		}
		printReport(stdout, result.Report)
		return err
	})
}

func (s *SearchAuthorCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		report, err := a.service.SearchByAuthor(ctx, s.Name)
		if report == nil {
			return err
		}

		printHeader(stdout, "Books found for %q", s.Name)
		printRawBooks(stdout, report.Records)
		printReport(stdout, report)
		return err
	})
}

func (s *SearchLanguageCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		result, err := a.service.RemoteByLanguage(ctx, s.Code, s.Save)
		return printRemote(result, err, "Remote books in %q", s.Code)
	})
}

func (s *SearchTopCmd) Run(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		result, err := a.service.RemoteTopDownloaded(ctx, s.Limit, s.Save)
		return printRemote(result, err, "Top %d remote books", s.Limit)
	})
}

func (s *SearchAliveCmd) Run(ctx context.Context) error {
	if s.From > s.To {
		return fmt.Errorf("--from (%d) must not be after --to (%d)", s.From, s.To)
	}
	return withApp(ctx, func(a *app) error {
		result, err := a.service.RemoteAuthorsAliveBetween(ctx, s.From, s.To, s.Save)
		return printRemote(result, err, "Remote books by authors alive %d-%d", s.From, s.To)
	})
}

func printRemote(result *library.RemoteResult, err error, format string, args ...any) error {
	if result == nil {
		return err
	}
	printHeader(stdout, format, args...)
	printRawBooks(stdout, result.Records)
	printReport(stdout, result.Report)
	return err
}
