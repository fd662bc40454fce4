package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/reconcile"
)

// TitleResult is the outcome of FindByTitle.
type TitleResult struct {
	// Candidates are all records returned by the source.
	Candidates []catalog.RawBook
	// Match is the selected record, nil when nothing matched or was chosen.
	Match *catalog.RawBook
	// Stored is the catalog entity of Match once reconciled.
	Stored *catalog.Book
	Report *reconcile.Report
}

// FindByTitle searches the source and reconciles the first candidate whose
// title equals title ignoring case. Without such a candidate, choose (if
// non-nil) may pick one of the candidates instead.
func (s *Service) FindByTitle(ctx context.Context, title string, choose Chooser) (*TitleResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is empty")
	}

	candidates, err := s.source.SearchText(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	result := &TitleResult{Candidates: candidates}

	match, ok := exactTitle(candidates, title)
	if !ok && choose != nil && len(candidates) > 0 {
		match, ok, err = choose(title, candidates)
		if err != nil {
			return result, err
		}
	}
	if !ok {
		s.logger.Debug("No title match", "title", title, "candidates", len(candidates))
		return result, nil
	}
	result.Match = &match

	report, err := s.reconciler.Reconcile(ctx, []catalog.RawBook{match})
	result.Report = report
	if report != nil && len(report.Books) == 1 {
		result.Stored = &report.Books[0]
	}
	return result, err
}

func exactTitle(candidates []catalog.RawBook, title string) (catalog.RawBook, bool) {
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Title), title) {
			return c, true
		}
	}
	return catalog.RawBook{}, false
}

// SearchByAuthor searches the source for name and reconciles every result.
// The full fetched sequence is returned even when some records fail.
func (s *Service) SearchByAuthor(ctx context.Context, name string) (*reconcile.Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("author name is empty")
	}

	records, err := s.source.SearchText(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search author %q: %w", name, err)
	}
	return s.reconciler.Reconcile(ctx, records)
}

// RemoteResult holds the records of a remote query and, when persisted, the report.
type RemoteResult struct {
	Records []catalog.RawBook
	Report  *reconcile.Report
}

// RemoteByLanguage lists remote books in lang. persist reconciles them too.
func (s *Service) RemoteByLanguage(ctx context.Context, lang string, persist bool) (*RemoteResult, error) {
	records, err := s.source.ByLanguage(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("search language %q: %w", lang, err)
	}
	return s.remote(ctx, records, persist)
}

// RemoteTopDownloaded lists the n most downloaded remote books.
func (s *Service) RemoteTopDownloaded(ctx context.Context, n int, persist bool) (*RemoteResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", n)
	}
	records, err := s.source.Popular(ctx)
	if err != nil {
		return nil, fmt.Errorf("search popular: %w", err)
	}
	if len(records) > n {
		records = records[:n]
	}
	return s.remote(ctx, records, persist)
}

// RemoteAuthorsAliveBetween lists remote books by authors alive within [from, to].
func (s *Service) RemoteAuthorsAliveBetween(ctx context.Context, from, to int, persist bool) (*RemoteResult, error) {
	records, err := s.source.AuthorsAliveBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("search authors alive %d-%d: %w", from, to, err)
	}
	return s.remote(ctx, records, persist)
}

func (s *Service) remote(ctx context.Context, records []catalog.RawBook, persist bool) (*RemoteResult, error) {
	result := &RemoteResult{Records: records}
	if !persist {
		return result, nil
	}
	report, err := s.reconciler.Reconcile(ctx, records)
	result.Report = report
	return result, err
}
