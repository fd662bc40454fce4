package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lepinkainen/gutenshelf/internal/catalog"
	"github.com/lepinkainen/gutenshelf/internal/library"
	"github.com/lepinkainen/gutenshelf/internal/reconcile"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func printHeader(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf(format, args...)))
}

func printBooks(w io.Writer, books []catalog.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  (none)"))
		return
	}
	for _, b := range books {
		fmt.Fprintf(w, "  %s %s\n", idStyle.Render(fmt.Sprintf("#%d", b.ID)), b.Title)
		if meta := bookMeta(b); meta != "" {
			fmt.Fprintf(w, "      %s\n", dimStyle.Render(meta))
		}
	}
}

func bookMeta(b catalog.Book) string {
	var parts []string
	if len(b.Authors) > 0 {
		names := make([]string, 0, len(b.Authors))
		for _, a := range b.Authors {
			names = append(names, a.Name)
		}
		parts = append(parts, strings.Join(names, "; "))
	}
	if len(b.Languages) > 0 {
		parts = append(parts, "["+strings.Join(b.Languages, ", ")+"]")
	}
	parts = append(parts, fmt.Sprintf("%d downloads", b.DownloadCount))
	return strings.Join(parts, "  ")
}

func printBookDetail(w io.Writer, b catalog.Book) {
	printHeader(w, "%s (#%d)", b.Title, b.ID)
	fmt.Fprintf(w, "  Downloads: %d\n", b.DownloadCount)
	if len(b.Languages) > 0 {
		fmt.Fprintf(w, "  Languages: %s\n", strings.Join(b.Languages, ", "))
	}
	if len(b.Authors) > 0 {
		fmt.Fprintln(w, "  Authors:")
		for _, a := range b.Authors {
			fmt.Fprintf(w, "    - %s (%s)\n", a.Name, a.Lifespan())
		}
	}
	if len(b.Subjects) > 0 {
		fmt.Fprintln(w, "  Subjects:")
		for _, s := range b.Subjects {
			fmt.Fprintf(w, "    - %s\n", s)
		}
	}
	for _, s := range b.Summaries {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s))
	}
}

func printAuthors(w io.Writer, entries []library.AuthorEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  (none)"))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s %s (%s)\n", idStyle.Render(fmt.Sprintf("@%d", e.ID)), e.Name, e.Lifespan())
		for _, b := range e.Books {
			fmt.Fprintf(w, "      %s %s\n", idStyle.Render(fmt.Sprintf("#%d", b.ID)), b.Title)
		}
	}
}

func printRawBooks(w io.Writer, records []catalog.RawBook) {
	if len(records) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  (no results)"))
		return
	}
	for _, r := range records {
		id := "#?"
		if r.ID != nil {
			id = fmt.Sprintf("#%d", *r.ID)
		}
		fmt.Fprintf(w, "  %s %s\n", idStyle.Render(id), r.Title)

		meta := make([]string, 0, 3)
		if names := r.AuthorNames(); len(names) > 0 {
			meta = append(meta, strings.Join(names, "; "))
		}
		if len(r.Languages) > 0 {
			meta = append(meta, "["+strings.Join(r.Languages, ", ")+"]")
		}
		meta = append(meta, fmt.Sprintf("%d downloads", r.DownloadCount))
		fmt.Fprintf(w, "      %s\n", dimStyle.Render(strings.Join(meta, "  ")))
	}
}

func printReport(w io.Writer, report *reconcile.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Saved: %d new book(s), %d already stored, %d new author(s), %d reused",
		report.BooksCreated, report.BooksSkipped, report.AuthorsCreated, report.AuthorsReused)
	if n := len(report.Failures); n > 0 {
		fmt.Fprintf(w, ", %d failed", n)
	}
	fmt.Fprintln(w)
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  ! %v\n", f)
	}
}

func printStats(w io.Writer, stats catalog.Stats) {
	printHeader(w, "Catalog")
	fmt.Fprintf(w, "  Books:     %d\n", stats.Books)
	fmt.Fprintf(w, "  Authors:   %d\n", stats.Authors)
	fmt.Fprintf(w, "  Relations: %d\n", stats.Relations)
}

func printRuns(w io.Writer, runs []catalog.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  (no runs recorded)"))
		return
	}
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(w, "  %s %s  records=%d books+%d skipped=%d authors+%d reused=%d  %s\n",
			idStyle.Render(r.StartedAt.Local().Format(time.DateTime)),
			dimStyle.Render(shortID(r.ID)),
			r.Records, r.BooksCreated, r.BooksSkipped, r.AuthorsCreated, r.AuthorsReused,
			status)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
