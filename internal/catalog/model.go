// Package catalog defines the book and author model of the local catalog,
// the identity rules that decide when two records denote the same entity,
// and the storage contract the reconciliation engine writes through.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// RawAuthor is an author sub-record exactly as the remote source delivered it.
type RawAuthor struct {
	ID        *int64 `json:"id,omitempty"`
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

// RawBook is a book record exactly as the remote source delivered it.
// Nil slices mean the source did not report that collection.
type RawBook struct {
	ID            *int64      `json:"id"`
	Title         string      `json:"title"`
	Summaries     []string    `json:"summaries"`
	Subjects      []string    `json:"subjects"`
	Languages     []string    `json:"languages"`
	DownloadCount int         `json:"download_count"`
	Authors       []RawAuthor `json:"authors"`
}

// Validate reports the first required field the record is missing.
func (r RawBook) Validate() error {
	if r.ID == nil {
		return ErrMissingBookID
	}
	if r.DownloadCount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDownloadCount, r.DownloadCount)
	}
	for i, a := range r.Authors {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("author #%d: %w", i+1, ErrMissingAuthorName)
		}
	}
	return nil
}

// AuthorNames returns the author names in source order.
func (r RawBook) AuthorNames() []string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.Name)
	}
	return names
}

// Data returns the payload used to create the author on first encounter.
func (a RawAuthor) Data() AuthorData {
	return AuthorData{
		ExternalID: a.ID,
		Name:       a.Name,
		BirthYear:  a.BirthYear,
		DeathYear:  a.DeathYear,
	}
}

// AuthorData holds the attributes an author is created with.
type AuthorData struct {
	ExternalID *int64
	Name       string
	BirthYear  *int
	DeathYear  *int
}

// Author is a stored, deduplicated author. ID is assigned by the catalog.
type Author struct {
	ID         int64  `json:"id"`
	ExternalID *int64 `json:"external_id,omitempty"`
	Name       string `json:"name"`
	BirthYear  *int   `json:"birth_year,omitempty"`
	DeathYear  *int   `json:"death_year,omitempty"`
}

// AliveIn reports whether the author is known to have been alive in year.
// An unknown birth year never matches.
func (a Author) AliveIn(year int) bool {
	if a.BirthYear == nil || *a.BirthYear > year {
		return false
	}
	return a.DeathYear == nil || *a.DeathYear >= year
}

// Lifespan renders the years as "1920-1986", "1920-" or "?".
func (a Author) Lifespan() string {
	if a.BirthYear == nil && a.DeathYear == nil {
		return "?"
	}
	return yearOrUnknown(a.BirthYear) + "-" + yearOrEmpty(a.DeathYear)
}

// Book is a stored book. Authors always reference stored authors.
type Book struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Summaries     []string `json:"summaries,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	DownloadCount int      `json:"download_count"`
	Authors       []Author `json:"authors,omitempty"`
}

// Key returns the identity key of the book.
func (b Book) Key() BookKey {
	return ResolveBookKey(b.ID)
}

// HasLanguage reports whether lang is one of the book's language codes.
func (b Book) HasLanguage(lang string) bool {
	for _, l := range b.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// Stats summarises the size of the catalog.
type Stats struct {
	Books     int `json:"books"`
	Authors   int `json:"authors"`
	Relations int `json:"relations"`
}

// Run is the ledger entry of one reconciliation call.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Records        int
	BooksCreated   int
	BooksSkipped   int
	AuthorsCreated int
	AuthorsReused  int
	Failures       int
	Error          string
}

func yearOrUnknown(y *int) string {
	if y == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *y)
}

func yearOrEmpty(y *int) string {
	if y == nil {
		return ""
	}
	return fmt.Sprintf("%d", *y)
}
