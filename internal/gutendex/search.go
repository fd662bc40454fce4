package gutendex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/gutenshelf/internal/cache"
	"github.com/lepinkainen/gutenshelf/internal/catalog"
)

// Sort orders for Query.Sort.
const (
	SortPopular    = "popular"
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// Query is a Gutendex search criterion. Zero fields are omitted.
type Query struct {
	Search          string
	Languages       []string
	AuthorYearStart *int
	AuthorYearEnd   *int
	Sort            string
}

// Values encodes the query as Gutendex URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if len(q.Languages) > 0 {
		v.Set("languages", strings.Join(q.Languages, ","))
	}
	if q.AuthorYearStart != nil {
		v.Set("author_year_start", strconv.Itoa(*q.AuthorYearStart))
	}
	if q.AuthorYearEnd != nil {
		v.Set("author_year_end", strconv.Itoa(*q.AuthorYearEnd))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// page is one page of Gutendex results.
type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []catalog.RawBook `json:"results"`
}

// Search runs a query and returns the records of the first result page.
func (c *Client) Search(ctx context.Context, q Query) ([]catalog.RawBook, error) {
	endpoint := c.baseURL
	if params := q.Values().Encode(); params != "" {
		endpoint += "?" + params
	}

	result, fromCache, err := cache.GetOrFetch(c.cache, cacheTable, endpoint, c.cacheTTL, func() (page, error) {
		var p page
		err := c.getJSON(ctx, endpoint, &p)
		return p, err
	})
	if err != nil {
		return nil, err
	}

	if result.Results == nil {
		result.Results = []catalog.RawBook{}
	}
	if !fromCache && result.Next != nil {
		// Only the first page is consumed.
		slog.Debug("Gutendex results truncated to first page", "count", result.Count, "returned", len(result.Results))
	}
	return result.Results, nil
}

// SearchText searches titles and author names for text.
func (c *Client) SearchText(ctx context.Context, text string) ([]catalog.RawBook, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("search text is empty")
	}
	return c.Search(ctx, Query{Search: text})
}

// ByLanguage returns books in the given language code.
func (c *Client) ByLanguage(ctx context.Context, lang string) ([]catalog.RawBook, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil, fmt.Errorf("language code is empty")
	}
	return c.Search(ctx, Query{Languages: []string{lang}})
}

// Popular returns the most downloaded books.
func (c *Client) Popular(ctx context.Context) ([]catalog.RawBook, error) {
	return c.Search(ctx, Query{Sort: SortPopular})
}

// AuthorsAliveBetween returns books by authors alive at some point in [from, to].
func (c *Client) AuthorsAliveBetween(ctx context.Context, from, to int) ([]catalog.RawBook, error) {
	if from > to {
		return nil, fmt.Errorf("invalid year range %d-%d", from, to)
	}
	return c.Search(ctx, Query{AuthorYearStart: &from, AuthorYearEnd: &to})
}
