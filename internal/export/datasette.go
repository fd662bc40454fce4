package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/lepinkainen/gutenshelf/internal/catalog"
	apperrors "github.com/lepinkainen/gutenshelf/internal/errors"
)

// DefaultDatasetteDatabase is the database rows are published into.
const DefaultDatasetteDatabase = "gutenshelf"

// datasetteBatch is the row limit of a single write API call.
const datasetteBatch = 100

// DatasetteClient publishes catalog rows through the Datasette JSON write API.
type DatasetteClient struct {
	baseURL  string
	apiToken string
	database string
	client   *http.Client
}

// NewDatasetteClient creates a client for the instance at baseURL.
func NewDatasetteClient(baseURL, apiToken, database string) (*DatasetteClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Datasette URL %q", baseURL)
	}
	if database == "" {
		database = DefaultDatasetteDatabase
	}

	return &DatasetteClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		database: database,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Upsert creates table if needed and writes rows, replacing rows with the
// same primary key.
func (c *DatasetteClient) Upsert(ctx context.Context, table string, pk []string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += datasetteBatch {
		end := min(start+datasetteBatch, len(rows))
		if err := c.create(ctx, table, pk, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *DatasetteClient) create(ctx context.Context, table string, pk []string, rows []map[string]any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, c.database, "-", "create")

	payload := map[string]any{
		"table":   table,
		"rows":    rows,
		"replace": true,
	}
	if len(pk) == 1 {
		payload["pk"] = pk[0]
	} else {
		payload["pks"] = pk
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewSourceError("Datasette", resp.StatusCode, u.String(), string(bytes.TrimSpace(snippet)))
	}
	return nil
}

// Datasette publishes the stored catalog as the tables books, authors,
// book_authors, book_subjects and book_languages.
func Datasette(ctx context.Context, c Catalog, client *DatasetteClient) (map[string]int, error) {
	books, err := c.ListAllBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	authors, err := c.ListAllAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	tables := datasetteTables(books, authors)
	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		if len(t.rows) == 0 {
			continue
		}
		if err := client.Upsert(ctx, t.name, t.pk, t.rows); err != nil {
			return counts, fmt.Errorf("publish %s: %w", t.name, err)
		}
		counts[t.name] = len(t.rows)
		slog.Info("Published table", "table", t.name, "rows", len(t.rows))
	}
	return counts, nil
}

type datasetteTable struct {
	name string
	pk   []string
	rows []map[string]any
}

func datasetteTables(books []catalog.Book, authors []catalog.Author) []datasetteTable {
	authorRows := make([]map[string]any, 0, len(authors))
	for _, a := range authors {
		authorRows = append(authorRows, map[string]any{
			"id":          a.ID,
			"external_id": a.ExternalID,
			"name":        a.Name,
			"birth_year":  a.BirthYear,
			"death_year":  a.DeathYear,
		})
	}

	var bookRows, links, subjects, languages []map[string]any
	for _, b := range books {
		var summary any
		if len(b.Summaries) > 0 {
			summary = b.Summaries[0]
		}
		bookRows = append(bookRows, map[string]any{
			"id":             b.ID,
			"title":          b.Title,
			"download_count": b.DownloadCount,
			"summary":        summary,
			"url":            ebookURL + fmt.Sprint(b.ID),
		})
		for i, a := range b.Authors {
			links = append(links, map[string]any{"book_id": b.ID, "author_id": a.ID, "position": i})
		}
		for _, s := range b.Subjects {
			subjects = append(subjects, map[string]any{"book_id": b.ID, "subject": s})
		}
		for _, l := range b.Languages {
			languages = append(languages, map[string]any{"book_id": b.ID, "language": l})
		}
	}

	return []datasetteTable{
		{name: "authors", pk: []string{"id"}, rows: authorRows},
		{name: "books", pk: []string{"id"}, rows: bookRows},
		{name: "book_authors", pk: []string{"book_id", "author_id"}, rows: links},
		{name: "book_subjects", pk: []string{"book_id", "subject"}, rows: subjects},
		{name: "book_languages", pk: []string{"book_id", "language"}, rows: languages},
	}
}
