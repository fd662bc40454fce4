package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lepinkainen/gutenshelf/internal/config"
	"github.com/lepinkainen/gutenshelf/internal/export"
	"github.com/spf13/viper"
)

// ExportCmd groups the export formats
type ExportCmd struct {
	JSON      ExportJSONCmd      `cmd:"" name:"json" help:"Write a JSON snapshot of the catalog"`
	Markdown  ExportMarkdownCmd  `cmd:"" help:"Write one Obsidian note per stored book"`
	Datasette ExportDatasetteCmd `cmd:"" help:"Publish the catalog tables to a Datasette instance"`
}

// ExportJSONCmd represents the export json command
type ExportJSONCmd struct {
	Output string `short:"o" help:"Output file (defaults to <JSONOutputDir>/catalog.json)"`
}

// ExportMarkdownCmd represents the export markdown command
type ExportMarkdownCmd struct {
	Output string `short:"o" help:"Output directory (defaults to <MarkdownOutputDir>/gutenberg)"`
}

// ExportDatasetteCmd represents the export datasette command
type ExportDatasetteCmd struct {
	URL      string `help:"Datasette base URL (default from config datasette.url)"`
	Token    string `help:"API token with insert permission (default from DATASETTE_TOKEN)"`
	Database string `help:"Target database name (default from config datasette.database)"`
}

func (e *ExportJSONCmd) Run(ctx context.Context) error {
	path := e.Output
	if path == "" {
		path = filepath.Join(config.JSONOutputDir(), "catalog.json")
	}

	return withApp(ctx, func(a *app) error {
		res, err := export.JSON(ctx, a.store, path, config.OverwriteFiles)
		if err != nil {
			return err
		}
		if res.Skipped > 0 {
			fmt.Fprintf(stdout, "%s exists, use --overwrite to replace it\n", path)
			return nil
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return nil
	})
}

func (e *ExportMarkdownCmd) Run(ctx context.Context) error {
	dir := e.Output
	if dir == "" {
		dir = filepath.Join(config.MarkdownOutputDir(), "gutenberg")
	}

	return withApp(ctx, func(a *app) error {
		res, err := export.Markdown(ctx, a.store, dir, config.OverwriteFiles)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %d note(s) to %s, %d skipped\n", res.Written, dir, res.Skipped)
		return nil
	})
}

func (e *ExportDatasetteCmd) Run(ctx context.Context) error {
	baseURL := firstNonEmpty(e.URL, viper.GetString("datasette.url"))
	if baseURL == "" {
		return fmt.Errorf("datasette URL is required (provide via --url flag or datasette.url in config)")
	}

	client, err := export.NewDatasetteClient(
		baseURL,
		firstNonEmpty(e.Token, viper.GetString("datasette.token")),
		firstNonEmpty(e.Database, viper.GetString("datasette.database")),
	)
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		counts, err := export.Datasette(ctx, a.store, client)
		if err != nil {
			return err
		}
		for _, table := range []string{"books", "authors", "book_authors", "book_subjects", "book_languages"} {
			if n, ok := counts[table]; ok {
				fmt.Fprintf(stdout, "  %-15s %d rows\n", table, n)
			}
		}
		return nil
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
