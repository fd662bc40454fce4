package cmd

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	cli := &CLI{}
	opts := append(kongOptions(context.Background()), kong.Exit(func(code int) {
		t.Fatalf("unexpected Kong exit %d", code)
	}))
	parser, err := kong.New(cli, opts...)
	assert.NoError(t, err)

	kctx, err := parser.Parse(args)
	assert.NoError(t, err)
	return cli, kctx
}

func TestParse_SearchTopDefaults(t *testing.T) {
	cli, kctx := parse(t, "search", "top")

	assert.Equal(t, "search top", kctx.Command())
	assert.Equal(t, 10, cli.Search.Top.Limit)
	assert.False(t, cli.Search.Top.Save)
}

func TestParse_SearchTitleInteractive(t *testing.T) {
	cli, kctx := parse(t, "search", "title", "-i", "War and Peace")

	assert.Equal(t, "search title <title>", kctx.Command())
	assert.Equal(t, "War and Peace", cli.Search.Title.Title)
	assert.True(t, cli.Search.Title.Interactive)
}

func TestParse_SearchAliveRange(t *testing.T) {
	cli, _ := parse(t, "search", "alive", "--from", "1800", "--to", "1850", "--save")

	assert.Equal(t, 1800, cli.Search.Alive.From)
	assert.Equal(t, 1850, cli.Search.Alive.To)
	assert.True(t, cli.Search.Alive.Save)
}

func TestParse_SearchAliveRequiresRange(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kongOptions(context.Background())...)
	assert.NoError(t, err)

	_, err = parser.Parse([]string{"search", "alive", "--from", "1800"})
	assert.Error(t, err)
}

func TestParse_GlobalFlags(t *testing.T) {
	cli, _ := parse(t, "--db", "/tmp/x.db", "--driver", "sqlite", "--name-matching", "folded", "-v", "--no-cache", "stats")

	assert.Equal(t, "/tmp/x.db", cli.DB)
	assert.Equal(t, "sqlite", cli.Driver)
	assert.Equal(t, "folded", cli.NameMatching)
	assert.True(t, cli.Verbose)
	assert.True(t, cli.NoCache)
}

func TestParse_HistoryAndAuthors(t *testing.T) {
	cli, _ := parse(t, "history")
	assert.Equal(t, 10, cli.History.Limit)

	cli, _ = parse(t, "authors")
	assert.Zero(t, cli.Authors.AliveIn)

	cli, _ = parse(t, "authors", "--alive-in", "1820")
	assert.NotZero(t, cli.Authors.AliveIn)
	assert.Equal(t, 1820, *cli.Authors.AliveIn)
}

func TestParse_BookID(t *testing.T) {
	cli, _ := parse(t, "book", "1342")
	assert.Equal(t, int64(1342), cli.Book.ID)
}

func TestParse_CacheCommands(t *testing.T) {
	cli, kctx := parse(t, "cache", "invalidate", "gutendex")
	assert.Equal(t, "cache invalidate <source>", kctx.Command())
	assert.Equal(t, "gutendex", cli.Cache.Invalidate.Source)

	_, kctx = parse(t, "cache", "prune")
	assert.Equal(t, "cache prune", kctx.Command())
}

func TestParse_ExportCommands(t *testing.T) {
	cli, kctx := parse(t, "export", "json", "-o", "out.json")
	assert.Equal(t, "export json", kctx.Command())
	assert.Equal(t, "out.json", cli.Export.JSON.Output)

	cli, _ = parse(t, "export", "datasette", "--url", "http://localhost:8001", "--database", "books")
	assert.Equal(t, "http://localhost:8001", cli.Export.Datasette.URL)
	assert.Equal(t, "books", cli.Export.Datasette.Database)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
