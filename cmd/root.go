package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/gutenshelf/internal/cache"
	"github.com/lepinkainen/gutenshelf/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the gutenshelf application
type CLI struct {
	// Global flags
	DB           string `help:"Catalog data source: SQLite file path or PostgreSQL URL (default from config catalog.dsn)"`
	Driver       string `help:"Catalog backend: sqlite or postgres"`
	NameMatching string `help:"Author name matching: exact or folded"`
	Overwrite    bool   `help:"Overwrite existing export files"`
	Verbose      bool   `short:"v" help:"Enable debug logging"`

	// Cache flags
	CacheDB  string `help:"Path to cache SQLite database file (default from config cache.dbfile)"`
	CacheTTL string `help:"Cache time-to-live duration, e.g. 720h"`
	NoCache  bool   `help:"Do not read or write the response cache"`

	Search  SearchCmd  `cmd:"" help:"Search the remote catalog and merge results into the local catalog"`
	Books   BooksCmd   `cmd:"" help:"List stored books"`
	Book    BookCmd    `cmd:"" help:"Show one stored book"`
	Authors AuthorsCmd `cmd:"" help:"List stored authors with their books"`
	Stats   StatsCmd   `cmd:"" help:"Show catalog counts"`
	History HistoryCmd `cmd:"" help:"Show recent reconciliation runs"`
	Export  ExportCmd  `cmd:"" help:"Export the stored catalog"`
	Cache   CacheCmd   `cmd:"" help:"Manage the response cache"`
}

// CacheCmd groups the cache maintenance commands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Drop cached responses for a source"`
	Prune      cache.PruneCacheCmd      `cmd:"" help:"Drop cached responses older than the cache TTL"`
}

func kongOptions(ctx context.Context) []kong.Option {
	return []kong.Option{
		kong.Name("gutenshelf"),
		kong.Description("Search Project Gutenberg and keep a deduplicated local catalog of books and authors."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	ctx := kong.Parse(&cli, kongOptions(runCtx)...)

	if cli.Verbose {
		initLogging(true)
	}
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if cerr := cache.ResetGlobalCache(); cerr != nil {
		slog.Warn("Failed to close cache", "error", cerr)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("Interrupted")
		} else {
			slog.Error("Command failed", "error", err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	config.SetDefaults()

	viper.SetEnvPrefix("GUTENSHELF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("catalog.dsn", "GUTENSHELF_DSN", "DATABASE_URL"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
	if err := viper.BindEnv("datasette.token", "DATASETTE_TOKEN"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
		slog.Info("Config file not found, writing default config file")
		if err := viper.SafeWriteConfig(); err != nil {
			slog.Warn("Error writing config file", "error", err)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	if cli.Overwrite {
		config.SetOverwriteFiles(true)
	}

	if cli.DB != "" {
		viper.Set("catalog.dsn", cli.DB)
	}
	if cli.Driver != "" {
		viper.Set("catalog.driver", cli.Driver)
	}
	if cli.NameMatching != "" {
		viper.Set("catalog.name_matching", cli.NameMatching)
	}

	if cli.CacheDB != "" {
		viper.Set("cache.dbfile", cli.CacheDB)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
	if cli.NoCache {
		viper.Set("cache.enabled", false)
	}

	config.CatalogDriver = viper.GetString("catalog.driver")
	config.CatalogDSN = viper.GetString("catalog.dsn")
	config.NameMatching = viper.GetString("catalog.name_matching")
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
