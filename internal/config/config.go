package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for settings that have one.
const (
	DefaultDriver        = "sqlite"
	DefaultDSN           = "./gutenshelf.db"
	DefaultNameMatching  = "exact"
	DefaultSourceURL     = "https://gutendex.com/books"
	DefaultSourceTimeout = 15 * time.Second
	DefaultSourceRate    = 2.0
	DefaultUserAgent     = "gutenshelf/1.0"
	DefaultCacheFile     = "./cache.db"
	DefaultCacheTTL      = "24h"
)

// Global configuration variables
var (
	// OverwriteFiles controls whether existing export files are overwritten
	OverwriteFiles bool
	// CatalogDriver selects the catalog store backend
	CatalogDriver string
	// CatalogDSN is the store's data source name
	CatalogDSN string
	// NameMatching is the author name matching policy
	NameMatching string
)

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("catalog.driver", DefaultDriver)
	viper.SetDefault("catalog.dsn", DefaultDSN)
	viper.SetDefault("catalog.name_matching", DefaultNameMatching)

	viper.SetDefault("source.base_url", DefaultSourceURL)
	viper.SetDefault("source.timeout", DefaultSourceTimeout.String())
	viper.SetDefault("source.rate_per_second", DefaultSourceRate)
	viper.SetDefault("source.user_agent", DefaultUserAgent)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dbfile", DefaultCacheFile)
	viper.SetDefault("cache.ttl", DefaultCacheTTL)

	viper.SetDefault("datasette.url", "")
	viper.SetDefault("datasette.token", "")
	viper.SetDefault("datasette.database", "gutenshelf")

	viper.SetDefault("MarkdownOutputDir", "./markdown/")
	viper.SetDefault("JSONOutputDir", "./json/")
	viper.SetDefault("OverwriteFiles", false)
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	OverwriteFiles = viper.GetBool("OverwriteFiles")
	CatalogDriver = viper.GetString("catalog.driver")
	CatalogDSN = viper.GetString("catalog.dsn")
	NameMatching = viper.GetString("catalog.name_matching")
}

// SetOverwriteFiles sets the OverwriteFiles flag
func SetOverwriteFiles(overwrite bool) {
	OverwriteFiles = overwrite
}

// Source holds the remote catalog client settings.
type Source struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	UserAgent     string
}

// SourceSettings reads the source.* keys. Unparseable timeouts fall back
// to the default.
func SourceSettings() Source {
	timeout, err := time.ParseDuration(viper.GetString("source.timeout"))
	if err != nil || timeout <= 0 {
		timeout = DefaultSourceTimeout
	}

	return Source{
		BaseURL:       viper.GetString("source.base_url"),
		Timeout:       timeout,
		RatePerSecond: viper.GetFloat64("source.rate_per_second"),
		UserAgent:     viper.GetString("source.user_agent"),
	}
}

// CacheEnabled reports whether remote responses are cached.
func CacheEnabled() bool {
	return viper.GetBool("cache.enabled")
}

// MarkdownOutputDir is the default directory for markdown exports.
func MarkdownOutputDir() string {
	return viper.GetString("MarkdownOutputDir")
}

// JSONOutputDir is the default directory for JSON exports.
func JSONOutputDir() string {
	return viper.GetString("JSONOutputDir")
}
