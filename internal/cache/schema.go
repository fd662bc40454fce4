package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// GutendexCacheSchema defines the schema for Gutendex search response cache.
// Keys are full request URLs.
const GutendexCacheSchema = `
CREATE TABLE IF NOT EXISTS gutendex_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_gutendex_cached_at ON gutendex_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	GutendexCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	"gutendex_cache": true,
}

// SourceTables maps the source names accepted on the command line to cache tables
var SourceTables = map[string]string{
	"gutendex": "gutendex_cache",
}
