package testutil

import (
	"testing"

	"github.com/lepinkainen/gutenshelf/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	OverwriteFiles bool
	CatalogDriver  string
	CatalogDSN     string
	NameMatching   string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		OverwriteFiles: config.OverwriteFiles,
		CatalogDriver:  config.CatalogDriver,
		CatalogDSN:     config.CatalogDSN,
		NameMatching:   config.NameMatching,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.OverwriteFiles = state.OverwriteFiles
	config.CatalogDriver = state.CatalogDriver
	config.CatalogDSN = state.CatalogDSN
	config.NameMatching = state.NameMatching
}

// ResetConfig saves the current config state and resets viper. Both are
// restored when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		// viper has no Unset, an unset key cannot be restored
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}

// SetupTestCache points the response cache at a database inside env and
// returns the cache directory.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	SetViperValue(t, "cache.dbfile", env.Path("cache", "test-cache.db"))
	SetViperValue(t, "cache.ttl", "24h")

	return env.Path("cache")
}

// SetupTestCatalog points the catalog store at a SQLite file inside env and
// returns its path.
func SetupTestCatalog(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("catalog.db")
	SetViperValue(t, "catalog.driver", "sqlite")
	SetViperValue(t, "catalog.dsn", dbPath)

	return dbPath
}
