package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestSetOverwriteFiles(t *testing.T) {
	originalValue := OverwriteFiles
	t.Cleanup(func() { OverwriteFiles = originalValue })

	testCases := []struct {
		name     string
		input    bool
		expected bool
	}{
		{name: "set to true", input: true, expected: true},
		{name: "set to false", input: false, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetOverwriteFiles(tc.input)
			assert.Equal(t, tc.expected, OverwriteFiles)
		})
	}
}

func TestInitConfig_Defaults(t *testing.T) {
	resetViper(t)

	InitConfig()

	assert.Equal(t, "sqlite", CatalogDriver)
	assert.Equal(t, "./gutenshelf.db", CatalogDSN)
	assert.Equal(t, "exact", NameMatching)
	assert.False(t, OverwriteFiles)
	assert.True(t, CacheEnabled())
	assert.Equal(t, "./markdown/", MarkdownOutputDir())
	assert.Equal(t, "./json/", JSONOutputDir())

	src := SourceSettings()
	assert.Equal(t, Source{
		BaseURL:       DefaultSourceURL,
		Timeout:       15 * time.Second,
		RatePerSecond: 2,
		UserAgent:     "gutenshelf/1.0",
	}, src)
}

func TestInitConfig_Overrides(t *testing.T) {
	resetViper(t)

	viper.Set("catalog.driver", "postgres")
	viper.Set("catalog.dsn", "postgres://localhost/shelf")
	viper.Set("catalog.name_matching", "folded")
	viper.Set("OverwriteFiles", true)
	viper.Set("cache.enabled", false)
	viper.Set("source.timeout", "3s")
	viper.Set("source.rate_per_second", 0.5)

	InitConfig()

	assert.Equal(t, "postgres", CatalogDriver)
	assert.Equal(t, "postgres://localhost/shelf", CatalogDSN)
	assert.Equal(t, "folded", NameMatching)
	assert.True(t, OverwriteFiles)
	assert.False(t, CacheEnabled())
	assert.Equal(t, 3*time.Second, SourceSettings().Timeout)
	assert.InDelta(t, 0.5, SourceSettings().RatePerSecond, 1e-9)
}

func TestSourceSettings_InvalidTimeout(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("source.timeout", "eventually")

	assert.Equal(t, DefaultSourceTimeout, SourceSettings().Timeout)
}
