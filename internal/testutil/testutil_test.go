package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/gutenshelf/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(env.RootDir(), "subdir", "file.txt"), path)
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/test.txt", "test content")

	assert.Equal(t, "test content", env.ReadFileString("nested/test.txt"))
	assert.Equal(t, []byte("test content"), env.ReadFile("nested/test.txt"))
}

func TestTestEnv_FileExists(t *testing.T) {
	env := NewTestEnv(t)

	assert.False(t, env.FileExists("nonexistent.txt"))

	env.WriteFileString("exists.txt", "content")
	assert.True(t, env.FileExists("exists.txt"))
	env.RequireFileExists("exists.txt")
}

func TestTestEnv_ListFilesAndContains(t *testing.T) {
	env := NewTestEnv(t)
	env.MkdirAll("notes")
	env.WriteFileString("notes/a.md", "alpha")
	env.WriteFileString("notes/b.md", "beta")

	assert.ElementsMatch(t, []string{"a.md", "b.md"}, env.ListFiles("notes"))
	env.AssertFileContains("notes/b.md", "bet")
}

func TestTestEnv_String(t *testing.T) {
	env := NewTestEnv(t)
	assert.Contains(t, env.String(), env.RootDir())
}

func TestGoldenHelper_AssertGolden(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.md"), []byte("# Emma\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.json"), []byte(`{"a": 1, "b": [2]}`), 0o644))

	gh := NewGoldenHelper(t, dir)
	assert.Equal(t, filepath.Join(dir, "note.md"), gh.GoldenPath("note.md"))
	gh.AssertGolden("note.md", []byte("# Emma\n"))
	gh.AssertGoldenJSON("doc.json", []byte("{\n  \"b\": [2],\n  \"a\": 1\n}"))
}

func TestResetConfig(t *testing.T) {
	config.OverwriteFiles = true
	config.CatalogDSN = "outer.db"
	viper.Set("catalog.driver", "postgres")

	t.Run("inner", func(t *testing.T) {
		ResetConfig(t)
		assert.False(t, viper.IsSet("catalog.driver"))

		config.OverwriteFiles = false
		config.CatalogDSN = "inner.db"
	})

	assert.True(t, config.OverwriteFiles)
	assert.Equal(t, "outer.db", config.CatalogDSN)

	config.OverwriteFiles = false
	config.CatalogDSN = ""
	viper.Reset()
}

func TestSetViperValue(t *testing.T) {
	ResetConfig(t)
	viper.Set("cache.ttl", "1h")

	t.Run("override", func(t *testing.T) {
		SetViperValue(t, "cache.ttl", "5m")
		assert.Equal(t, "5m", viper.GetString("cache.ttl"))
	})

	assert.Equal(t, "1h", viper.GetString("cache.ttl"))
}

func TestSetupTestCatalogAndCache(t *testing.T) {
	ResetConfig(t)
	env := NewTestEnv(t)

	dbPath := SetupTestCatalog(t, env)
	assert.Equal(t, env.Path("catalog.db"), dbPath)
	assert.Equal(t, "sqlite", viper.GetString("catalog.driver"))
	assert.Equal(t, dbPath, viper.GetString("catalog.dsn"))

	cacheDir := SetupTestCache(t, env)
	assert.DirExists(t, cacheDir)
	assert.Equal(t, filepath.Join(cacheDir, "test-cache.db"), viper.GetString("cache.dbfile"))
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore(t)
	assert.NotNil(t, store)
	assert.Equal(t, 3, *IntPtr(3))
	assert.Equal(t, int64(84), *Int64Ptr(84))
}
