package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares generated output with files under a golden
// directory. With UPDATE_GOLDEN=true the files are rewritten instead.
type GoldenHelper struct {
	t          *testing.T
	goldenDir  string
	updateMode bool
}

// NewGoldenHelper creates a helper rooted at goldenDir.
func NewGoldenHelper(t *testing.T, goldenDir string) *GoldenHelper {
	t.Helper()

	return &GoldenHelper{
		t:          t,
		goldenDir:  goldenDir,
		updateMode: os.Getenv("UPDATE_GOLDEN") == "true",
	}
}

// GoldenPath returns the full path to a golden file.
func (g *GoldenHelper) GoldenPath(name string) string {
	return filepath.Join(g.goldenDir, name)
}

// AssertGolden requires actual to equal the golden file byte for byte.
func (g *GoldenHelper) AssertGolden(name string, actual []byte) {
	g.t.Helper()

	if g.update(name, actual) {
		return
	}
	assert.Equal(g.t, string(g.read(name)), string(actual),
		"content does not match golden file %s", name)
}

// AssertGoldenJSON compares JSON documents ignoring formatting.
func (g *GoldenHelper) AssertGoldenJSON(name string, actual []byte) {
	g.t.Helper()

	if g.update(name, actual) {
		return
	}
	assert.JSONEq(g.t, string(g.read(name)), string(actual),
		"JSON content does not match golden file %s", name)
}

func (g *GoldenHelper) update(name string, actual []byte) bool {
	g.t.Helper()

	if !g.updateMode {
		return false
	}

	path := g.GoldenPath(name)
	require.NoError(g.t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create golden file directory")
	require.NoError(g.t, os.WriteFile(path, actual, 0o644), "failed to update golden file")
	g.t.Logf("Updated golden file: %s", path)
	return true
}

func (g *GoldenHelper) read(name string) []byte {
	g.t.Helper()

	path := g.GoldenPath(name)
	content, err := os.ReadFile(path)
	require.NoError(g.t, err, "failed to read golden file %s", path)
	return content
}
