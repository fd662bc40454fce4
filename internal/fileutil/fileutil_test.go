package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lepinkainen/gutenshelf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "normal text", input: "Moby Dick", expected: "Moby Dick"},
		{name: "colon", input: "Frankenstein; Or, The Modern Prometheus: A Novel", expected: "Frankenstein; Or, The Modern Prometheus - A Novel"},
		{name: "slashes", input: "Either/Or\\Both", expected: "Either-Or-Both"},
		{name: "reserved characters", input: `What? "Why" <not>*|`, expected: "What 'Why' not-"},
		{name: "newlines collapse", input: "The Iliad\nof Homer", expected: "The Iliad of Homer"},
		{name: "trailing dots", input: "Etc...", expected: "Etc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("ä", maxFilenameRunes+30)
	got := SanitizeFilename(long)
	assert.Equal(t, maxFilenameRunes, len([]rune(got)))
}

func TestBookNotePath(t *testing.T) {
	assert.Equal(t, filepath.Join("notes", "Emma (158).md"), BookNotePath("Emma", 158, "notes"))
	assert.Equal(t, filepath.Join("notes", "Dracula - A Tale (345).md"), BookNotePath("Dracula: A Tale", 345, "notes"))
	assert.Equal(t, filepath.Join("notes", "(7).md"), BookNotePath("  ", 7, "notes"))
}

func TestFileExists(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("book.md", "x")
	env.MkdirAll("dir")

	assert.True(t, FileExists(env.Path("book.md")))
	assert.False(t, FileExists(env.Path("missing.md")))
	assert.False(t, FileExists(env.Path("dir")))
}

func TestWriteFileWithOverwrite(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("nested", "deeper", "note.md")

	written, err := WriteFileWithOverwrite(path, []byte("first"), 0o644, false)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "first", env.ReadFileString("nested/deeper/note.md"))

	written, err = WriteFileWithOverwrite(path, []byte("second"), 0o644, false)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, "first", env.ReadFileString("nested/deeper/note.md"))

	written, err = WriteFileWithOverwrite(path, []byte("third"), 0o644, true)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "third", env.ReadFileString("nested/deeper/note.md"))
}

type snapshot struct {
	Books []string `json:"books"`
}

func TestWriteJSONFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("out", "catalog.json")

	written, err := WriteJSONFile(snapshot{Books: []string{"Emma"}}, path, false)
	require.NoError(t, err)
	require.True(t, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "}\n"))

	var got snapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"Emma"}, got.Books)

	written, err = WriteJSONFile(snapshot{Books: []string{"Other"}}, path, false)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = WriteJSONFile(snapshot{Books: []string{"Other"}}, path, true)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Contains(t, env.ReadFileString("out/catalog.json"), "Other")
}

func TestWriteJSONFile_InvalidData(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("bad.json")

	written, err := WriteJSONFile(map[string]any{"ch": make(chan int)}, path, true)
	require.Error(t, err)
	assert.False(t, written)
	assert.False(t, FileExists(path))
}
