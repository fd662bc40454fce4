// Package fileutil holds the file helpers shared by the exporters.
package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxFilenameRunes keeps note names well under common filesystem limits.
const maxFilenameRunes = 120

var filenameReplacer = strings.NewReplacer(
	":", " -",
	"/", "-",
	"\\", "-",
	"?", "",
	"*", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
	"\n", " ",
	"\r", "",
	"\t", " ",
)

// SanitizeFilename replaces characters that are invalid in filenames on
// common platforms and truncates long names.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.TrimRight(name, ". ")

	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = strings.TrimSpace(string(runes[:maxFilenameRunes]))
	}
	return name
}

// BookNotePath returns the markdown path of a book note. The id suffix keeps
// books that share a title apart.
func BookNotePath(title string, id int64, directory string) string {
	name := SanitizeFilename(title)
	suffix := "(" + strconv.FormatInt(id, 10) + ")"
	if name == "" {
		name = suffix
	} else {
		name += " " + suffix
	}
	return filepath.Join(directory, name+".md")
}

// FileExists reports whether a regular file exists at filePath.
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WriteFileWithOverwrite writes data unless the file exists and overwrite is
// false. Returns true when the file was written.
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// WriteJSONFile writes data as indented JSON, respecting the overwrite flag.
// Returns true when the file was written.
func WriteJSONFile(data any, filePath string, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		slog.Info("JSON file already exists, skipping", "filename", filePath)
		return false, nil
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	slog.Info("Writing JSON file", "filename", filePath, "overwrite", overwrite)
	return WriteFileWithOverwrite(filePath, jsonData, 0o644, true)
}
