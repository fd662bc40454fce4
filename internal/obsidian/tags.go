package obsidian

import (
	"regexp"
	"sort"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-+`)
	tagDisallowed = strings.NewReplacer("#", "", ",", "", ";", "", "(", "", ")", "", "[", "", "]", "", "\"", "", "'", "")
)

// NormalizeTag turns free text into an Obsidian tag. Case is preserved,
// whitespace becomes hyphens and "/" is kept for hierarchy. Returns "" when
// nothing usable remains.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	tag = strings.ReplaceAll(tag, "&", "and")
	tag = tagDisallowed.Replace(tag)
	tag = whitespaceRun.ReplaceAllString(tag, "-")
	tag = hyphenRun.ReplaceAllString(tag, "-")

	parts := strings.Split(tag, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.Trim(p, "-"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// SubjectTag maps a Library of Congress style subject heading such as
// "Science fiction -- Juvenile literature" to a hierarchical tag under
// prefix: "subject/Science-fiction/Juvenile-literature".
func SubjectTag(prefix, subject string) string {
	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, section := range strings.Split(subject, "--") {
		section = strings.ReplaceAll(section, "/", " ")
		if n := NormalizeTag(section); n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 || (prefix != "" && len(parts) == 1) {
		return ""
	}
	return strings.Join(parts, "/")
}

// TagSet collects normalized, deduplicated tags.
type TagSet struct {
	tags map[string]bool
}

// NewTagSet creates an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{tags: make(map[string]bool)}
}

// Add normalizes and adds tag. Empty results are dropped.
func (ts *TagSet) Add(tag string) {
	if n := NormalizeTag(tag); n != "" {
		ts.tags[n] = true
	}
}

// AddSubject adds the hierarchical tag for a subject heading.
func (ts *TagSet) AddSubject(prefix, subject string) {
	if tag := SubjectTag(prefix, subject); tag != "" {
		ts.tags[tag] = true
	}
}

// Len returns the number of tags.
func (ts *TagSet) Len() int {
	return len(ts.tags)
}

// GetSorted returns the tags in sorted order.
func (ts *TagSet) GetSorted() []string {
	result := make([]string, 0, len(ts.tags))
	for tag := range ts.tags {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

// TagsFromAny extracts a string list from a decoded YAML value, which may be
// []string or []any. Empty entries are dropped.
func TagsFromAny(val any) []string {
	switch v := val.(type) {
	case []string:
		result := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				result = append(result, s)
			}
		}
		return result
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	}
	return []string{}
}
