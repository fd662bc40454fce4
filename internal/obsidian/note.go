// Package obsidian builds and parses Obsidian-flavoured markdown notes:
// a YAML frontmatter block followed by a markdown body.
package obsidian

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// flowKeys are written as single-line sequences: [a, b, c].
var flowKeys = map[string]bool{
	"tags":      true,
	"languages": true,
}

// Note is a markdown document with YAML frontmatter and body content.
type Note struct {
	Frontmatter *Frontmatter
	Body        string
}

// Frontmatter keeps its keys sorted so serialized notes are deterministic.
type Frontmatter struct {
	fields map[string]any
	keys   []string
}

// NewFrontmatter creates an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{
		fields: make(map[string]any),
		keys:   []string{},
	}
}

// NewNote creates a note with the given title and a trimmed body.
func NewNote(title, body string) *Note {
	fm := NewFrontmatter()
	fm.Set("title", title)
	return &Note{Frontmatter: fm, Body: strings.TrimSpace(body)}
}

// ParseMarkdown splits content into frontmatter and body.
// Content without a complete frontmatter block is all body.
func ParseMarkdown(content []byte) (*Note, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	if !strings.HasPrefix(text, "---\n") {
		return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
	}

	rest := text[len("---\n"):]
	var raw, body string
	switch {
	case strings.HasPrefix(rest, "---\n"):
		body = rest[len("---\n"):]
	default:
		end := strings.Index(rest, "\n---\n")
		if end == -1 {
			return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
		}
		raw = rest[:end]
		body = rest[end+len("\n---\n"):]
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	fm := NewFrontmatter()
	for key, value := range data {
		fm.Set(key, value)
	}

	return &Note{
		Frontmatter: fm,
		Body:        strings.TrimPrefix(body, "\n"),
	}, nil
}

// Build serializes the note. Frontmatter is omitted when it has no fields.
func (n *Note) Build() ([]byte, error) {
	var buf bytes.Buffer

	if n.Frontmatter != nil && len(n.Frontmatter.keys) > 0 {
		out, err := yaml.Marshal(n.Frontmatter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(out)
		buf.WriteString("---\n")
	}

	buf.WriteString(n.Body)
	if n.Body != "" && !strings.HasSuffix(n.Body, "\n") {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Get retrieves a raw value.
func (f *Frontmatter) Get(key string) (any, bool) {
	val, ok := f.fields[key]
	return val, ok
}

// Set stores a value, keeping the key order sorted.
func (f *Frontmatter) Set(key string, value any) {
	if _, exists := f.fields[key]; !exists {
		idx, _ := slices.BinarySearch(f.keys, key)
		f.keys = slices.Insert(f.keys, idx, key)
	}
	f.fields[key] = value
}

// SetIf stores value only when ok is true.
func (f *Frontmatter) SetIf(ok bool, key string, value any) {
	if ok {
		f.Set(key, value)
	}
}

// SetStrings stores a list, skipping empty lists entirely.
func (f *Frontmatter) SetStrings(key string, values []string) {
	if len(values) == 0 {
		return
	}
	f.Set(key, values)
}

// Delete removes a key.
func (f *Frontmatter) Delete(key string) {
	if _, ok := f.fields[key]; !ok {
		return
	}
	delete(f.fields, key)
	if idx, found := slices.BinarySearch(f.keys, key); found {
		f.keys = slices.Delete(f.keys, idx, idx+1)
	}
}

// GetString returns a string value or "".
func (f *Frontmatter) GetString(key string) string {
	if s, ok := f.fields[key].(string); ok {
		return s
	}
	return ""
}

// GetInt returns an integer value or 0. YAML decoding yields int, callers
// may have stored int64.
func (f *Frontmatter) GetInt(key string) int64 {
	switch v := f.fields[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// GetStringArray returns a list value, or an empty slice.
func (f *Frontmatter) GetStringArray(key string) []string {
	return TagsFromAny(f.fields[key])
}

// Keys returns a copy of the sorted keys.
func (f *Frontmatter) Keys() []string {
	return slices.Clone(f.keys)
}

// MarshalYAML writes keys in sorted order with flow-style lists for flowKeys.
func (f *Frontmatter) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: make([]*yaml.Node, 0, len(f.keys)*2),
	}

	for _, key := range f.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}

		valueNode := &yaml.Node{}
		if flowKeys[key] {
			valueNode.Kind = yaml.SequenceNode
			valueNode.Style = yaml.FlowStyle
			for _, item := range TagsFromAny(f.fields[key]) {
				valueNode.Content = append(valueNode.Content, &yaml.Node{
					Kind:  yaml.ScalarNode,
					Value: item,
				})
			}
		} else if err := valueNode.Encode(f.fields[key]); err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}

		node.Content = append(node.Content, keyNode, valueNode)
	}

	return node, nil
}
