package obsidian

import (
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "fiction", want: "fiction"},
		{name: "preserves case", input: "Gothic", want: "Gothic"},
		{name: "strips hash", input: "#poetry", want: "poetry"},
		{name: "whitespace to hyphens", input: "  science   fiction ", want: "science-fiction"},
		{name: "ampersand", input: "Love & war", want: "Love-and-war"},
		{name: "punctuation removed", input: "Adventure stories, English", want: "Adventure-stories-English"},
		{name: "parentheses removed", input: "London (England)", want: "London-England"},
		{name: "collapses hyphens", input: "a -- b", want: "a-b"},
		{name: "keeps hierarchy", input: "subject/Short stories", want: "subject/Short-stories"},
		{name: "drops empty segments", input: "subject//x/", want: "subject/x"},
		{name: "empty", input: "   ", want: ""},
		{name: "only symbols", input: "#,;", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTag(tt.input); got != tt.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSubjectTag(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		subject string
		want    string
	}{
		{
			name:    "heading with subdivisions",
			prefix:  "subject",
			subject: "Science fiction -- Juvenile literature",
			want:    "subject/Science-fiction/Juvenile-literature",
		},
		{
			name:    "single heading",
			prefix:  "subject",
			subject: "Love stories",
			want:    "subject/Love-stories",
		},
		{
			name:    "slash inside heading is not hierarchy",
			prefix:  "subject",
			subject: "Man-woman relationships/Fiction",
			want:    "subject/Man-woman-relationships-Fiction",
		},
		{
			name:    "no prefix",
			subject: "England -- Fiction",
			want:    "England/Fiction",
		},
		{
			name:    "empty subject",
			prefix:  "subject",
			subject: " -- ",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubjectTag(tt.prefix, tt.subject); got != tt.want {
				t.Errorf("SubjectTag(%q, %q) = %q, want %q", tt.prefix, tt.subject, got, tt.want)
			}
		})
	}
}

func TestTagSet(t *testing.T) {
	t.Run("deduplicates after normalization", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("gutenberg")
		ts.Add("#gutenberg")
		ts.Add(" gutenberg ")
		ts.Add("")

		want := []string{"gutenberg"}
		if got := ts.GetSorted(); !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
	})

	t.Run("subjects and plain tags sorted together", func(t *testing.T) {
		ts := NewTagSet()
		ts.Add("gutenberg")
		ts.AddSubject("subject", "Sea stories")
		ts.AddSubject("subject", "England -- Social life and customs")
		ts.AddSubject("subject", "Sea stories")
		ts.AddSubject("subject", "--")

		want := []string{
			"gutenberg",
			"subject/England/Social-life-and-customs",
			"subject/Sea-stories",
		}
		if got := ts.GetSorted(); !reflect.DeepEqual(got, want) {
			t.Errorf("GetSorted() = %v, want %v", got, want)
		}
		if ts.Len() != 3 {
			t.Errorf("Len() = %d, want 3", ts.Len())
		}
	})

	t.Run("empty set", func(t *testing.T) {
		got := NewTagSet().GetSorted()
		if got == nil || len(got) != 0 {
			t.Errorf("GetSorted() = %#v, want empty non-nil slice", got)
		}
	})
}

func TestTagsFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "string slice", input: []string{"a", "", "b"}, want: []string{"a", "b"}},
		{name: "interface slice", input: []any{"a", 1, "", "b"}, want: []string{"a", "b"}},
		{name: "scalar", input: "a", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagsFromAny(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TagsFromAny() = %v, want %v", got, tt.want)
			}
		})
	}
}
