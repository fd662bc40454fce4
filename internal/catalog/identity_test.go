package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestResolveAuthorKeyEquality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  AuthorKey
		equal bool
	}{
		{
			name:  "identical triple",
			a:     ResolveAuthorKey("Herbert, Frank", intPtr(1920), intPtr(1986)),
			b:     ResolveAuthorKey("Herbert, Frank", intPtr(1920), intPtr(1986)),
			equal: true,
		},
		{
			name:  "null years equal null years",
			a:     ResolveAuthorKey("Anonymous", nil, nil),
			b:     ResolveAuthorKey("Anonymous", nil, nil),
			equal: true,
		},
		{
			name:  "null death differs from known death",
			a:     ResolveAuthorKey("Le Guin, Ursula K.", intPtr(1929), nil),
			b:     ResolveAuthorKey("Le Guin, Ursula K.", intPtr(1929), intPtr(2018)),
			equal: false,
		},
		{
			name:  "one character difference is a different author",
			a:     ResolveAuthorKey("Herbert, Frank", intPtr(1920), intPtr(1986)),
			b:     ResolveAuthorKey("Herbert, Frank.", intPtr(1920), intPtr(1986)),
			equal: false,
		},
		{
			name:  "case matters under exact matching",
			a:     ResolveAuthorKey("Austen, Jane", intPtr(1775), intPtr(1817)),
			b:     ResolveAuthorKey("austen, jane", intPtr(1775), intPtr(1817)),
			equal: false,
		},
		{
			name:  "zero year is not null",
			a:     ResolveAuthorKey("Homer", intPtr(0), nil),
			b:     ResolveAuthorKey("Homer", nil, nil),
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a == tt.b)
			assert.Equal(t, tt.equal, tt.a.String() == tt.b.String())
		})
	}
}

func TestAuthorKeyStringIsUnambiguous(t *testing.T) {
	a := ResolveAuthorKey(`Smith|1900`, nil, nil)
	b := ResolveAuthorKey("Smith", intPtr(1900), nil)
	assert.NotEqual(t, a.String(), b.String())
}

func TestAuthorKeyAccessors(t *testing.T) {
	k := ResolveAuthorKey("Verne, Jules", intPtr(1828), nil)
	assert.Equal(t, "Verne, Jules", k.Name())
	require.NotNil(t, k.BirthYear())
	assert.Equal(t, 1828, *k.BirthYear())
	assert.Nil(t, k.DeathYear())
}

func TestFoldedResolver(t *testing.T) {
	r := NewResolver(MatchFolded)

	a := r.AuthorKey("Brontë,  Charlotte", intPtr(1816), intPtr(1855))
	b := r.AuthorKey("BRONTE, Charlotte", intPtr(1816), intPtr(1855))
	assert.Equal(t, a, b)
	assert.Equal(t, "bronte, charlotte", a.Name())

	c := r.AuthorKey("Bronte, Emily", intPtr(1818), intPtr(1848))
	assert.NotEqual(t, a, c)
}

func TestParseNameMatching(t *testing.T) {
	m, err := ParseNameMatching("")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m)

	m, err = ParseNameMatching(" Folded ")
	require.NoError(t, err)
	assert.Equal(t, MatchFolded, m)

	_, err = ParseNameMatching("fuzzy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy")
}

func TestResolveBookKey(t *testing.T) {
	assert.Equal(t, ResolveBookKey(84), NewResolver(MatchFolded).BookKey(84))
	assert.Equal(t, int64(84), ResolveBookKey(84).Int64())
	assert.Equal(t, BookKey(84), Book{ID: 84}.Key())
}
