package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BookKey is the identity of a book: its external id.
type BookKey int64

// ResolveBookKey returns the identity key for a book id.
func ResolveBookKey(id int64) BookKey {
	return BookKey(id)
}

// Int64 returns the underlying id.
func (k BookKey) Int64() int64 {
	return int64(k)
}

// AuthorKey is the identity of an author: name, birth year and death year.
// Keys are comparable; a null year only equals another null year.
//
// No fuzzy matching is performed. Under MatchExact a one-character
// difference in the name yields a different author.
type AuthorKey struct {
	name     string
	birth    int
	death    int
	hasBirth bool
	hasDeath bool
}

// ResolveAuthorKey returns the exact-match identity key for an author.
func ResolveAuthorKey(name string, birthYear, deathYear *int) AuthorKey {
	return Resolver{}.AuthorKey(name, birthYear, deathYear)
}

// Name returns the (possibly folded) name component of the key.
func (k AuthorKey) Name() string {
	return k.name
}

// BirthYear returns the birth year component, nil when unknown.
func (k AuthorKey) BirthYear() *int {
	if !k.hasBirth {
		return nil
	}
	y := k.birth
	return &y
}

// DeathYear returns the death year component, nil when unknown.
func (k AuthorKey) DeathYear() *int {
	if !k.hasDeath {
		return nil
	}
	y := k.death
	return &y
}

// String renders the canonical storage form of the key. Distinct keys
// always render distinct strings.
func (k AuthorKey) String() string {
	return strconv.Quote(k.name) + "|" + keyYear(k.birth, k.hasBirth) + "|" + keyYear(k.death, k.hasDeath)
}

func keyYear(y int, ok bool) string {
	if !ok {
		return "~"
	}
	return strconv.Itoa(y)
}

// NameMatching selects how author names are compared.
type NameMatching string

const (
	// MatchExact compares names byte for byte.
	MatchExact NameMatching = "exact"
	// MatchFolded ignores case, diacritics and repeated whitespace.
	MatchFolded NameMatching = "folded"
)

// ParseNameMatching parses a configured matching mode. Empty selects MatchExact.
func ParseNameMatching(s string) (NameMatching, error) {
	switch NameMatching(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchFolded:
		return MatchFolded, nil
	default:
		return "", fmt.Errorf("unknown name matching mode %q (want %q or %q)", s, MatchExact, MatchFolded)
	}
}

// Resolver computes identity keys. The zero value matches names exactly.
type Resolver struct {
	matching NameMatching
}

// NewResolver returns a Resolver using the given name matching mode.
func NewResolver(matching NameMatching) Resolver {
	return Resolver{matching: matching}
}

// Matching returns the resolver's name matching mode.
func (r Resolver) Matching() NameMatching {
	if r.matching == "" {
		return MatchExact
	}
	return r.matching
}

// AuthorKey returns the identity key for an author.
func (r Resolver) AuthorKey(name string, birthYear, deathYear *int) AuthorKey {
	k := AuthorKey{name: name}
	if r.Matching() == MatchFolded {
		k.name = FoldName(name)
	}
	if birthYear != nil {
		k.birth, k.hasBirth = *birthYear, true
	}
	if deathYear != nil {
		k.death, k.hasDeath = *deathYear, true
	}
	return k
}

// BookKey returns the identity key for a book id.
func (r Resolver) BookKey(id int64) BookKey {
	return ResolveBookKey(id)
}

// FoldName strips diacritics, folds case and collapses whitespace.
func FoldName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = cases.Fold().String(folded)
	return strings.Join(strings.Fields(folded), " ")
}
