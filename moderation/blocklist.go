package moderation

import (
	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
	"slices"
	"strings"
	"unicode"
)

// Blocklist finds reserved words inside display names.
// Matching is case-insensitive and substring based: "SysAdmin" hits "admin".
type Blocklist struct {
	matcher *goahocorasick.Machine
	words   []string
}

// NewBlocklist builds the Aho-Corasick automaton from the lower-cased words.
// Blank entries are ignored. An empty list matches nothing.
func NewBlocklist(words []string) (*Blocklist, error) {
	cleaned := lo.Uniq(lo.Compact(lo.Map(words, func(w string, _ int) string {
		return strings.ToLower(strings.TrimSpace(w))
	})))
	slices.Sort(cleaned)

	if len(cleaned) == 0 {
		return &Blocklist{}, nil
	}

	patterns := make([][]rune, len(cleaned))
	for i, word := range cleaned {
		patterns[i] = []rune(word)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Blocklist{matcher: m, words: cleaned}, nil
}

// Contains reports whether any blocked word occurs in text.
func (b *Blocklist) Contains(text string) bool {
	if b == nil || b.matcher == nil || text == "" {
		return false
	}
	return len(b.matcher.MultiPatternSearch(lower(text), true)) > 0
}

// Matches returns every blocked word found in text, in order of appearance.
func (b *Blocklist) Matches(text string) []string {
	if b == nil || b.matcher == nil || text == "" {
		return nil
	}
	terms := b.matcher.MultiPatternSearch(lower(text), false)
	if len(terms) == 0 {
		return nil
	}
	slices.SortStableFunc(terms, func(a, b *goahocorasick.Term) int {
		return a.Pos - b.Pos
	})
	return lo.Map(terms, func(t *goahocorasick.Term, _ int) string {
		return string(t.Word)
	})
}

func (b *Blocklist) Words() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.words...)
}

func lower(text string) []rune {
	runes := []rune(text)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}
