// Package moderation screens message content against a word list.
package moderation

import (
	"strings"
	"unicode"
)

// Screen reports whether message content contains disallowed language.
type Screen interface {
	ContainsViolation(content string) bool
}

// WordList matches whole, case-folded tokens against a fixed set of
// disallowed terms.
type WordList struct {
	words map[string]struct{}
}

func NewWordList(words ...string) *WordList {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &WordList{words: set}
}

// Default returns the built-in list.
func Default() *WordList {
	return NewWordList(
		"arse", "ass", "asshole", "bastard", "bitch", "bollocks",
		"crap", "damn", "dick", "piss", "prick", "shit", "slut",
		"twat", "wanker",
	)
}

func (w *WordList) ContainsViolation(content string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		if _, ok := w.words[tok]; ok {
			return true
		}
	}
	return false
}
