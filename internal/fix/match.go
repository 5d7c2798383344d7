// Package fix turns validation findings into concrete patch suggestions
// and proposes completions for structurally incomplete documents.
package fix

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ClosestMatch picks the option most similar to target: an exact
// case-insensitive match, then a prefix match in either direction, then a
// substring match in either direction. When nothing matches it still
// returns the first option; callers always get a suggestion for a
// non-empty option set. The second return is false only for an empty set.
func ClosestMatch(target string, options []string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}

	want := canon(target)

	for _, opt := range options {
		if canon(opt) == want {
			return opt, true
		}
	}
	for _, opt := range options {
		have := canon(opt)
		if strings.HasPrefix(have, want) || strings.HasPrefix(want, have) {
			return opt, true
		}
	}
	for _, opt := range options {
		have := canon(opt)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return opt, true
		}
	}

	return options[0], true
}

// canon folds case and unicode composition so that visually identical
// strings compare equal.
func canon(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
