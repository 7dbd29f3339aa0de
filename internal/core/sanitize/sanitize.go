// Package sanitize normalizes untrusted file names before they are matched
// against accept rules.
package sanitize

import "strings"

// MaxNameLength is the longest name Filename returns
const MaxNameLength = 255

// Filename neutralizes path traversal, control characters, markup and NUL
// bytes in a reported file name. Steps run in a fixed order:
//  1. every rune outside [A-Za-z0-9._-] becomes '_'
//  2. runs of two or more '.' collapse into one
//  3. NUL characters are removed
//  4. the result is cut to MaxNameLength characters
//
// Characters are runes: a character outside the Basic Multilingual Plane
// becomes a single '_' and counts once toward MaxNameLength.
//
// The result is only used for matching; callers keep the original name.
func Filename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	var prevDot bool
	for _, r := range raw {
		if !isSafe(r) {
			r = '_'
		}
		if r == '.' {
			if prevDot {
				continue
			}
			prevDot = true
		} else {
			prevDot = false
		}
		b.WriteRune(r)
	}

	// Step 1 already replaced NUL, kept so the steps stay independent.
	name := strings.ReplaceAll(b.String(), "\x00", "")

	// Only ASCII remains, so byte and character length agree.
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
