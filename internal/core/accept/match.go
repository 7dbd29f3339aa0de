package accept

import "strings"

// Matches reports whether the rule matches a candidate. name must already
// be sanitized and lower-cased, mimeType lower-cased.
func (r Rule) Matches(name, mimeType string) bool {
	switch r.Kind {
	case KindWildcardMime:
		if r.Value == "" {
			return false
		}
		primary, _, found := strings.Cut(mimeType, "/")
		if !found {
			return false
		}
		return primary == r.Value
	case KindExtension:
		lastDot := strings.LastIndexByte(name, '.')
		if lastDot == -1 {
			return false
		}
		return name[lastDot:] == r.Value
	case KindExactMime:
		return r.Value == mimeType
	}
	return false
}

// Matches reports whether any rule matches. Inputs follow Rule.Matches.
func (s Spec) Matches(name, mimeType string) bool {
	if s.universal {
		return true
	}
	for _, r := range s.rules {
		if r.Matches(name, mimeType) {
			return true
		}
	}
	return false
}
