// Package accept parses accept specifications ("image/*,.pdf,text/plain")
// into match rules.
package accept

import (
	"strings"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// Kind tags the variant of a Rule
type Kind int

const (
	// KindWildcardMime matches on the MIME primary type ("image/*")
	KindWildcardMime Kind = iota
	// KindExactMime matches the full MIME type ("text/plain")
	KindExactMime
	// KindExtension matches the last extension of the file name (".pdf")
	KindExtension
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindWildcardMime:
		return "wildcard"
	case KindExactMime:
		return "mime"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Rule is one parsed accept entry. Value is lower-cased; for
// KindWildcardMime it holds the primary type only (may be empty for
// malformed input such as "/*"), for KindExtension it starts with '.'.
type Rule struct {
	Kind  Kind
	Value string
}

// Spec is a parsed accept specification
type Spec struct {
	universal bool
	rules     []Rule
}

// Universal returns the spec that accepts everything
func Universal() Spec {
	return Spec{universal: true}
}

// IsUniversal reports whether the spec is the accept-everything sentinel
func (s Spec) IsUniversal() bool {
	return s.universal
}

// Rules returns a copy of the parsed rules, in parse order
func (s Spec) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// AcceptsNothing reports whether no candidate can ever match
func (s Spec) AcceptsNothing() bool {
	return !s.universal && len(s.rules) == 0
}

// Parse turns an accept string into a Spec. It never fails: empty
// input and input made only of empty entries yield a spec that accepts
// nothing.
func Parse(accept string) Spec {
	if strings.TrimSpace(accept) == domain.AcceptAll {
		return Universal()
	}

	var rules []Rule
	for _, piece := range strings.Split(accept, ",") {
		piece = strings.ToLower(strings.TrimSpace(piece))
		if piece == "" {
			continue
		}
		rules = append(rules, parseRule(piece))
	}

	return Spec{rules: rules}
}

func parseRule(piece string) Rule {
	switch {
	case strings.HasPrefix(piece, "."):
		return Rule{Kind: KindExtension, Value: piece}
	case strings.HasSuffix(piece, "/*"):
		primary, _, _ := strings.Cut(piece, "/")
		return Rule{Kind: KindWildcardMime, Value: primary}
	default:
		return Rule{Kind: KindExactMime, Value: piece}
	}
}

// String renders the spec back into accept syntax
func (s Spec) String() string {
	if s.universal {
		return domain.AcceptAll
	}
	parts := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Kind == KindWildcardMime {
			parts = append(parts, r.Value+"/*")
			continue
		}
		parts = append(parts, r.Value)
	}
	return strings.Join(parts, ",")
}
