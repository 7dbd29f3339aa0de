package accept

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		universal bool
		rules     []Rule
	}{
		{name: "star", input: "*", universal: true},
		{name: "padded star", input: "  *  ", universal: true},
		{name: "empty", input: ""},
		{name: "only separators", input: ",,,"},
		{name: "only whitespace entries", input: " , \t, "},
		{
			name:  "mixed",
			input: "Image/*, .PDF ,text/plain",
			rules: []Rule{
				{Kind: KindWildcardMime, Value: "image"},
				{Kind: KindExtension, Value: ".pdf"},
				{Kind: KindExactMime, Value: "text/plain"},
			},
		},
		{
			name:  "empty entries are skipped",
			input: "image/png,,,image/jpeg",
			rules: []Rule{
				{Kind: KindExactMime, Value: "image/png"},
				{Kind: KindExactMime, Value: "image/jpeg"},
			},
		},
		{
			name:  "wildcard with empty primary",
			input: "/*",
			rules: []Rule{{Kind: KindWildcardMime, Value: ""}},
		},
		{
			name:  "star primary is exact",
			input: "*/png",
			rules: []Rule{{Kind: KindExactMime, Value: "*/png"}},
		},
		{
			name:  "star inside list is not universal",
			input: "*,.txt",
			rules: []Rule{
				{Kind: KindExactMime, Value: "*"},
				{Kind: KindExtension, Value: ".txt"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Parse(tt.input)
			assert.Equal(t, tt.universal, spec.IsUniversal())
			if tt.universal {
				return
			}
			if len(tt.rules) == 0 {
				assert.Empty(t, spec.Rules())
				assert.True(t, spec.AcceptsNothing())
				return
			}
			assert.Equal(t, tt.rules, spec.Rules())
		})
	}
}

func TestRuleMatches(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		file     string
		mimeType string
		want     bool
	}{
		{"wildcard png", Rule{KindWildcardMime, "image"}, "a.png", "image/png", true},
		{"wildcard jpeg", Rule{KindWildcardMime, "image"}, "a.jpg", "image/jpeg", true},
		{"wildcard other primary", Rule{KindWildcardMime, "image"}, "a.mp4", "video/mp4", false},
		{"wildcard empty mime", Rule{KindWildcardMime, "image"}, "a.bin", "", false},
		{"wildcard mime without slash", Rule{KindWildcardMime, "image"}, "a.bin", "image", false},
		{"wildcard empty primary", Rule{KindWildcardMime, ""}, "a.bin", "/png", false},
		{"extension last only", Rule{KindExtension, ".gz"}, "archive.tar.gz", "", true},
		{"extension double ext", Rule{KindExtension, ".tar.gz"}, "archive.tar.gz", "", false},
		{"extension no dot", Rule{KindExtension, ".exe"}, "malware", "", false},
		{"exact", Rule{KindExactMime, "text/plain"}, "a", "text/plain", true},
		{"exact empty mime", Rule{KindExactMime, "text/plain"}, "a", "", false},
		{"exact double slash", Rule{KindExactMime, "image//png"}, "a", "image/png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(tt.file, tt.mimeType))
		})
	}
}

func TestSpecMatches_OrderDoesNotMatter(t *testing.T) {
	a := Parse("image/*,.pdf")
	b := Parse(".pdf,image/*")

	for _, c := range []struct{ name, mime string }{
		{"a.png", "image/png"},
		{"a.pdf", "application/pdf"},
		{"a.txt", "text/plain"},
	} {
		assert.Equal(t, a.Matches(c.name, c.mime), b.Matches(c.name, c.mime), c.name)
	}
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "*", Parse(" * ").String())
	assert.Equal(t, "image/*,.pdf,text/plain", Parse("IMAGE/*, .pdf, text/plain").String())
	assert.Equal(t, "", Parse(",,").String())
}
