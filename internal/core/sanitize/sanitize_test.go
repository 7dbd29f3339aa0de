package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "report-2024_v1.pdf", "report-2024_v1.pdf"},
		{"consecutive dots", "file...txt", "file.txt"},
		{"unix traversal", "../../etc/passwd", "._._etc_passwd"},
		{"windows traversal", `..\..\windows\system32\config`, "._._windows_system32_config"},
		{"null byte", "evil.exe\x00.jpg", "evil.exe_.jpg"},
		{"rtl override", "file\u202e.txt.exe", "file_.txt.exe"},
		{"script tag", "<script>alert(1)</script>.jpg", "_script_alert_1___script_.jpg"},
		{"spaces", "my photo.PNG", "my_photo.PNG"},
		{"unicode", "résumé.pdf", "r_sum_.pdf"},
		{"astral rune", "photo\U0001F600.png", "photo_.png"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.input))
		})
	}
}

func TestFilename_Truncates(t *testing.T) {
	long := strings.Repeat("a", 1000) + ".txt"

	got := Filename(long)

	assert.Len(t, got, MaxNameLength)
	assert.NotContains(t, got, ".", "extension is cut off by truncation")
}

func TestFilename_TruncatesByRune(t *testing.T) {
	got := Filename(strings.Repeat("\U0001F600", 300) + ".png")

	assert.Equal(t, strings.Repeat("_", MaxNameLength), got)
}

func TestFilename_Idempotent(t *testing.T) {
	inputs := []string{
		"file...txt",
		"../../etc/passwd",
		"evil.exe\x00.jpg",
		strings.Repeat("ä", 300) + ".png",
		"a..b...c....d",
	}

	for _, in := range inputs {
		once := Filename(in)
		assert.Equal(t, once, Filename(once), in)
	}
}
