package adapter

import (
	"mime"
	"path/filepath"
	"strings"
)

// fallbackTypes covers common extensions missing from the builtin table when
// the host has no mime.types file
var fallbackTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MimeTypeByName guesses the media type from the file extension, without
// parameters ("text/plain", not "text/plain; charset=utf-8").
// Returns "" for unknown extensions.
func MimeTypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(ext)
	t, _, _ = strings.Cut(t, ";")
	t = strings.TrimSpace(t)
	if t == "" {
		t = fallbackTypes[ext]
	}
	return t
}
