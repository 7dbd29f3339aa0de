// Package report renders emitted change events for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// Format selects the rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", domain.ErrConfigInvalid, s)
}

var (
	addedColor    = lipgloss.Color("#9ece6a")
	rejectedColor = lipgloss.Color("#f7768e")
	dimColor      = lipgloss.Color("#565f89")
	titleColor    = lipgloss.Color("#7aa2f7")
)

// styles are bound to the renderer of the output writer, so a file or a
// pipe gets plain text
type styles struct {
	title    lipgloss.Style
	added    lipgloss.Style
	rejected lipgloss.Style
	dim      lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(titleColor),
		added:    r.NewStyle().Bold(true).Foreground(addedColor),
		rejected: r.NewStyle().Bold(true).Foreground(rejectedColor),
		dim:      r.NewStyle().Foreground(dimColor),
	}
}

// Render writes event to w
func Render(w io.Writer, event domain.ChangeEvent, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(event)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(event); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, event)
	}
	return fmt.Errorf("%w: unknown output format %q", domain.ErrConfigInvalid, format)
}

func renderText(w io.Writer, event domain.ChangeEvent) error {
	st := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n",
		st.title.Render(fmt.Sprintf("%s: %s", event.Source, event.Kind)),
		st.dim.Render(event.InteractionID))

	fmt.Fprintf(&b, "%s\n", st.added.Render(fmt.Sprintf("Added (%d)", len(event.AddedFiles))))
	for _, f := range event.AddedFiles {
		fmt.Fprintf(&b, "  %s\n", fileLine(st, f))
	}

	fmt.Fprintf(&b, "%s\n", st.rejected.Render(fmt.Sprintf("Rejected (%d)", len(event.RejectedFiles))))
	for _, r := range event.RejectedFiles {
		fmt.Fprintf(&b, "  %s  %s\n", fileLine(st, r.File), st.rejected.Render(describe(r.Reason)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func fileLine(st styles, f domain.FileCandidate) string {
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "unknown type"
	}
	return fmt.Sprintf("%s  %s", f.DisplayPath(),
		st.dim.Render(fmt.Sprintf("%s, %s", mimeType, humanize.IBytes(uint64(max(f.Size, 0))))))
}

func describe(reason domain.RejectReason) string {
	switch reason {
	case domain.RejectType:
		return "type not accepted"
	case domain.RejectSize:
		return "too large"
	case domain.RejectNoMultiple:
		return "only one file allowed"
	}
	return string(reason)
}
