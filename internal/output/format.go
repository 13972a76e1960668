// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is the rendering of command results.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter carries the resolved output format of a command run. A nil
// Formatter renders text.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a formatter writing to w by default.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, writer: w}
}

// Format returns the resolved format.
func (f *Formatter) Format() Format {
	if f == nil {
		return FormatText
	}
	return f.format
}

// IsJSON reports whether results are rendered as JSON.
func (f *Formatter) IsJSON() bool {
	return f.Format() == FormatJSON
}

// Emit writes data as indented JSON, or calls text for text output. A nil
// w falls back to the formatter's writer.
func (f *Formatter) Emit(w io.Writer, data any, text func(io.Writer) error) error {
	if w == nil && f != nil {
		w = f.writer
	}
	if f.IsJSON() {
		return WriteJSON(w, data)
	}
	return text(w)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// DetectFormat resolves FormatAuto: text on a terminal, JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f, ok := w.(*os.File); ok {
		if term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
			return FormatText
		}
	}
	return FormatJSON
}

// ParseFormat maps a flag or config value to a Format; unknown values are auto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}
