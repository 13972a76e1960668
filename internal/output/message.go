package output

import (
	"fmt"
	"io"
	"os"
)

// Messenger prints human status lines. Warnings go to the error stream
// so they never mix with JSON results.
type Messenger struct {
	Out io.Writer
	Err io.Writer
}

// Std returns a messenger on stdout and stderr.
func Std() *Messenger {
	return &Messenger{Out: os.Stdout, Err: os.Stderr}
}

// Infof prints an informational line.
func (m *Messenger) Infof(format string, args ...any) {
	_, _ = fmt.Fprintln(m.Out, "ℹ️  "+fmt.Sprintf(format, args...))
}

// Warnf prints a warning line.
func (m *Messenger) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(m.Err, "⚠️  "+fmt.Sprintf(format, args...))
}

// Successf prints a success line.
func (m *Messenger) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(m.Out, "✅ "+fmt.Sprintf(format, args...))
}
