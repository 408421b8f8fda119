package cli

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// reportStyles colours the lines of a check report.
type reportStyles struct {
	File   lipgloss.Style
	Broken lipgloss.Style
	Muted  lipgloss.Style
	OK     lipgloss.Style
}

func defaultReportStyles() reportStyles {
	return reportStyles{
		File:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
		Broken: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		OK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styledWriter colours complete report lines. Partial lines are held
// until their newline arrives or Flush is called.
type styledWriter struct {
	out    io.Writer
	styles reportStyles
	buf    bytes.Buffer
}

// newReportWriter returns w unchanged unless it is a terminal.
func newReportWriter(w io.Writer) io.Writer {
	if !isTerminal(w) {
		return w
	}
	return &styledWriter{out: w, styles: defaultReportStyles()}
}

func (w *styledWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		if _, err := io.WriteString(w.out, w.style(strings.TrimSuffix(line, "\n"))+"\n"); err != nil {
			return len(p), err
		}
	}
}

// Flush writes any buffered partial line.
func (w *styledWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w.out, w.style(w.buf.String()))
	w.buf.Reset()
	return err
}

func (w *styledWriter) style(line string) string {
	switch {
	case strings.HasPrefix(line, "File Location: "):
		return w.styles.File.Render(line)
	case strings.HasPrefix(line, "\tBroken link"):
		return "\t" + w.styles.Broken.Render(strings.TrimPrefix(line, "\t"))
	case strings.HasPrefix(line, "Broken link "):
		return w.styles.Broken.Render(line)
	default:
		return line
	}
}

// flushWriter flushes w if it buffers output.
func flushWriter(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
