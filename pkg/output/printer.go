// pkg/output/printer.go

// Package output renders operator-facing lines. Logs go to stderr through zap;
// the lines written here are the part of the run an operator reads.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#5C7A84")
	colorBorder  = lipgloss.Color("#16858E")
)

// Printer writes prefixed status lines. Colour is applied only when the
// writer is a terminal that supports it.
type Printer struct {
	w io.Writer

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	title   lipgloss.Style
	box     lipgloss.Style
}

// New returns a Printer bound to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		failure: r.NewStyle().Foreground(colorError),
		muted:   r.NewStyle().Foreground(colorMuted),
		title:   r.NewStyle().Bold(true).Foreground(colorSuccess),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
	}
}

// Writer exposes the underlying writer for prompts.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Success prints "[+] msg".
func (p *Printer) Success(format string, args ...any) {
	p.line(p.success, "[+]", format, args...)
}

// Info prints "[*] msg".
func (p *Printer) Info(format string, args ...any) {
	p.line(p.muted, "[*]", format, args...)
}

// Warn prints "[!] msg".
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.warning, "[!]", format, args...)
}

// Error prints "[-] msg".
func (p *Printer) Error(format string, args ...any) {
	p.line(p.failure, "[-]", format, args...)
}

// Title prints a bold heading.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.title.Render(text))
}

// Plain prints text unchanged.
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Box prints text inside a rounded border.
func (p *Printer) Box(text string) {
	fmt.Fprintln(p.w, p.box.Render(strings.TrimRight(text, "\n")))
}

func (p *Printer) line(style lipgloss.Style, prefix, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", style.Render(prefix), fmt.Sprintf(format, args...))
}
