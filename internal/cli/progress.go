package cli

import (
	"io"

	"github.com/fatih/color"
)

// Progress prints colored status lines.
type Progress struct {
	out  io.Writer
	step *color.Color
	warn *color.Color
}

// NewProgress creates a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{
		out:  out,
		step: color.New(color.FgCyan),
		warn: color.New(color.FgYellow),
	}
}

// Step prints a regular status line.
func (p *Progress) Step(format string, args ...any) {
	_, _ = p.step.Fprintf(p.out, format+"\n", args...)
}

// Warn prints a highlighted warning line.
func (p *Progress) Warn(format string, args ...any) {
	_, _ = p.warn.Fprintf(p.out, "⚠️  "+format+"\n", args...)
}

// Success prints a completion line.
func Success(out io.Writer, format string, args ...any) {
	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Fprintf(out, "✓ "+format+"\n", args...)
}

// Failure prints an error the way the CLI reports fatal problems.
func Failure(out io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprintf(out, "\n错误: %v\n\n", err)
}
