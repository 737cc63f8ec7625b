// Package output renders CLI messages as styled text, markdown, or JSON.
//
// Mode auto resolves by terminal detection: interactive runs get styled
// text, piped runs get markdown. In JSON mode stdout carries only
// machine-readable data and status messages are routed to stderr.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how renderer output is formatted.
type OutputMode string

const (
	// ModeAuto picks text on a terminal and markdown when piped.
	ModeAuto OutputMode = "auto"
	// ModeText produces styled human-readable output.
	ModeText OutputMode = "text"
	// ModeMarkdown produces plain markdown without ANSI codes.
	ModeMarkdown OutputMode = "markdown"
	// ModeJSON reserves stdout for JSON documents.
	ModeJSON OutputMode = "json"
)

// Mode parses a mode name. Unknown names fall back to ModeAuto.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes formatted CLI output to an out and an error stream.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   OutputMode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting terminal state from out.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
// Tests use this to exercise both interactive and piped behavior.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	profile := termenv.Ascii
	if resolveMode(mode, isTTY) == ModeText && isTTY && !termenv.EnvNoColor() {
		profile = termenv.EnvColorProfile()
	}
	lr := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: newStyles(lr),
	}
}

func resolveMode(mode OutputMode, isTTY bool) OutputMode {
	if mode != ModeAuto {
		return mode
	}
	if isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// EffectiveMode returns the mode after auto-detection has been applied.
func (r *Renderer) EffectiveMode() OutputMode {
	return resolveMode(r.mode, r.isTTY)
}

// Writer returns the primary output stream.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the error output stream.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Styles returns the style set matched to the renderer's color profile.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Println writes a line to the primary output stream.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to the primary output stream.
func (r *Renderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

// JSON writes v as an indented JSON document to the primary output stream.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// msgWriter returns the stream for human-facing status messages. In JSON
// mode these move to stderr so stdout stays parseable.
func (r *Renderer) msgWriter() io.Writer {
	if r.EffectiveMode() == ModeJSON {
		return r.errOut
	}
	return r.out
}

// Success prints a confirmation message.
func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.msgWriter(), r.styles.Success.Render("✓")+" "+msg)
}

// Warning prints a warning message to the error stream.
func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Warning.Render("⚠")+" "+msg)
}

// Error prints an error message to the error stream.
func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Error.Render("✗")+" "+msg)
}

// Muted prints secondary information.
func (r *Renderer) Muted(msg string) {
	fmt.Fprintln(r.msgWriter(), r.styles.Muted.Render(msg))
}

// Header prints a section header appropriate for the effective mode.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		fmt.Fprintln(r.out, FormatHeader(level, text))
		return
	}
	style := r.styles.Header1
	if level >= 2 {
		style = r.styles.Header2
	}
	fmt.Fprintln(r.msgWriter(), style.Render(text))
}

// StatusLine prints an item with a status glyph and optional detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	var glyph string
	switch status {
	case "success":
		glyph = r.styles.Success.Render("✓")
	case "failed", "error":
		glyph = r.styles.Error.Render("✗")
	case "warning":
		glyph = r.styles.Warning.Render("⚠")
	case "skipped":
		glyph = r.styles.Muted.Render("-")
	default:
		glyph = r.styles.Muted.Render("•")
	}
	line := "  " + glyph + " " + name
	if detail != "" {
		line += "  " + r.styles.Muted.Render(detail)
	}
	fmt.Fprintln(r.msgWriter(), line)
}
