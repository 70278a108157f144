package ui

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jmurray2011/skein/internal/source"
)

// Renderer handles all terminal output with consistent styling.
type Renderer struct {
	out       io.Writer
	err       io.Writer
	noColor   bool
	quiet     bool
	highlight *regexp.Regexp
}

// NewRenderer creates a new Renderer with default settings.
func NewRenderer() *Renderer {
	return &Renderer{
		out: os.Stdout,
		err: os.Stderr,
	}
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		r.out = w
	}
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) {
		r.err = w
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) {
		r.noColor = noColor
	}
}

// WithQuiet enables quiet mode (suppresses status messages).
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// WithHighlight sets literal text to highlight in entry content.
func WithHighlight(text string) Option {
	return func(r *Renderer) {
		r.highlight = nil
		if text = strings.TrimSpace(text); text != "" {
			r.highlight = regexp.MustCompile("(?i)" + regexp.QuoteMeta(text))
		}
	}
}

// NewRendererWithOptions creates a new Renderer with the given options.
func NewRendererWithOptions(opts ...Option) *Renderer {
	r := NewRenderer()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// render applies styling if color is enabled.
func (r *Renderer) render(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

// say writes one formatted message line to w.
func (r *Renderer) say(w io.Writer, style *lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if style != nil {
		msg = r.render(*style, msg)
	}
	fmt.Fprintln(w, msg)
}

// Status reports progress on stderr. Quiet mode drops it.
func (r *Renderer) Status(format string, args ...any) {
	if !r.quiet {
		r.say(r.err, &StatusStyle, format, args...)
	}
}

// Info prints a plain line on stdout.
func (r *Renderer) Info(format string, args ...any) {
	r.say(r.out, nil, format, args...)
}

// Success confirms a completed change on stdout.
func (r *Renderer) Success(format string, args ...any) {
	r.say(r.out, &SuccessStyle, format, args...)
}

// Warning prints a warning on stderr.
func (r *Renderer) Warning(format string, args ...any) {
	r.say(r.err, &WarningStyle, "Warning: "+format, args...)
}

// Newline prints a blank line.
func (r *Renderer) Newline() {
	fmt.Fprintln(r.out)
}

// --- Log Entry Rendering ---

// timeLayout is the fixed-width timestamp shown for entries.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Highlight marks every case-insensitive occurrence of the search text.
func (r *Renderer) Highlight(text string) string {
	if r.highlight == nil || r.noColor {
		return text
	}
	return r.highlight.ReplaceAllStringFunc(text, func(match string) string {
		return HighlightStyle.Render(match)
	})
}

func (r *Renderer) level(l source.Level) string {
	text := fmt.Sprintf("%-5s", l)
	if l == source.LevelError {
		return r.render(ErrorLevelStyle, text)
	}
	return r.render(InfoLevelStyle, text)
}

func origin(e source.LogEntry) string {
	o := e.ServiceID
	if e.DeploymentID != "" {
		o += "/" + e.DeploymentID
	}
	if e.Source != "" {
		o += " " + e.Source
	}
	return o
}

// Entry renders a log entry as a header line followed by its indented
// content.
func (r *Renderer) Entry(e source.LogEntry) {
	fmt.Fprintf(r.out, "%s %s %s\n",
		r.render(TimestampStyle, e.Time.UTC().Format(timeLayout)),
		r.level(e.Level),
		r.render(OriginStyle, origin(e)))

	for _, line := range strings.Split(r.Highlight(e.Content), "\n") {
		fmt.Fprintf(r.out, "  %s\n", line)
	}
}

// Line renders a log entry on a single line, for the interactive viewer.
func (r *Renderer) Line(e source.LogEntry) string {
	content := strings.ReplaceAll(e.Content, "\n", " ")
	return fmt.Sprintf("%s %s %s",
		r.render(TimestampStyle, e.Time.UTC().Format(timeLayout)),
		r.level(e.Level),
		r.Highlight(content))
}

// Table prints rows under a header rule, columns padded to fit.
func (r *Renderer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow && !r.noColor {
				return LabelStyle.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	if !r.noColor {
		t = t.BorderStyle(MutedStyle)
	}
	fmt.Fprintln(r.out, t.Render())
}

// EmptyMessage is the empty-state text for a view filtered by search.
func EmptyMessage(search string) string {
	if search = strings.TrimSpace(search); search != "" {
		return fmt.Sprintf("No logs matching filter `%s`", search)
	}
	return "No logs yet"
}

// EmptyLine returns the styled empty-state message without printing it.
func (r *Renderer) EmptyLine(search string) string {
	return r.render(MutedStyle, EmptyMessage(search))
}

// NoResults prints the empty-state message for a view filtered by search.
func (r *Renderer) NoResults(search string) {
	fmt.Fprintln(r.out, r.EmptyLine(search))
}
