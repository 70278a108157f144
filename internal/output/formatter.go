package output

import (
	"encoding/csv"
	"io"
	"strings"

	skerrors "github.com/jmurray2011/skein/internal/errors"
	"github.com/jmurray2011/skein/internal/ui"
)

// Format specifies the output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", skerrors.UnknownFormatError(s, []string{string(FormatText), string(FormatJSON), string(FormatCSV)})
	}
}

// Formatter writes log entries in one of the output formats. A Formatter
// is used either for one FormatEntries call or for a sequence of
// WriteEntry calls, not both.
type Formatter struct {
	format   Format
	writer   io.Writer
	opts     []ui.Option
	renderer *ui.Renderer
	search   string

	csv         *csv.Writer
	wroteHeader bool
}

// NewFormatter creates a new formatter with the specified format.
func NewFormatter(format Format, writer io.Writer, opts ...ui.Option) *Formatter {
	f := &Formatter{
		format: format,
		writer: writer,
		opts:   append([]ui.Option{ui.WithOutput(writer)}, opts...),
	}
	f.renderer = ui.NewRendererWithOptions(f.opts...)
	return f
}

// WithHighlight marks occurrences of the search text in text output. The
// text is matched literally and case-insensitively. An empty text view
// names it in its message.
func (f *Formatter) WithHighlight(text string) *Formatter {
	f.search = text
	f.opts = append(f.opts, ui.WithHighlight(text))
	f.renderer = ui.NewRendererWithOptions(f.opts...)
	return f
}

var csvHeader = []string{"time", "level", "service", "deployment", "source", "content", "id"}
