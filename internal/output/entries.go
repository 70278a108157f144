package output

import (
	"encoding/csv"
	"encoding/json"
	"time"

	"github.com/jmurray2011/skein/internal/source"
)

type jsonEntry struct {
	ID         string `json:"id"`
	Time       string `json:"time"`
	Level      string `json:"level"`
	Service    string `json:"service"`
	Deployment string `json:"deployment,omitempty"`
	Source     string `json:"source,omitempty"`
	Content    string `json:"content"`
}

func toJSON(e source.LogEntry) jsonEntry {
	return jsonEntry{
		ID:         e.ID.String(),
		Time:       e.Time.UTC().Format(time.RFC3339Nano),
		Level:      string(e.Level),
		Service:    e.ServiceID,
		Deployment: e.DeploymentID,
		Source:     e.Source,
		Content:    e.Content,
	}
}

func csvRecord(e source.LogEntry) []string {
	return []string{
		e.Time.UTC().Format(time.RFC3339Nano),
		string(e.Level),
		e.ServiceID,
		e.DeploymentID,
		e.Source,
		e.Content,
		e.ID.String(),
	}
}

// FormatEntries outputs a display sequence (oldest first) in the
// configured format.
func (f *Formatter) FormatEntries(entries []source.LogEntry) error {
	switch f.format {
	case FormatJSON:
		out := make([]jsonEntry, len(entries))
		for i, e := range entries {
			out[i] = toJSON(e)
		}
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)

	case FormatCSV:
		w := csv.NewWriter(f.writer)
		if err := w.Write(csvHeader); err != nil {
			return err
		}
		for _, e := range entries {
			if err := w.Write(csvRecord(e)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()

	default:
		if len(entries) == 0 {
			f.renderer.NoResults(f.search)
			return nil
		}
		for _, e := range entries {
			f.renderer.Entry(e)
		}
		return nil
	}
}

// WriteEntry outputs a single entry as it arrives. JSON is written one
// object per line and CSV writes its header before the first entry.
func (f *Formatter) WriteEntry(e source.LogEntry) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.writer).Encode(toJSON(e))

	case FormatCSV:
		if f.csv == nil {
			f.csv = csv.NewWriter(f.writer)
		}
		if !f.wroteHeader {
			if err := f.csv.Write(csvHeader); err != nil {
				return err
			}
			f.wroteHeader = true
		}
		if err := f.csv.Write(csvRecord(e)); err != nil {
			return err
		}
		f.csv.Flush()
		return f.csv.Error()

	default:
		f.renderer.Entry(e)
		return nil
	}
}
