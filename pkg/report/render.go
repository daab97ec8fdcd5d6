package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/goccy/go-json"
)

const rule = "----------------------------------"

// WriteText renders sections as header, rule, scalar lines and listing
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n%s\n%s\n", s.Title, rule)
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		for _, line := range s.Listing {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if s.Omitted > 0 {
			fmt.Fprintf(&b, "  ... %d more rows\n", s.Omitted)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the report as indented JSON
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Write renders r in the named format, "text" or "json"
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case "", "text":
		return WriteText(w, r)
	case "json":
		return WriteJSON(w, r)
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown report format %q", format)
	}
}
