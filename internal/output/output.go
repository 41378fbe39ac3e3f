package output

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/dshills/triage/internal/aggregate"
)

// Writer writes an aggregation result in a specific format.
type Writer interface {
	Write(w io.Writer, result *aggregate.Result) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "count":
		return &CountWriter{}, nil
	default:
		return nil, errors.Newf("unsupported output format: %s", format)
	}
}

// WriteResult writes the result to outPath, or stdout when outPath is empty.
// details only affects the text format.
func WriteResult(result *aggregate.Result, format, outPath string, details bool) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if tw, ok := writer.(*TextWriter); ok {
		tw.Details = details
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, result)
}

// errWriter accumulates the first write error so format code can stay
// unconditional.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	ew.printf("%s\n", s)
}
