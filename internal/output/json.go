package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/dshills/triage/internal/aggregate"
)

// JSONWriter outputs the full result as JSON, warnings included.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, result *aggregate.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling JSON")
	}
	_, err = w.Write(data)
	if err != nil {
		return errors.Wrap(err, "writing JSON")
	}
	_, err = fmt.Fprintln(w)
	return err
}

// CountWriter outputs only the post-filter total.
type CountWriter struct{}

func (c *CountWriter) Write(w io.Writer, result *aggregate.Result) error {
	_, err := fmt.Fprintln(w, result.Total)
	return err
}
