// Package output renders engine reports as JSON or text. The JSON shape is
// a stable contract consumed by CI systems and agents.
package output

import (
	"encoding/json"
	"io"

	"github.com/fulmenhq/quench/internal/engine"
)

// WriteJSON emits the report document. The violations array is always
// present, even when empty.
func WriteJSON(w io.Writer, report *engine.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
