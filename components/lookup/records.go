package lookup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// LoadRecords decodes a JSON array of records, or an object carrying the
// array under "data".
func LoadRecords(r io.Reader) (Static, error) {
	if r == nil {
		return nil, fmt.Errorf("lookup: missing reader")
	}
	var payload any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("lookup: decode records: %w", err)
	}
	switch payload.(type) {
	case []any, map[string]any:
	default:
		return nil, fmt.Errorf("lookup: expected an array of records, got %T", payload)
	}
	records := options.ExtractRecords(payload, "")
	out := make(Static, 0, len(records))
	for _, record := range records {
		out = append(out, schema.Row(record))
	}
	return out, nil
}
