package store

import (
	"encoding/json"

	ierr "github.com/blocapp/billing/internal/errors"
)

// DocumentFrom converts a domain model into its stored representation via
// its JSON encoding
func DocumentFrom(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode document").
			Mark(ierr.ErrSystem)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode document").
			Mark(ierr.ErrSystem)
	}
	return doc, nil
}

// DocumentTo decodes a stored document into a domain model
func DocumentTo(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode document").
			Mark(ierr.ErrSystem)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode document").
			Mark(ierr.ErrSystem)
	}
	return nil
}

// Clone returns a deep copy of the document so callers never alias the
// store's internal state
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
