package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/boddenberg/budget-sync-go/internal/domain"
)

// The remote store rejects literal "no value" markers (JSON null) inside
// documents, so every write goes through a recursive strip of null-valued
// fields first — including nulls nested in sequences and mappings.

// MarshalDocument renders doc as JSON with all null-valued optional
// fields removed.
func MarshalDocument(doc *domain.BudgetDocument) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("reparse document: %w", err)
	}

	stripped := StripNulls(tree)
	out, err := json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("remarshal document: %w", err)
	}
	return out, nil
}

// StripNulls walks a decoded JSON tree and removes map entries whose
// value is null, recursing into nested maps and slices. Null elements
// inside arrays are preserved as positions matter there; in practice the
// document model never produces them.
func StripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = StripNulls(val)
		}
		return t
	case []any:
		for i, val := range t {
			if val == nil {
				continue
			}
			t[i] = StripNulls(val)
		}
		return t
	default:
		return v
	}
}
