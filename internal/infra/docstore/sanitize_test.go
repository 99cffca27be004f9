package docstore

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/boddenberg/budget-sync-go/internal/domain"
)

func TestStripNulls_RemovesNullMapEntries(t *testing.T) {
	var tree any
	if err := json.Unmarshal([]byte(`{"a":1,"b":null,"c":{"d":null,"e":"x"}}`), &tree); err != nil {
		t.Fatal(err)
	}

	got := StripNulls(tree).(map[string]any)
	if _, ok := got["b"]; ok {
		t.Error("expected top-level null entry removed")
	}
	nested := got["c"].(map[string]any)
	if _, ok := nested["d"]; ok {
		t.Error("expected nested null entry removed")
	}
	if nested["e"] != "x" {
		t.Error("expected non-null entries preserved")
	}
}

func TestStripNulls_RecursesIntoArrays(t *testing.T) {
	var tree any
	if err := json.Unmarshal([]byte(`{"items":[{"id":1,"ref":null},{"id":2}]}`), &tree); err != nil {
		t.Fatal(err)
	}

	got := StripNulls(tree).(map[string]any)
	items := got["items"].([]any)
	first := items[0].(map[string]any)
	if _, ok := first["ref"]; ok {
		t.Error("expected null entry inside array element removed")
	}
}

func TestMarshalDocument_OmitsNullOptionalFields(t *testing.T) {
	doc := domain.DefaultDocument()

	out, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("MarshalDocument: %v", err)
	}
	if strings.Contains(string(out), "null") {
		t.Errorf("expected no null values in output, got %s", out)
	}

	// Round-trips back into the model.
	var back domain.BudgetDocument
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal round-trip: %v", err)
	}
	if len(back.Incomes) != len(doc.Incomes) {
		t.Errorf("expected %d incomes after round-trip, got %d", len(doc.Incomes), len(back.Incomes))
	}
	if back.Expenses[1].CategoryID == nil || *back.Expenses[1].CategoryID != 1 {
		t.Error("expected set optional fields to survive sanitizing")
	}
}
