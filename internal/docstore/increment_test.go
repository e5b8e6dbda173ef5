package docstore

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestApplyIncrementCreatesDocument(t *testing.T) {
	body, err := ApplyIncrement(nil, "net", 500)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	doc := decode(t, body)
	if doc["net"].(float64) != 500 {
		t.Fatalf("net = %v, want 500", doc["net"])
	}
}

func TestApplyIncrementDottedPath(t *testing.T) {
	body, err := ApplyIncrement(nil, "byCategory.groceries", -200)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	body, err = ApplyIncrement(body, "byCategory.rent", 100)
	if err != nil {
		t.Fatalf("apply second: %v", err)
	}

	doc := decode(t, body)
	byCat := doc["byCategory"].(map[string]any)
	if byCat["groceries"].(float64) != -200 {
		t.Fatalf("groceries = %v, want -200", byCat["groceries"])
	}
	if byCat["rent"].(float64) != 100 {
		t.Fatalf("rent = %v, want 100", byCat["rent"])
	}
}

func TestApplyIncrementAccumulates(t *testing.T) {
	body := []byte(`{"net": 300, "byCategory": {"a": 300}}`)
	body, err := ApplyIncrement(body, "net", -100)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	body, err = ApplyIncrement(body, "byCategory.a", -100)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	doc := decode(t, body)
	if doc["net"].(float64) != 200 {
		t.Fatalf("net = %v, want 200", doc["net"])
	}
	if doc["byCategory"].(map[string]any)["a"].(float64) != 200 {
		t.Fatalf("byCategory.a wrong: %v", doc["byCategory"])
	}
}

func TestApplyIncrementNonNumericField(t *testing.T) {
	body := []byte(`{"name": "groceries"}`)
	if _, err := ApplyIncrement(body, "name", 1); err == nil {
		t.Fatal("expected error incrementing a string field")
	}
}

func TestApplyIncrementPreservesOtherFields(t *testing.T) {
	body := []byte(`{"net": 1, "income": 1, "expense": 0}`)
	body, err := ApplyIncrement(body, "net", 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	doc := decode(t, body)
	if doc["income"].(float64) != 1 || doc["expense"].(float64) != 0 {
		t.Fatalf("sibling fields changed: %v", doc)
	}
}
