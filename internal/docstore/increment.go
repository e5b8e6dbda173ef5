package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ApplyIncrement adds delta to the dotted field path inside a JSON document
// body, creating intermediate objects as needed. A nil body stands for a
// document that does not exist yet; the document is created with only the
// incremented field set, which is what gives buckets their lazy creation.
//
// Both store implementations share this so increment semantics cannot drift
// between backends.
func ApplyIncrement(body []byte, field string, delta int64) ([]byte, error) {
	doc := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}

	parts := strings.Split(field, ".")
	node := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[p] = child
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	cur, err := numericValue(node[leaf])
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	node[leaf] = cur + delta

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

func numericValue(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer value %q", n.String())
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot increment non-numeric value of type %T", v)
	}
}
