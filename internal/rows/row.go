// Defines row payloads and property access.

// Package rows maintains the logical row sequence of a virtualized grid.
//
// # Overview
//
// A [Store] holds one contiguous sequence of slots. A slot is either a row
// delivered by a page, a placeholder reserving room for a page not loaded
// yet, or (in the grouped projection) a group header. Pages may arrive in
// any order and with any size; the store keeps the sequence contiguous and
// keeps a page ledger in agreement with it.
//
// # Projections
//
// [Store.Sort] permutes rows in place while keeping every page's row count.
// [Store.SetGroupBy] derives a separate flattened sequence of group headers
// and rows; the raw sequence is kept so ungrouping restores it.
//
// The store is synchronous and not safe for concurrent use.
package rows

import (
	"fmt"
	"strings"
)

// Row is a row payload as decoded from JSON.
type Row map[string]any

// Value returns the value of prop.
//
// A prop that isn't a direct key but contains dots is resolved through
// nested maps, so "address.city" reads row["address"]["city"].
func (r Row) Value(prop string) any {
	if r == nil {
		return nil
	}
	if v, ok := r[prop]; ok {
		return v
	}
	if !strings.Contains(prop, ".") {
		return nil
	}
	var cur any = map[string]any(r)
	for part := range strings.SplitSeq(prop, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[part]
		case Row:
			cur = m[part]
		default:
			return nil
		}
	}
	return cur
}

// stringify renders a grouping value; nil becomes the empty string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
