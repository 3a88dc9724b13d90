// Provides multi-key stable sorting of the logical sequence.

package rows

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// SortDir is a sort direction.
type SortDir string

const (
	// SortAsc sorts in ascending order.
	SortAsc SortDir = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortDir = "desc"
)

// Valid reports whether d is a known direction.
func (d SortDir) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// SortKey orders rows by one property.
type SortKey struct {
	Prop string  `json:"prop" yaml:"prop" jsonschema:"description=Row property to sort by"`
	Dir  SortDir `json:"dir" yaml:"dir" jsonschema:"enum=asc,enum=desc,description=Sort direction"`
}

// Sort reorders loaded rows by keys, keeping every page's row count.
//
// Sorting is stable. Rows missing a key's value sort after rows having it,
// whatever the direction. Placeholders stay out of the pages' spans. An
// empty keys is a no-op.
func (s *Store) Sort(keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sorted := slices.Clone(s.seq.slots)
	slices.SortStableFunc(sorted, func(a, b Slot) int {
		return compareSlots(&a, &b, keys)
	})
	next := 0
	for _, span := range s.ledger.PagesInfo() {
		for i := range span.Size {
			if next >= len(sorted) || sorted[next].Kind != KindData {
				break
			}
			sl := sorted[next]
			sl.Page = span.Page
			sl.Index = span.Start + i
			s.seq.slots[sl.Index] = sl
			next++
		}
	}
	s.rebuildGroups()
}

// compareSlots orders data slots by keys and placeholders last.
func compareSlots(a, b *Slot, keys []SortKey) int {
	pa, pb := a.Kind != KindData, b.Kind != KindData
	switch {
	case pa && pb:
		return 0
	case pa:
		return 1
	case pb:
		return -1
	}
	return CompareRows(a.Row, b.Row, keys)
}

// CompareRows orders two rows by keys, returning -1, 0 or 1.
func CompareRows(a, b Row, keys []SortKey) int {
	for i := range keys {
		k := &keys[i]
		if k.Prop == "" {
			continue
		}
		va, vb := a.Value(k.Prop), b.Value(k.Prop)
		if equalValues(va, vb) {
			continue
		}
		// Missing values lose in both directions.
		if va == nil {
			return 1
		}
		if vb == nil {
			return -1
		}
		c := compareValues(va, vb)
		if k.Dir == SortDesc {
			return -c
		}
		return c
	}
	return 0
}

// equalValues reports whether two property values are the same, treating
// numbers of different Go types by value.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case time.Time:
		vb, ok := b.(time.Time)
		return ok && va.Equal(vb)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues compares two non-nil, unequal values, returning -1 or 1.
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return nonZero(cmp.Compare(fa, fb))
		}
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return nonZero(cmp.Compare(va, vb))
		}
	case bool:
		if vb, ok := b.(bool); ok && va != vb {
			if vb {
				return -1
			}
			return 1
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return nonZero(va.Compare(vb))
		}
	}
	return nonZero(cmp.Compare(fmt.Sprint(a), fmt.Sprint(b)))
}

// nonZero maps "not greater" to -1, matching a > b ? 1 : -1.
func nonZero(c int) int {
	if c > 0 {
		return 1
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
