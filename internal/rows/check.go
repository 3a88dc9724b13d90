// Verifies the store's structural invariants.

package rows

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrInvariant is wrapped by every error returned by Check.
var ErrInvariant = errors.New("row store invariant violated")

// Check verifies that the sequence and the grouped projection are
// contiguous, that every ledger span matches the run of rows of its page,
// and that at most one page is flagged last.
//
// A failure means a caller broke the store's contract.
func (s *Store) Check() error {
	if err := checkContiguous("sequence", s.seq.slots); err != nil {
		return err
	}
	if err := checkContiguous("grouped projection", s.grouped); err != nil {
		return err
	}
	perPage := make(map[int]int)
	for i := range s.seq.slots {
		sl := &s.seq.slots[i]
		switch sl.Kind {
		case KindData:
			perPage[sl.Page]++
		case KindPlaceholder:
		case KindGroup:
			return fmt.Errorf("%w: group header at index %d of the sequence", ErrInvariant, i)
		default:
			return fmt.Errorf("%w: unknown slot kind %s at index %d", ErrInvariant, sl.Kind, i)
		}
	}
	lasts := 0
	for _, span := range s.ledger.PagesInfo() {
		if span.IsLast {
			lasts++
		}
		if span.Start < 0 || span.End() > len(s.seq.slots) {
			return fmt.Errorf("%w: page %d span [%d, %d) outside sequence of %d", ErrInvariant, span.Page, span.Start, span.End(), len(s.seq.slots))
		}
		for i := span.Start; i < span.End(); i++ {
			if sl := &s.seq.slots[i]; sl.Kind != KindData || sl.Page != span.Page {
				return fmt.Errorf("%w: page %d span [%d, %d) holds %s slot of page %d at %d", ErrInvariant, span.Page, span.Start, span.End(), sl.Kind, sl.Page, i)
			}
		}
		if perPage[span.Page] != span.Size {
			return fmt.Errorf("%w: page %d has %d rows, ledger says %d", ErrInvariant, span.Page, perPage[span.Page], span.Size)
		}
		delete(perPage, span.Page)
	}
	if len(perPage) != 0 {
		page := slices.Min(slices.Collect(maps.Keys(perPage)))
		return fmt.Errorf("%w: %d rows of page %d missing from the ledger", ErrInvariant, perPage[page], page)
	}
	if lasts > 1 {
		return fmt.Errorf("%w: %d pages flagged last", ErrInvariant, lasts)
	}
	return nil
}

func checkContiguous(name string, slots []Slot) error {
	for i := range slots {
		if slots[i].Index != i {
			return fmt.Errorf("%w: %s slot at position %d has index %d", ErrInvariant, name, i, slots[i].Index)
		}
	}
	return nil
}
