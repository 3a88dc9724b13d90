// Contiguous slot container with named growth and shift operations.

package rows

import (
	"slices"
	"strconv"
)

// sequence is the logical array of slots. Every operation keeps
// slots[i].Index == i.
type sequence struct {
	slots []Slot
	// placeholders counts placeholders ever created, for unique UIDs.
	placeholders int
}

func (q *sequence) len() int {
	return len(q.slots)
}

func (q *sequence) placeholder(page, index int) Slot {
	q.placeholders++
	return Slot{
		UID:   "placeholder-" + strconv.Itoa(q.placeholders),
		Page:  page,
		Index: index,
		Kind:  KindPlaceholder,
	}
}

// reserve appends placeholders tagged for page until the sequence holds n
// slots.
func (q *sequence) reserve(page, n int) {
	for i := len(q.slots); i < n; i++ {
		q.slots = append(q.slots, q.placeholder(page, i))
	}
}

// shiftRight inserts n placeholders tagged for page at from, moving every
// slot at or after from n positions to the right.
func (q *sequence) shiftRight(page, from, n int) {
	if n <= 0 {
		return
	}
	from = min(max(from, 0), len(q.slots))
	gap := make([]Slot, n)
	for i := range gap {
		gap[i] = q.placeholder(page, from+i)
	}
	q.slots = slices.Insert(q.slots, from, gap...)
	q.reindex(from + n)
}

// shiftLeftRemove removes n slots starting at from, moving the following
// slots n positions to the left.
func (q *sequence) shiftLeftRemove(from, n int) {
	if n <= 0 || from >= len(q.slots) {
		return
	}
	from = max(from, 0)
	end := min(from+n, len(q.slots))
	q.slots = slices.Delete(q.slots, from, end)
	q.reindex(from)
}

// put stores s at index i, appending when i is the current length.
func (q *sequence) put(i int, s Slot) {
	s.Index = i
	if i == len(q.slots) {
		q.slots = append(q.slots, s)
		return
	}
	q.slots[i] = s
}

func (q *sequence) reindex(from int) {
	for i := from; i < len(q.slots); i++ {
		q.slots[i].Index = i
	}
}

func (q *sequence) reset() {
	q.slots = nil
	q.placeholders = 0
}
