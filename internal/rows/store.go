// Maintains the logical row sequence as pages arrive.

package rows

import (
	"math"

	"github.com/maruel/rowgrid/internal/pages"
)

// Ledger is the page bookkeeping the Store keeps in agreement with its
// sequence. *pages.Ledger implements it.
type Ledger interface {
	AddPage(page, start, size int, isLast bool)
	PageInfo(page int) (pages.Span, bool)
	PagesInfo() []pages.Span
	NextLoaded(page int) (pages.Span, bool)
	ShiftFrom(page, delta int)
	Clear()
}

// Window selects the rows visible in a viewport.
type Window struct {
	ScrollTop float64
	RowHeight float64
	// Count is the number of rows the viewport shows.
	Count int
	// Page, when not 0, offsets the window by the page's start so that
	// ScrollTop is relative to that page.
	Page int
}

// Store owns the logical row sequence and its grouped projection.
type Store struct {
	ledger Ledger
	seq    sequence
	// defaultPageSize sizes placeholder room for pages never seen. Set by
	// the first non-empty page.
	defaultPageSize int

	groupBy         []string
	expanded        map[string]bool
	defaultExpanded bool
	grouped         []Slot
}

// NewStore returns an empty store keeping ledger up to date.
func NewStore(ledger Ledger) *Store {
	return &Store{
		ledger:          ledger,
		expanded:        make(map[string]bool),
		defaultExpanded: true,
	}
}

// AddPage places rows of page in the logical sequence.
//
// Pages may arrive in any order. A page seen before is reloaded: in place
// when its size is unchanged, otherwise the following rows are shifted and
// the ledger updated. Rows never overwrite another page's loaded rows. Pages
// below 1 are ignored.
func (s *Store) AddPage(rows []Row, page int, isLast bool) {
	if page < 1 {
		return
	}
	size := len(rows)
	if s.defaultPageSize == 0 && size > 0 {
		s.defaultPageSize = size
	}

	if existing, ok := s.ledger.PageInfo(page); ok {
		s.reloadPage(existing, rows)
		s.ledger.AddPage(page, existing.Start, size, isLast)
		s.rebuildGroups()
		return
	}

	start := s.startIndex(page)
	s.seq.reserve(page, start)
	if next, ok := s.ledger.NextLoaded(page); ok {
		if start > next.Start {
			start = next.Start
		}
		if available := next.Start - start; size > available {
			s.seq.shiftRight(page, start+available, size-available)
			s.ledger.ShiftFrom(page, size-available)
		}
	}
	for i, r := range rows {
		s.seq.put(start+i, dataSlot(r, page, start+i))
	}
	s.ledger.AddPage(page, start, size, isLast)
	s.rebuildGroups()
}

// reloadPage rewrites the rows of an already loaded page.
func (s *Store) reloadPage(existing pages.Span, rows []Row) {
	delta := len(rows) - existing.Size
	switch {
	case delta > 0:
		s.seq.shiftRight(existing.Page, existing.End(), delta)
		s.ledger.ShiftFrom(existing.Page, delta)
	case delta < 0:
		s.seq.shiftLeftRemove(existing.End()+delta, -delta)
		s.ledger.ShiftFrom(existing.Page, delta)
	}
	for i, r := range rows {
		s.seq.put(existing.Start+i, dataSlot(r, existing.Page, existing.Start+i))
	}
}

// startIndex walks the pages before page, using loaded spans where known
// and the default page size elsewhere.
func (s *Store) startIndex(page int) int {
	start := 0
	for p := 1; p < page; p++ {
		if info, ok := s.ledger.PageInfo(p); ok {
			start = info.End()
		} else {
			start += s.defaultPageSize
		}
	}
	return start
}

// FillVisibleRows writes the slots visible in w into dst, reusing its
// capacity, and returns the window.
//
// The grouped projection is read when grouping is active. An empty window
// is returned for a non-positive row height or count, or when the window
// starts past the end.
func (s *Store) FillVisibleRows(dst []Slot, w Window) []Slot {
	dst = dst[:0]
	if w.RowHeight <= 0 || w.Count <= 0 {
		return dst
	}
	src := s.view()
	offset := 0
	if w.Page != 0 {
		if info, ok := s.ledger.PageInfo(w.Page); ok {
			offset = info.Start
		}
	}
	pos := float64(offset) + math.Floor(w.ScrollTop/w.RowHeight)
	if math.IsNaN(pos) || pos >= float64(len(src)) {
		return dst
	}
	start := int(max(0, pos))
	end := start + min(w.Count, len(src)-start)
	return append(dst, src[start:end]...)
}

// view returns the sequence windows are read from.
func (s *Store) view() []Slot {
	if s.IsGrouped() {
		return s.grouped
	}
	return s.seq.slots
}

// RowsCount returns the length of the grouped projection when grouping is
// active, the length of the logical sequence otherwise.
func (s *Store) RowsCount() int {
	return len(s.view())
}

// PageRowsCount returns the number of rows loaded for page, 0 if unknown.
// Grouping does not apply.
func (s *Store) PageRowsCount(page int) int {
	info, _ := s.ledger.PageInfo(page)
	return info.Size
}

// LoadedRowsCount returns the number of loaded rows, placeholders excluded.
func (s *Store) LoadedRowsCount() int {
	n := 0
	for _, p := range s.ledger.PagesInfo() {
		n += p.Size
	}
	return n
}

// Rows returns the loaded rows in logical order.
func (s *Store) Rows() []Row {
	out := make([]Row, 0, len(s.seq.slots))
	for i := range s.seq.slots {
		if sl := &s.seq.slots[i]; sl.Kind == KindData {
			out = append(out, sl.Row)
		}
	}
	return out
}

// DefaultPageSize returns the size used to reserve room for unseen pages.
func (s *Store) DefaultPageSize() int {
	return s.defaultPageSize
}

// Clear drops every row, the ledger and the grouping state.
func (s *Store) Clear() {
	s.seq.reset()
	s.defaultPageSize = 0
	s.ledger.Clear()
	s.groupBy = nil
	s.expanded = make(map[string]bool)
	s.grouped = nil
}
