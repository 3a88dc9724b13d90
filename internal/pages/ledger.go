// Tracks where each loaded page lives in the logical row sequence.

// Package pages records the span every loaded page occupies in a grid's
// logical row sequence.
//
// A Ledger is not safe for concurrent use; callers serialize access.
package pages

import (
	"maps"
	"slices"
)

// Span is the contiguous range [Start, Start+Size) a page occupies.
type Span struct {
	Page    int  `json:"page"`
	Start   int  `json:"start"`
	Size    int  `json:"size"`
	IsFirst bool `json:"is_first"`
	IsLast  bool `json:"is_last"`
}

// End returns the index one past the last row of the span.
func (s Span) End() int {
	return s.Start + s.Size
}

// Ledger maps page numbers to their spans.
type Ledger struct {
	spans map[int]Span
	// last is the page currently flagged IsLast, 0 when none.
	last int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{spans: make(map[int]Span)}
}

// AddPage inserts or overwrites the span for page.
//
// When isLast is true the page becomes the only last page and the previous
// last page loses its flag.
func (l *Ledger) AddPage(page, start, size int, isLast bool) {
	if l.spans == nil {
		l.spans = make(map[int]Span)
	}
	if isLast && l.last != 0 && l.last != page {
		if prev, ok := l.spans[l.last]; ok {
			prev.IsLast = false
			l.spans[l.last] = prev
		}
	}
	switch {
	case isLast:
		l.last = page
	case l.last == page:
		l.last = 0
	}
	l.spans[page] = Span{
		Page:    page,
		Start:   start,
		Size:    size,
		IsFirst: page == 1,
		IsLast:  isLast,
	}
}

// PageInfo returns the span of page, or false if it isn't loaded.
func (l *Ledger) PageInfo(page int) (Span, bool) {
	s, ok := l.spans[page]
	return s, ok
}

// PagesInfo returns all spans sorted by page number.
func (l *Ledger) PagesInfo() []Span {
	out := make([]Span, 0, len(l.spans))
	for _, p := range slices.Sorted(maps.Keys(l.spans)) {
		out = append(out, l.spans[p])
	}
	return out
}

// RemovePage drops the span of page.
func (l *Ledger) RemovePage(page int) {
	delete(l.spans, page)
	if l.last == page {
		l.last = 0
	}
}

// TotalPages returns the number of loaded pages.
func (l *Ledger) TotalPages() int {
	return len(l.spans)
}

// IsFirstPage reports whether page is loaded and is page 1.
func (l *Ledger) IsFirstPage(page int) bool {
	return l.spans[page].IsFirst
}

// IsLastPage reports whether page is loaded and flagged last.
func (l *Ledger) IsLastPage(page int) bool {
	return l.spans[page].IsLast
}

// LastPage returns the page flagged last, if any.
func (l *Ledger) LastPage() (int, bool) {
	return l.last, l.last != 0
}

// NextLoaded returns the span of the first loaded page after page.
func (l *Ledger) NextLoaded(page int) (Span, bool) {
	var best Span
	found := false
	for p, s := range l.spans {
		if p > page && (!found || p < best.Page) {
			best = s
			found = true
		}
	}
	return best, found
}

// ShiftFrom moves the start of every page after page by delta.
func (l *Ledger) ShiftFrom(page, delta int) {
	if delta == 0 {
		return
	}
	for p, s := range l.spans {
		if p > page {
			s.Start += delta
			l.spans[p] = s
		}
	}
}

// Clear drops every span.
func (l *Ledger) Clear() {
	l.spans = make(map[int]Span)
	l.last = 0
}
