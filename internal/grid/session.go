// Package grid serves one virtualized row grid: a page ledger, a row store
// and a loader filling them, behind a lock.
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/maruel/ksid"
	"github.com/maruel/rowgrid/internal/pages"
	"github.com/maruel/rowgrid/internal/rows"
	"github.com/maruel/rowgrid/internal/source"
)

// ErrGroupNotFound is returned when toggling a group that is not displayed.
var ErrGroupNotFound = errors.New("group not found")

// Options configures a Session.
type Options struct {
	Fetch source.Options
	// PageSize estimates the size of pages not seen yet, until the first
	// page arrives.
	PageSize int
	Sorts    []rows.SortKey
	GroupBy  []string
	// Collapsed starts groups collapsed.
	Collapsed bool
	// VerifyInvariants checks the store after every mutation.
	VerifyInvariants bool
}

// Session is a grid shared by concurrent callers.
//
// Every call into the ledger and the store is serialized. Fetches run
// outside the lock and their pages are added as they arrive.
type Session struct {
	ID ksid.ID

	loader *source.Loader

	mu      sync.Mutex
	ledger  *pages.Ledger
	store   *rows.Store
	opts    Options
	sorts   []rows.SortKey
	groupBy []string
	// fetched holds every loaded page as the source returned it.
	fetched map[int]fetchedPage
	// shuffled is set once sorting moved rows out of their page's span.
	shuffled bool
	// toggled records the expansion state set through ToggleGroup.
	toggled map[string]bool
}

type fetchedPage struct {
	rows   []rows.Row
	isLast bool
}

// New returns a session fetching pages from f.
func New(f source.Fetcher, opts Options) *Session {
	l := pages.New()
	s := &Session{
		ID:      ksid.NewID(),
		ledger:  l,
		store:   rows.NewStore(l),
		opts:    opts,
		fetched: make(map[int]fetchedPage),
		toggled: make(map[string]bool),
	}
	s.loader = source.NewLoader(f, s, opts.Fetch)
	s.sorts = slices.Clone(opts.Sorts)
	s.groupBy = slices.Clone(opts.GroupBy)
	s.applyView()
	return s
}

// applyView pushes the session's grouping choices into the store.
func (s *Session) applyView() {
	s.store.SetDefaultExpanded(!s.opts.Collapsed)
	s.store.SetGroupBy(s.groupBy)
}

// AddPage implements source.Sink.
//
// The session's sort is applied again so that the new rows take their
// place among the loaded ones. A page loaded again after sorting replaces
// its rows wherever the sort moved them: the store is rebuilt from the
// fetched pages.
func (s *Session) AddPage(ctx context.Context, rs []rows.Row, page int, isLast bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		return nil
	}
	_, loaded := s.ledger.PageInfo(page)
	s.fetched[page] = fetchedPage{rows: rs, isLast: isLast}
	if loaded && s.shuffled {
		slog.DebugContext(ctx, "grid: rebuilding after reload", "session", s.ID, "page", page)
		s.rebuild()
	} else {
		s.store.AddPage(rs, page, isLast)
	}
	if len(s.sorts) != 0 {
		s.store.Sort(s.sorts)
		s.shuffled = true
	}
	return s.verify(ctx, "add page")
}

// rebuild refills the store from the fetched pages in page order and
// restores the toggled groups.
func (s *Session) rebuild() {
	s.store.Clear()
	s.applyView()
	for _, p := range slices.Sorted(maps.Keys(s.fetched)) {
		fp := s.fetched[p]
		s.store.AddPage(fp.rows, p, fp.isLast)
	}
	// Clear forgot every toggle, so groups are back to the default state.
	for key, expanded := range s.toggled {
		if expanded == s.opts.Collapsed {
			s.store.ToggleGroupExpanded(key)
		}
	}
	s.shuffled = false
}

func (s *Session) verify(ctx context.Context, op string) error {
	if !s.opts.VerifyInvariants {
		return nil
	}
	if err := s.store.Check(); err != nil {
		slog.ErrorContext(ctx, "grid: invariant violated", "session", s.ID, "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load fetches pages and adds them to the grid. Pages after a known last
// page are skipped.
func (s *Session) Load(ctx context.Context, pageNums ...int) error {
	s.mu.Lock()
	if last, ok := s.ledger.LastPage(); ok {
		pageNums = slices.DeleteFunc(slices.Clone(pageNums), func(p int) bool { return p > last })
	}
	s.mu.Unlock()
	return s.loader.Load(ctx, pageNums...)
}

// LoadWindow loads the pages needed to fill the viewport w and returns
// their numbers.
func (s *Session) LoadWindow(ctx context.Context, w rows.Window) ([]int, error) {
	s.mu.Lock()
	need := s.pagesFor(w)
	s.mu.Unlock()
	if len(need) == 0 {
		return need, nil
	}
	slog.DebugContext(ctx, "grid: loading window", "session", s.ID, "pages", need)
	return need, s.Load(ctx, need...)
}

// maxLookahead bounds how far past the highest loaded page a window may
// request pages.
const maxLookahead = 100

// pagesFor returns the pages whose rows fall in w and are not loaded.
//
// Within the sequence, positions are mapped to pages by walking the ledger
// spans and the default page size in between. Past its end, pages following
// the highest loaded page are estimated from the default page size. w.Page
// is ignored.
//
// A grouped projection only holds loaded rows and their headers, so only the
// positions past its end are mapped. Headers count as rows there: the
// overflow is measured in projection positions and may ask for the next page
// a few rows early.
func (s *Session) pagesFor(w rows.Window) []int {
	if w.RowHeight <= 0 || w.Count <= 0 {
		return nil
	}
	f := math.Floor(w.ScrollTop / w.RowHeight)
	if math.IsNaN(f) || f > math.MaxInt32 {
		return nil
	}
	first := int(max(0, f))
	end := first + w.Count
	size := s.store.DefaultPageSize()
	if size == 0 {
		size = max(1, s.opts.PageSize)
	}
	last, hasLast := s.ledger.LastPage()
	next := 1
	if spans := s.ledger.PagesInfo(); len(spans) != 0 {
		next = spans[len(spans)-1].Page + 1
	}
	var need []int
	add := func(p int) {
		if hasLast && p > last || p >= next+maxLookahead {
			return
		}
		if _, ok := s.ledger.PageInfo(p); !ok {
			need = append(need, p)
		}
	}
	n := s.store.RowsCount()
	if !s.store.IsGrouped() {
		for i := first; i < min(end, n); {
			p, pend := s.pageAt(i, size)
			add(p)
			i = pend
		}
	}
	if from := max(first, n); end > from && !hasLast {
		for i := from; i < end; i += size {
			add(next + (i-n)/size)
		}
		add(next + (end-1-n)/size)
	}
	slices.Sort(need)
	return slices.Compact(need)
}

// pageAt returns the page expected at position i of the sequence and the
// end of its span.
func (s *Session) pageAt(i, size int) (int, int) {
	start := 0
	for p := 1; ; p++ {
		end := start + size
		if info, ok := s.ledger.PageInfo(p); ok {
			end = info.End()
		}
		if i < end {
			return p, end
		}
		start = end
	}
}

// View is a window of the grid.
type View struct {
	Slots []rows.Slot
	// Total is the number of positions of the displayed sequence.
	Total int
	// Loaded is the number of loaded rows.
	Loaded  int
	Grouped bool
}

// Window returns the slots visible in w.
func (s *Session) Window(w rows.Window) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Slots:   s.store.FillVisibleRows(nil, w),
		Total:   s.store.RowsCount(),
		Loaded:  s.store.LoadedRowsCount(),
		Grouped: s.store.IsGrouped(),
	}
}

// Sort sorts the loaded rows and keeps sorting pages loaded later. No key
// stops sorting; rows already sorted keep their order.
func (s *Session) Sort(ctx context.Context, keys []rows.SortKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sorts = slices.Clone(keys)
	if len(keys) != 0 {
		s.store.Sort(keys)
		s.shuffled = true
	}
	return s.verify(ctx, "sort")
}

// Sorts returns the current sort keys.
func (s *Session) Sorts() []rows.SortKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sorts)
}

// SetGroupBy groups the rows by fields, outermost first. No field removes
// grouping.
func (s *Session) SetGroupBy(ctx context.Context, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupBy = slices.Clone(fields)
	clear(s.toggled)
	s.store.SetGroupBy(fields)
	return s.verify(ctx, "group")
}

// GroupBy returns the grouping fields.
func (s *Session) GroupBy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GroupBy()
}

// ToggleGroup collapses or expands the group key and returns its new state.
func (s *Session) ToggleGroup(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := findGroup(s.store.Groups(), key)
	if g == nil {
		return false, fmt.Errorf("%w: %q", ErrGroupNotFound, key)
	}
	s.store.ToggleGroupExpanded(key)
	s.toggled[key] = !g.Expanded
	return !g.Expanded, s.verify(ctx, "toggle group")
}

func findGroup(groups []*rows.GroupHeader, key string) *rows.GroupHeader {
	for _, g := range groups {
		if g.Key == key {
			return g
		}
		if c := findGroup(g.Children, key); c != nil {
			return c
		}
	}
	return nil
}

// Pages returns the loaded pages in page order.
func (s *Session) Pages() []pages.Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.PagesInfo()
}

// Stats summarizes the grid.
type Stats struct {
	Rows            int
	LoadedRows      int
	Pages           int
	DefaultPageSize int
	LastPage        int
	Grouped         bool
}

// Stats returns a summary of the grid.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, _ := s.ledger.LastPage()
	return Stats{
		Rows:            s.store.RowsCount(),
		LoadedRows:      s.store.LoadedRowsCount(),
		Pages:           s.ledger.TotalPages(),
		DefaultPageSize: s.store.DefaultPageSize(),
		LastPage:        last,
		Grouped:         s.store.IsGrouped(),
	}
}

// Reset drops every loaded row. The sort and grouping choices are kept
// and apply to pages loaded afterward.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	clear(s.fetched)
	clear(s.toggled)
	s.shuffled = false
	s.applyView()
	slog.InfoContext(ctx, "grid: reset", "session", s.ID)
}
