package grid

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/maruel/rowgrid/internal/rows"
	"github.com/maruel/rowgrid/internal/source"
)

// numbers serves total rows, size per page, with "id" counting from 0.
func numbers(total, size int) source.FetchFunc {
	return func(ctx context.Context, page int) (source.Page, error) {
		start := (page - 1) * size
		var rs []rows.Row
		for i := start; i < min(start+size, total); i++ {
			rs = append(rs, rows.Row{"id": i, "parity": []string{"even", "odd"}[i%2]})
		}
		return source.Page{Rows: rs, IsLast: start+size >= total}, nil
	}
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	opts.VerifyInvariants = true
	if opts.PageSize == 0 {
		opts.PageSize = 10
	}
	s := New(numbers(25, 10), opts)
	if s.ID.IsZero() {
		t.Fatal("session should have an ID")
	}
	return s
}

func firstID(t *testing.T, s *Session) any {
	t.Helper()
	v := s.Window(rows.Window{RowHeight: 1, Count: 1})
	if len(v.Slots) == 0 || v.Slots[0].Kind != rows.KindData {
		t.Fatalf("expected a data slot first, got %+v", v.Slots)
	}
	return v.Slots[0].Row.Value("id")
}

// allIDs returns the ids of the loaded rows in display order.
func allIDs(s *Session) []any {
	v := s.Window(rows.Window{RowHeight: 1, Count: s.Stats().Rows})
	var out []any
	for _, sl := range v.Slots {
		if sl.Kind == rows.KindData {
			out = append(out, sl.Row.Value("id"))
		}
	}
	return out
}

func TestSession(t *testing.T) {
	ctx := t.Context()
	t.Run("load", func(t *testing.T) {
		s := newTestSession(t, Options{})
		if err := s.Load(ctx, 3, 1); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		st := s.Stats()
		if st.Rows != 25 || st.LoadedRows != 15 || st.Pages != 2 || st.LastPage != 3 || st.DefaultPageSize != 10 {
			t.Errorf("unexpected stats %+v", st)
		}
		v := s.Window(rows.Window{ScrollTop: 9, RowHeight: 1, Count: 3})
		if len(v.Slots) != 3 || v.Slots[0].Kind != rows.KindData || !v.Slots[1].IsPlaceholder() {
			t.Errorf("unexpected window %+v", v.Slots)
		}
		if v.Total != 25 || v.Loaded != 15 || v.Grouped {
			t.Errorf("unexpected view %+v", v)
		}
		if err := s.Load(ctx, 2, 4, 5); err != nil {
			t.Fatal(err)
		}
		if got := s.Stats(); got.Pages != 3 || got.LoadedRows != 25 {
			t.Errorf("pages after the last one should be skipped, got %+v", got)
		}
		spans := s.Pages()
		if len(spans) != 3 || spans[1].Start != 10 || !spans[2].IsLast {
			t.Errorf("unexpected spans %+v", spans)
		}
	})

	t.Run("load window", func(t *testing.T) {
		s := newTestSession(t, Options{})
		got, err := s.LoadWindow(ctx, rows.Window{RowHeight: 20, Count: 15})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, []int{1, 2}) {
			t.Errorf("expected pages 1 and 2, got %v", got)
		}
		// Rows 20 to 24 are page 3.
		if got, _ = s.LoadWindow(ctx, rows.Window{ScrollTop: 400, RowHeight: 20, Count: 10}); !slices.Equal(got, []int{3}) {
			t.Errorf("expected page 3, got %v", got)
		}
		if got, _ = s.LoadWindow(ctx, rows.Window{ScrollTop: 1000, RowHeight: 20, Count: 10}); len(got) != 0 {
			t.Errorf("nothing follows the last page, got %v", got)
		}
		if got, _ = s.LoadWindow(ctx, rows.Window{RowHeight: 0, Count: 10}); len(got) != 0 {
			t.Errorf("expected no page for an empty window, got %v", got)
		}
	})

	t.Run("load window fills holes", func(t *testing.T) {
		s := New(numbers(100, 10), Options{PageSize: 10, VerifyInvariants: true})
		if err := s.Load(ctx, 1, 2); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadWindow(ctx, rows.Window{ScrollTop: 30, RowHeight: 1, Count: 10})
		if err != nil || !slices.Equal(got, []int{4}) {
			t.Fatalf("expected page 4, got %v, %v", got, err)
		}
		got, err = s.LoadWindow(ctx, rows.Window{ScrollTop: 25, RowHeight: 1, Count: 10})
		if err != nil || !slices.Equal(got, []int{3}) {
			t.Fatalf("expected page 3 from its placeholders, got %v, %v", got, err)
		}
		if s.Stats().LoadedRows != 40 {
			t.Errorf("expected 40 rows, got %d", s.Stats().LoadedRows)
		}
	})

	t.Run("sort applies to later pages", func(t *testing.T) {
		s := newTestSession(t, Options{})
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if err := s.Sort(ctx, []rows.SortKey{{Prop: "id", Dir: rows.SortDesc}}); err != nil {
			t.Fatal(err)
		}
		if got := firstID(t, s); got != 9 {
			t.Errorf("expected 9 first, got %v", got)
		}
		if err := s.Load(ctx, 2); err != nil {
			t.Fatal(err)
		}
		if got := firstID(t, s); got != 19 {
			t.Errorf("expected 19 first, got %v", got)
		}
		if err := s.Sort(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if len(s.Sorts()) != 0 {
			t.Error("sorts should be cleared")
		}
	})

	t.Run("initial sort", func(t *testing.T) {
		s := newTestSession(t, Options{Sorts: []rows.SortKey{{Prop: "id", Dir: rows.SortDesc}}})
		if err := s.Load(ctx, 1, 2); err != nil {
			t.Fatal(err)
		}
		if got := firstID(t, s); got != 19 {
			t.Errorf("expected 19 first, got %v", got)
		}
	})

	t.Run("reload after sort", func(t *testing.T) {
		var fetches atomic.Int32
		f := source.FetchFunc(func(ctx context.Context, page int) (source.Page, error) {
			base := (page - 1) * 3
			// Page 1 comes back with new rows the second time.
			if page == 1 && fetches.Add(1) > 1 {
				base = 100
			}
			rs := []rows.Row{{"id": base}, {"id": base + 1}, {"id": base + 2}}
			return source.Page{Rows: rs, IsLast: page == 2}, nil
		})
		s := New(f, Options{PageSize: 3, VerifyInvariants: true})
		if err := s.Load(ctx, 1, 2); err != nil {
			t.Fatal(err)
		}
		if err := s.Sort(ctx, []rows.SortKey{{Prop: "id", Dir: rows.SortDesc}}); err != nil {
			t.Fatal(err)
		}
		if got := allIDs(s); !slices.Equal(got, []any{5, 4, 3, 2, 1, 0}) {
			t.Fatalf("expected ids 5 to 0, got %v", got)
		}
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := allIDs(s); !slices.Equal(got, []any{102, 101, 100, 5, 4, 3}) {
			t.Errorf("expected page 1 replaced, got %v", got)
		}
		if err := s.Sort(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if err := s.Load(ctx, 2); err != nil {
			t.Fatal(err)
		}
		if got := allIDs(s); !slices.Equal(got, []any{100, 101, 102, 3, 4, 5}) {
			t.Errorf("expected page order once unsorted, got %v", got)
		}
		if st := s.Stats(); st.Pages != 2 || st.LoadedRows != 6 || st.LastPage != 2 {
			t.Errorf("unexpected stats %+v", st)
		}
	})

	t.Run("reload keeps toggled groups", func(t *testing.T) {
		s := newTestSession(t, Options{
			Sorts:   []rows.SortKey{{Prop: "id", Dir: rows.SortDesc}},
			GroupBy: []string{"parity"},
		})
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if _, err := s.ToggleGroup(ctx, "_0_even"); err != nil {
			t.Fatal(err)
		}
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.Stats().Rows; got != 7 {
			t.Errorf("expected the even group to stay collapsed, got %d positions", got)
		}
	})

	t.Run("load window when grouped", func(t *testing.T) {
		s := newTestSession(t, Options{GroupBy: []string{"parity"}})
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadWindow(ctx, rows.Window{RowHeight: 1, Count: 15})
		if err != nil || !slices.Equal(got, []int{2}) {
			t.Fatalf("expected page 2 past the projection, got %v, %v", got, err)
		}
		if got, _ = s.LoadWindow(ctx, rows.Window{RowHeight: 1, Count: 5}); len(got) != 0 {
			t.Errorf("expected no page inside the projection, got %v", got)
		}
	})

	t.Run("group", func(t *testing.T) {
		s := newTestSession(t, Options{GroupBy: []string{"parity"}})
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.Stats().Rows; got != 12 {
			t.Fatalf("expected 2 headers and 10 rows, got %d", got)
		}
		expanded, err := s.ToggleGroup(ctx, "_0_even")
		if err != nil {
			t.Fatal(err)
		}
		if expanded {
			t.Error("group should be collapsed")
		}
		if got := s.Stats().Rows; got != 7 {
			t.Errorf("expected 7, got %d", got)
		}
		if _, err := s.ToggleGroup(ctx, "_0_nope"); !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("expected ErrGroupNotFound, got %v", err)
		}
		if err := s.SetGroupBy(ctx, nil); err != nil {
			t.Fatal(err)
		}
		if s.Stats().Grouped || len(s.GroupBy()) != 0 {
			t.Error("grouping should be removed")
		}
	})

	t.Run("collapsed", func(t *testing.T) {
		s := newTestSession(t, Options{GroupBy: []string{"parity"}, Collapsed: true})
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.Stats().Rows; got != 2 {
			t.Errorf("expected only headers, got %d", got)
		}
	})

	t.Run("reset keeps view choices", func(t *testing.T) {
		s := newTestSession(t, Options{})
		if err := s.SetGroupBy(ctx, []string{"parity"}); err != nil {
			t.Fatal(err)
		}
		if err := s.Load(ctx, 1, 2); err != nil {
			t.Fatal(err)
		}
		s.Reset(ctx)
		if st := s.Stats(); st.Rows != 0 || st.Pages != 0 || st.DefaultPageSize != 0 {
			t.Errorf("expected an empty grid, got %+v", st)
		}
		if got := s.GroupBy(); !slices.Equal(got, []string{"parity"}) {
			t.Errorf("grouping should survive a reset, got %v", got)
		}
		if err := s.Load(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.Stats().Rows; got != 12 {
			t.Errorf("expected grouped rows, got %d", got)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		errBoom := errors.New("boom")
		s := New(source.FetchFunc(func(context.Context, int) (source.Page, error) {
			return source.Page{}, errBoom
		}), Options{})
		err := s.Load(ctx, 2)
		var fe *source.FetchError
		if !errors.As(err, &fe) || fe.Page != 2 {
			t.Errorf("expected a FetchError, got %v", err)
		}
		if s.Stats().Pages != 0 {
			t.Error("nothing should be loaded")
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		s := New(numbers(1000, 10), Options{PageSize: 10, VerifyInvariants: true, Fetch: source.Options{Concurrency: 4}})
		var wg sync.WaitGroup
		for g := range 5 {
			wg.Go(func() {
				for p := g + 1; p <= 100; p += 5 {
					if err := s.Load(ctx, p); err != nil {
						t.Error(err)
					}
					s.Window(rows.Window{ScrollTop: float64(p * 10), RowHeight: 1, Count: 20})
				}
			})
		}
		wg.Wait()
		if st := s.Stats(); st.LoadedRows != 1000 || st.Pages != 100 {
			t.Errorf("unexpected stats %+v", st)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.store.Check(); err != nil {
			t.Error(err)
		}
	})
}
