// Tests for grouping.

package rows

import "testing"

func categoryRows() []Row {
	return []Row{
		{"id": "1", "category": "A", "name": "Item 1"},
		{"id": "2", "category": "B", "name": "Item 2"},
		{"id": "3", "category": "A", "name": "Item 3"},
		{"id": "4", "category": "B", "name": "Item 4"},
	}
}

func TestGrouping(t *testing.T) {
	t.Run("group by field", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 1, false)
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 6 {
			t.Fatalf("expected 2 groups + 4 rows, got %d", got)
		}
		got := s.FillVisibleRows(nil, Window{RowHeight: 50, Count: 10})
		wantKinds := []Kind{KindGroup, KindData, KindData, KindGroup, KindData, KindData}
		wantIDs := []any{nil, "1", "3", nil, "2", "4"}
		for i := range got {
			if got[i].Kind != wantKinds[i] {
				t.Errorf("position %d: expected %s, got %s", i, wantKinds[i], got[i].Kind)
			}
			if got[i].Kind == KindData && got[i].Row.Value("id") != wantIDs[i] {
				t.Errorf("position %d: expected row %v, got %v", i, wantIDs[i], got[i].Row.Value("id"))
			}
			if got[i].Index != i {
				t.Errorf("position %d: expected index %d, got %d", i, i, got[i].Index)
			}
		}
		g := got[0].Group
		if g.Key != "_0_A" || g.Level != 0 || !g.Expanded || g.Count() != 2 {
			t.Errorf("unexpected header %+v", g)
		}
		if len(g.Keys) != 1 || g.Keys[0] != (GroupKey{Title: "category", Prop: "category", Value: "A"}) {
			t.Errorf("unexpected keys %+v", g.Keys)
		}
		if got[0].UID != "group-_0_A" || !got[0].Expanded {
			t.Errorf("unexpected header slot %+v", got[0])
		}
		mustCheck(t, s)
	})

	t.Run("collapse", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage([]Row{{"category": "A"}, {"category": "A"}, {"category": "B"}}, 1, false)
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 5 {
			t.Fatalf("expected 5, got %d", got)
		}
		first := s.FillVisibleRows(nil, Window{RowHeight: 50, Count: 1})[0].Group.Key
		s.ToggleGroupExpanded(first)
		if got := s.RowsCount(); got != 3 {
			t.Fatalf("expected 2 headers + 1 row, got %d", got)
		}
		got := s.FillVisibleRows(nil, Window{RowHeight: 1, Count: 3})
		if got[0].Expanded || got[0].Group.Expanded {
			t.Error("first group should be collapsed")
		}
		if got[0].Group.Count() != 2 {
			t.Errorf("collapsed group should still count its rows, got %d", got[0].Group.Count())
		}
		s.ToggleGroupExpanded(first)
		if got := s.RowsCount(); got != 5 {
			t.Errorf("expected 5 after expanding again, got %d", got)
		}
		mustCheck(t, s)
	})

	t.Run("ungroup restores raw view", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows()[:2], 1, false)
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 4 {
			t.Fatalf("expected 4, got %d", got)
		}
		s.SetGroupBy(nil)
		if got := s.RowsCount(); got != 2 {
			t.Errorf("expected 2 raw rows, got %d", got)
		}
		if s.IsGrouped() || len(s.Groups()) != 0 {
			t.Error("grouping should be cleared")
		}
		got := s.FillVisibleRows(nil, Window{RowHeight: 1, Count: 2})
		if got[0].Row.Value("id") != "1" || got[1].Row.Value("id") != "2" {
			t.Error("raw order should be restored")
		}
		mustCheck(t, s)
	})

	t.Run("rebuild on new page", func(t *testing.T) {
		s, _ := newTestStore()
		s.SetGroupBy([]string{"category"})
		s.AddPage([]Row{{"id": "1", "category": "A"}}, 1, false)
		if got := s.RowsCount(); got != 2 {
			t.Errorf("expected 2, got %d", got)
		}
		s.AddPage([]Row{{"id": "2", "category": "A"}}, 2, false)
		if got := s.RowsCount(); got != 3 {
			t.Errorf("expected 3, got %d", got)
		}
		s.AddPage([]Row{{"id": "3", "category": "B"}}, 3, false)
		if got := s.RowsCount(); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
		s.AddPage([]Row{{"id": "3", "category": "C"}}, 3, false)
		if groups := s.Groups(); len(groups) != 2 || groups[1].Keys[0].Value != "C" {
			t.Errorf("reload should regroup, got %d groups", len(groups))
		}
		mustCheck(t, s)
	})

	t.Run("placeholders excluded", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 3, false)
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 6 {
			t.Errorf("expected 6, got %d", got)
		}
		if got := s.PageRowsCount(3); got != 4 {
			t.Errorf("expected 4 rows for page 3, got %d", got)
		}
	})

	t.Run("nested", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage([]Row{
			{"id": 1, "country": "FR", "city": "Paris"},
			{"id": 2, "country": "US", "city": "NYC"},
			{"id": 3, "country": "FR", "city": "Lyon"},
			{"id": 4, "country": "FR", "city": "Paris"},
			{"id": 5, "country": nil, "city": "Paris"},
		}, 1, false)
		s.SetGroupBy([]string{"country", "city"})
		// FR, Paris, 1, 4, Lyon, 3, US, NYC, 2, "", Paris, 5
		if got := s.RowsCount(); got != 12 {
			t.Fatalf("expected 12, got %d", got)
		}
		got := s.FillVisibleRows(nil, Window{RowHeight: 1, Count: 12})
		if k := got[1].Group.Key; k != "_0_FR_1_Paris" {
			t.Errorf("unexpected nested key %q", k)
		}
		if got[1].Group.Level != 1 || len(got[1].Group.Keys) != 2 {
			t.Errorf("unexpected nested header %+v", got[1].Group)
		}
		if got[2].Row.Value("id") != 1 || got[3].Row.Value("id") != 4 {
			t.Error("leaf rows should follow their group in logical order")
		}
		if k := got[9].Group.Key; k != "_0_" {
			t.Errorf("nil values should group under the empty string, got %q", k)
		}
		top := s.Groups()
		if len(top) != 3 || len(top[0].Children) != 2 || top[0].Count() != 3 {
			t.Errorf("unexpected tree %+v", top)
		}

		s.ToggleGroupExpanded("_0_FR")
		if got := s.RowsCount(); got != 7 {
			t.Errorf("collapsing FR should hide 5 entries, got %d", got)
		}
		s.ToggleGroupExpanded("_0_US_1_NYC")
		if got := s.RowsCount(); got != 6 {
			t.Errorf("expected 6, got %d", got)
		}
		mustCheck(t, s)
	})

	t.Run("reassigning fields resets expansion", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 1, false)
		s.SetGroupBy([]string{"category"})
		s.ToggleGroupExpanded("_0_A")
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 6 {
			t.Errorf("expected every group expanded again, got %d", got)
		}
	})

	t.Run("collapsed by default", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 1, false)
		s.SetDefaultExpanded(false)
		s.SetGroupBy([]string{"category"})
		if got := s.RowsCount(); got != 2 {
			t.Errorf("expected only headers, got %d", got)
		}
		s.ToggleGroupExpanded("_0_B")
		if got := s.RowsCount(); got != 4 {
			t.Errorf("expected B expanded, got %d", got)
		}
	})

	t.Run("sort reorders groups", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 1, false)
		s.SetGroupBy([]string{"category"})
		s.Sort([]SortKey{{Prop: "name", Dir: SortDesc}})
		got := s.FillVisibleRows(nil, Window{RowHeight: 1, Count: 6})
		if got[0].Group.Keys[0].Value != "B" || got[1].Row.Value("id") != "4" {
			t.Errorf("expected B first with Item 4, got %v", names(got[1:2], "id"))
		}
		mustCheck(t, s)
	})

	t.Run("window on grouped view", func(t *testing.T) {
		s, _ := newTestStore()
		s.AddPage(categoryRows(), 1, false)
		s.SetGroupBy([]string{"category"})
		got := s.FillVisibleRows(nil, Window{ScrollTop: 150, RowHeight: 50, Count: 10})
		if len(got) != 3 || got[0].Kind != KindGroup {
			t.Errorf("expected B header and its rows, got %d slots", len(got))
		}
	})
}
