// Serves pages of a JSONL table, optionally filtered and sorted.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/maruel/rowgrid/internal/jsonldb"
	"github.com/maruel/rowgrid/internal/rows"
)

// JSONL serves pages of rows read from a JSONL table.
type JSONL struct {
	Table    *jsonldb.Table
	PageSize int
	// Search keeps rows with a value whose text contains it, ignoring case.
	Search string
	Sorts  []rows.SortKey
	// Delay is waited before every fetch.
	Delay time.Duration
}

// FetchPage implements Fetcher.
func (j *JSONL) FetchPage(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("invalid page %d", page)
	}
	if j.PageSize < 1 {
		return Page{}, fmt.Errorf("invalid page size %d", j.PageSize)
	}
	if j.Delay > 0 {
		t := time.NewTimer(j.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Page{}, ctx.Err()
		case <-t.C:
		}
	}
	all := j.filtered()
	start := (page - 1) * j.PageSize
	if start >= len(all) {
		return Page{Rows: []rows.Row{}, IsLast: true}, nil
	}
	end := min(start+j.PageSize, len(all))
	return Page{Rows: all[start:end:end], IsLast: end == len(all)}, nil
}

// Count returns the number of rows matching Search.
func (j *JSONL) Count() int {
	return len(j.filtered())
}

func (j *JSONL) filtered() []rows.Row {
	needle := strings.ToLower(j.Search)
	var out []rows.Row
	for r := range j.Table.All() {
		if needle == "" || matches(r, needle) {
			out = append(out, r)
		}
	}
	if len(j.Sorts) > 0 {
		slices.SortStableFunc(out, func(a, b rows.Row) int {
			return rows.CompareRows(a, b, j.Sorts)
		})
	}
	return out
}

// matches reports whether the text of a value of v, searched recursively,
// contains needle. Numbers and booleans match their fmt representation.
// needle must be lower case.
func matches(v any, needle string) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(strings.ToLower(t), needle)
	case float64, float32, int, int64, int32, uint, uint64, uint32, bool, json.Number:
		return strings.Contains(strings.ToLower(fmt.Sprint(t)), needle)
	case rows.Row:
		for _, x := range t {
			if matches(x, needle) {
				return true
			}
		}
	case map[string]any:
		for _, x := range t {
			if matches(x, needle) {
				return true
			}
		}
	case []any:
		for _, x := range t {
			if matches(x, needle) {
				return true
			}
		}
	}
	return false
}
