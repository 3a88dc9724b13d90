// Package source fetches pages of rows for a grid.
//
// A Fetcher returns one page at a time. The Loader drives a Fetcher
// concurrently and hands every page it receives to a Sink.
package source

import (
	"context"

	"github.com/maruel/rowgrid/internal/rows"
)

// Page is one page of rows returned by a Fetcher.
type Page struct {
	Rows []rows.Row `json:"rows"`
	// IsLast is set when no row follows this page.
	IsLast bool `json:"is_last"`
}

// Fetcher returns the rows of a 1-based page.
//
// A page past the end returns an empty Page with IsLast set.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}

// FetchFunc adapts a function to a Fetcher.
type FetchFunc func(ctx context.Context, page int) (Page, error)

// FetchPage calls f.
func (f FetchFunc) FetchPage(ctx context.Context, page int) (Page, error) {
	return f(ctx, page)
}

// Sink receives fetched pages.
type Sink interface {
	AddPage(ctx context.Context, rows []rows.Row, page int, isLast bool) error
}
