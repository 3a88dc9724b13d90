// Fetches pages concurrently with throttling, deduplication and retries.

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options tunes a Loader.
type Options struct {
	// Concurrency is the maximum number of fetches in flight. Values below 1
	// mean 1.
	Concurrency int
	// RatePerSec limits fetches per second. 0 means unlimited.
	RatePerSec float64
	Burst      int
	// Retries is the number of retries after a failed fetch.
	Retries int
	// RetryDelay is multiplied by the attempt number between retries.
	RetryDelay time.Duration
}

// FetchError is returned when a page could not be fetched.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Loader fetches pages and delivers them to a Sink.
//
// Pages complete in arbitrary order. Concurrent requests for the same page
// share one fetch and the page is delivered once.
type Loader struct {
	fetcher     Fetcher
	sink        Sink
	limiter     *rate.Limiter
	concurrency int
	retries     int
	retryDelay  time.Duration
	flight      singleflight.Group
}

// NewLoader returns a Loader reading from f and writing to sink.
func NewLoader(f Fetcher, sink Sink, opts Options) *Loader {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &Loader{
		fetcher:     f,
		sink:        sink,
		limiter:     rate.NewLimiter(limit, max(1, opts.Burst)),
		concurrency: max(1, opts.Concurrency),
		retries:     max(0, opts.Retries),
		retryDelay:  opts.RetryDelay,
	}
}

// Load fetches the given pages and adds them to the sink.
//
// Duplicate and non-positive page numbers are ignored. The first error
// cancels the remaining fetches; pages already delivered stay delivered.
func (l *Loader) Load(ctx context.Context, pageNums ...int) error {
	todo := slices.Clone(pageNums)
	todo = slices.DeleteFunc(todo, func(p int) bool { return p < 1 })
	slices.Sort(todo)
	todo = slices.Compact(todo)
	if len(todo) == 0 {
		return nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.concurrency)
	for _, p := range todo {
		eg.Go(func() error {
			return l.load(ctx, p)
		})
	}
	return eg.Wait()
}

func (l *Loader) load(ctx context.Context, page int) error {
	_, err, _ := l.flight.Do(strconv.Itoa(page), func() (any, error) {
		start := time.Now()
		p, err := l.fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "source: page fetched", "page", page, "rows", len(p.Rows), "last", p.IsLast, "dur", time.Since(start).Round(time.Millisecond))
		return nil, l.sink.AddPage(ctx, p.Rows, page, p.IsLast)
	})
	return err
}

// fetch calls the fetcher, retrying with a linear backoff.
func (l *Loader) fetch(ctx context.Context, page int) (Page, error) {
	for attempt := 0; ; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return Page{}, &FetchError{Page: page, Err: err}
		}
		p, err := l.fetcher.FetchPage(ctx, page)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || attempt >= l.retries {
			return Page{}, &FetchError{Page: page, Err: err}
		}
		delay := l.retryDelay * time.Duration(attempt+1)
		slog.WarnContext(ctx, "source: fetch failed, retrying", "page", page, "attempt", attempt+1, "delay", delay, "err", err)
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return Page{}, &FetchError{Page: page, Err: ctx.Err()}
			case <-t.C:
			}
		}
	}
}
