package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maruel/rowgrid/internal/rows"
)

type recordSink struct {
	mu    sync.Mutex
	pages map[int]int
	last  map[int]bool
	err   error
}

func (r *recordSink) AddPage(_ context.Context, rs []rows.Row, page int, isLast bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pages == nil {
		r.pages = map[int]int{}
		r.last = map[int]bool{}
	}
	r.pages[page]++
	r.last[page] = isLast
	return r.err
}

func pageFetcher(calls *atomic.Int32, total int) FetchFunc {
	return func(ctx context.Context, page int) (Page, error) {
		calls.Add(1)
		return Page{Rows: []rows.Row{{"page": page}}, IsLast: page == total}, nil
	}
}

func TestLoader(t *testing.T) {
	ctx := t.Context()
	t.Run("delivers each page once", func(t *testing.T) {
		var calls atomic.Int32
		sink := &recordSink{}
		l := NewLoader(pageFetcher(&calls, 3), sink, Options{Concurrency: 2})
		if err := l.Load(ctx, 3, 1, 2, 3, 1, 0, -4); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 fetches, got %d", calls.Load())
		}
		for p := 1; p <= 3; p++ {
			if sink.pages[p] != 1 {
				t.Errorf("page %d: expected 1 delivery, got %d", p, sink.pages[p])
			}
		}
		if !sink.last[3] || sink.last[2] {
			t.Errorf("unexpected last flags %v", sink.last)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		l := NewLoader(FetchFunc(func(context.Context, int) (Page, error) {
			t.Fatal("unexpected fetch")
			return Page{}, nil
		}), &recordSink{}, Options{})
		if err := l.Load(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("retries", func(t *testing.T) {
		var calls atomic.Int32
		f := FetchFunc(func(ctx context.Context, page int) (Page, error) {
			if calls.Add(1) < 3 {
				return Page{}, errors.New("flaky")
			}
			return Page{Rows: []rows.Row{{}}}, nil
		})
		sink := &recordSink{}
		l := NewLoader(f, sink, Options{Retries: 2, RetryDelay: time.Millisecond})
		if err := l.Load(ctx, 1); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if calls.Load() != 3 || sink.pages[1] != 1 {
			t.Errorf("expected 3 attempts and a delivery, got %d attempts", calls.Load())
		}
	})

	t.Run("gives up", func(t *testing.T) {
		var calls atomic.Int32
		errBoom := errors.New("boom")
		f := FetchFunc(func(ctx context.Context, page int) (Page, error) {
			calls.Add(1)
			return Page{}, errBoom
		})
		sink := &recordSink{}
		l := NewLoader(f, sink, Options{Retries: 1})
		err := l.Load(ctx, 7)
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Page != 7 || !errors.Is(err, errBoom) {
			t.Fatalf("expected a FetchError for page 7, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 attempts, got %d", calls.Load())
		}
		if len(sink.pages) != 0 {
			t.Errorf("failed page should not be delivered, got %v", sink.pages)
		}
	})

	t.Run("sink error", func(t *testing.T) {
		var calls atomic.Int32
		errSink := errors.New("sink")
		l := NewLoader(pageFetcher(&calls, 1), &recordSink{err: errSink}, Options{})
		if err := l.Load(ctx, 1); !errors.Is(err, errSink) {
			t.Errorf("expected sink error, got %v", err)
		}
	})

	t.Run("concurrency limit", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		f := FetchFunc(func(ctx context.Context, page int) (Page, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return Page{}, nil
		})
		l := NewLoader(f, &recordSink{}, Options{Concurrency: 2})
		if err := l.Load(ctx, 1, 2, 3, 4, 5, 6); err != nil {
			t.Fatal(err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 fetches in flight, got %d", peak.Load())
		}
	})

	t.Run("canceled", func(t *testing.T) {
		var calls atomic.Int32
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		l := NewLoader(pageFetcher(&calls, 1), &recordSink{}, Options{RatePerSec: 1})
		if err := l.Load(cctx, 1); err == nil {
			t.Error("expected an error")
		}
	})
}
