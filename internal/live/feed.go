// Package live turns push or poll based query results into cancellable
// snapshot streams. Every snapshot is a full result set; consumers replace
// their state with it instead of patching.
package live

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
)

// Snapshot is a point-in-time materialization of a query's result set.
type Snapshot[T any] struct {
	Items []T
	Err   error
	At    time.Time
}

// Feed is a live subscription. Delivery is latest-wins: if the consumer falls
// behind, a queued snapshot is replaced by the newer one.
type Feed[T any] struct {
	ch     chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newFeed[T any](ctx context.Context) (*Feed[T], context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Feed[T]{
		ch:     make(chan Snapshot[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

// C returns the snapshot channel. It is closed once the feed stops.
func (f *Feed[T]) C() <-chan Snapshot[T] {
	return f.ch
}

// Done is closed when the producer has exited.
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel stops the feed and waits for the producer to exit. Once Cancel
// returns, C yields nothing but the close.
func (f *Feed[T]) Cancel() {
	if f == nil {
		return
	}
	f.once.Do(f.cancel)
	<-f.done
}

// publish hands s to the consumer, dropping any snapshot still queued.
func (f *Feed[T]) publish(ctx context.Context, s Snapshot[T]) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case f.ch <- s:
			return true
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

// finish drains anything undelivered and closes the channel.
func (f *Feed[T]) finish() {
	select {
	case <-f.ch:
	default:
	}
	close(f.ch)
	close(f.done)
}

// Options control when Poll re-runs its fetch.
type Options struct {
	// Interval between re-queries. Zero disables the ticker.
	Interval time.Duration
	// Wake forces an immediate re-query and delivery.
	Wake <-chan struct{}
}

// Poll runs fetch on start, on every tick and on every wake signal. The first
// result is always delivered; later results only when they differ from the
// previous delivery, or when a wake signal asked for them. Errors are
// delivered once until the next change.
func Poll[T any](ctx context.Context, opts Options, fetch func(context.Context) ([]T, error)) *Feed[T] {
	f, ctx := newFeed[T](ctx)

	go func() {
		defer f.finish()

		var (
			last      []T
			delivered bool
			lastErr   string
		)
		run := func(force bool) bool {
			items, err := fetch(ctx)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return false
				}
				if err.Error() == lastErr && !force {
					return true
				}
				lastErr = err.Error()
				return f.publish(ctx, Snapshot[T]{Err: err, At: time.Now()})
			}
			lastErr = ""
			if delivered && !force && reflect.DeepEqual(items, last) {
				return true
			}
			last, delivered = items, true
			return f.publish(ctx, Snapshot[T]{Items: items, At: time.Now()})
		}

		if !run(true) {
			return
		}

		var tick <-chan time.Time
		if opts.Interval > 0 {
			t := time.NewTicker(opts.Interval)
			defer t.Stop()
			tick = t.C
		}
		wake := opts.Wake
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				if !run(false) {
					return
				}
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
				if !run(true) {
					return
				}
			}
		}
	}()

	return f
}
