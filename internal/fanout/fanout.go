// Package fanout runs independent sub-operations concurrently and reassembles
// their results in submission order.
//
// The executor makes three guarantees:
//   - slot i of the output always corresponds to input i, regardless of the
//     order in which operations complete
//   - one operation's failure never aborts or blocks its siblings; the
//     failure is captured in that slot only
//   - at most limit operations are in flight at once
//
// Ordering is structural: each worker writes its result into a pre-sized
// slice at its own index, so no completion-order queue is involved.
package fanout

import (
	"context"
	"fmt"
	"sync"
)

// Slot holds the outcome of one fan-out operation. Exactly one of Value and
// Err is meaningful: Err == nil means Value carries the operation's result.
type Slot[O any] struct {
	Value O
	Err   error
}

// All runs op over every input concurrently, bounded by limit, and returns
// one slot per input in input order. It never returns an error itself; a
// failing operation only marks its own slot. A non-positive limit means no
// bound beyond the number of inputs.
func All[I, O any](ctx context.Context, inputs []I, limit int, op func(context.Context, I) (O, error)) []Slot[O] {
	results := make([]Slot[O], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	if limit <= 0 || limit > len(inputs) {
		limit = len(inputs)
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = run(ctx, in, op)
		}()
	}
	wg.Wait()

	return results
}

// run executes a single operation with panic containment, so a panicking
// operation degrades to a failed slot instead of tearing down its siblings.
func run[I, O any](ctx context.Context, in I, op func(context.Context, I) (O, error)) (slot Slot[O]) {
	defer func() {
		if r := recover(); r != nil {
			slot.Err = fmt.Errorf("fanout operation panicked: %v", r)
		}
	}()

	slot.Value, slot.Err = op(ctx, in)
	return slot
}

// Join runs two independently-typed operations concurrently and waits for
// both. It is the fixed-arity heterogeneous companion to All: the branches
// are not slices of the same list, so they cannot share an input type.
// Both branches always run to completion; the returned error is nil only if
// both succeeded, and otherwise wraps whichever branches failed.
func Join[A, B any](ctx context.Context, first func(context.Context) (A, error), second func(context.Context) (B, error)) (A, B, error) {
	var (
		a    A
		errA error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				errA = fmt.Errorf("fanout branch panicked: %v", r)
			}
		}()
		a, errA = first(ctx)
	}()

	b, errB := func() (b B, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fanout branch panicked: %v", r)
			}
		}()
		return second(ctx)
	}()

	<-done

	switch {
	case errA != nil && errB != nil:
		return a, b, fmt.Errorf("both branches failed: %w; %w", errA, errB)
	case errA != nil:
		return a, b, errA
	case errB != nil:
		return a, b, errB
	}
	return a, b, nil
}
