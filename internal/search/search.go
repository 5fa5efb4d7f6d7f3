// Package search fans a query out across independent targets and
// collects per-target outcomes. It is generic over the backend: anything
// implementing Searcher can be dispatched, and one target failing never
// disturbs its siblings.
package search

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"logscout/internal/logs"
	"logscout/internal/target"
)

// Searcher is the capability shared by every backend: search one target
// and return its matching entries.
type Searcher interface {
	Search(ctx context.Context, tgt target.Target, q logs.Query) ([]logs.Entry, error)
}

// Result is the outcome for a single target. Exactly one of Entries and
// Err is meaningful.
type Result struct {
	Target  target.Target
	Entries []logs.Entry
	Err     error
}

// ErrAllFailed is returned by Merged when every target failed.
var ErrAllFailed = errors.New("all targets failed")

// All searches every target concurrently and returns one result per
// target in input order. Per-target errors are captured in the results,
// never propagated between targets; total latency is bounded by the
// slowest target.
func All(ctx context.Context, s Searcher, targets []target.Target, q logs.Query) []Result {
	results := make([]Result, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, tgt := range targets {
		i, tgt := i, tgt
		g.Go(func() error {
			entries, err := s.Search(ctx, tgt, q)
			results[i] = Result{Target: tgt, Entries: entries, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	return results
}

// AllStream searches every target concurrently but emits results in
// request-list order as soon as each target (and all before it) has
// completed. Emission order is stable per target regardless of which
// finishes first.
func AllStream(ctx context.Context, s Searcher, targets []target.Target, q logs.Query, emit func(Result)) {
	done := make([]chan Result, len(targets))
	for i := range done {
		done[i] = make(chan Result, 1)
	}

	for i, tgt := range targets {
		i, tgt := i, tgt
		go func() {
			entries, err := s.Search(ctx, tgt, q)
			done[i] <- Result{Target: tgt, Entries: entries, Err: err}
		}()
	}

	for i := range targets {
		emit(<-done[i])
	}
}

// Merged concatenates all successful entries and collects per-target
// errors. The call as a whole fails only when every target failed.
func Merged(results []Result) ([]logs.Entry, []error, error) {
	var entries []logs.Entry
	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Target, r.Err))
			continue
		}
		entries = append(entries, r.Entries...)
	}

	if len(results) > 0 && len(errs) == len(results) {
		return nil, errs, ErrAllFailed
	}
	return entries, errs, nil
}
