package prooftree

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/prooftree/internal/blobstore"
	"github.com/vk/prooftree/internal/ctxlog"
)

// StepFunc is a user-supplied analysis function. It receives the state
// inherited from its ancestors and mutates it in place; a non-nil error
// aborts the whole run.
type StepFunc func(ctx context.Context, state State) error

// runContext carries the bookkeeping for one Run call: the set of cache
// paths touched so far. It is owned by the Run call frame and nothing in it
// survives between runs, so two consecutive runs can never leak registered
// paths into each other.
type runContext struct {
	registered map[string]struct{}
}

func (rc *runContext) register(path string) {
	rc.registered[path] = struct{}{}
}

// Run executes the analysis tree rooted at the receiver, starting from an
// empty state. There are four scenarios per node:
//
//  1. The node has never run. Execute it and cache the result.
//  2. An ancestor was executed this run, so the node's input may have
//     changed. Execute it and cache the result.
//  3. The node ran before, its ancestors were loaded from cache and its
//     fingerprint matches. Load the cached result.
//  4. The node ran before but its fingerprint no longer matches a cached
//     blob. Execute it and cache the updated result.
//
// After the whole subtree completes, and only when the receiver is the
// tree root, cache files not touched by this run are deleted from the
// cache directory. An aborted run performs no collection. Run returns a
// Report describing what happened to each node.
func (a *Analysis) Run(ctx context.Context) (*Report, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	rc := &runContext{registered: make(map[string]struct{})}
	report := &Report{}

	if err := a.run(ctx, rc, report, State{}, false); err != nil {
		return nil, err
	}

	// Collection happens only at the true root: a run started mid-tree has
	// not registered the ancestors' blobs and must not delete them.
	if a.parent == nil {
		removed, err := blobstore.New(a.cacheDir).Sweep(rc.registered)
		if err != nil {
			return nil, fmt.Errorf("prooftree: collecting stale caches: %w", err)
		}
		report.Collected = removed
	}

	ctxlog.FromContext(ctx).Debug("Run complete.",
		"executed", len(report.Executed),
		"loaded", len(report.Loaded),
		"collected", report.Collected)
	return report, nil
}

// run is the per-node state machine. refresh is true when any ancestor was
// executed (or forced) this run, in which case this node unconditionally
// re-executes too: its input may have changed even if its own code did not.
func (a *Analysis) run(ctx context.Context, rc *runContext, report *Report, stateIn State, refresh bool) error {
	logger := ctxlog.FromContext(ctx).With("analysis", a.step.Name)
	store := blobstore.New(a.cacheDir)
	path := store.Path(a.Fingerprint())

	switch {
	case refresh:
		logger.Info("Refreshing")
	case a.step.NeverCache:
		refresh = true
		logger.Info("Never cached")
	case !store.Exists(path):
		refresh = true
		logger.Info("Stale cache")
	}

	var stateOut State

	if !refresh {
		loaded, err := store.Load(path)
		switch {
		case err == nil:
			logger.Info("Deferring to cache")
			stateOut = State(loaded)
			rc.register(path)
			report.Loaded = append(report.Loaded, a.step.Name)
		case isCacheMiss(err):
			// An unreadable blob is a cache miss, not a fatal error, so an
			// interrupted earlier run cannot wedge the pipeline.
			logger.Warn("Discarding unreadable cache", "path", path, "error", err)
			logger.Info("Stale cache")
			refresh = true
		default:
			return fmt.Errorf("prooftree: loading cache for %q: %w", a.step.Name, err)
		}
	}

	if refresh {
		// Each executing node works on its own copy of the parent's output,
		// so sibling subtrees never observe each other's mutations.
		local, err := stateIn.Clone()
		if err != nil {
			return fmt.Errorf("prooftree: copying state for %q: %w", a.step.Name, err)
		}

		if err := a.step.Func(ctx, local); err != nil {
			return fmt.Errorf("prooftree: analysis %q: %w", a.step.Name, err)
		}

		if a.step.NeverCache {
			report.NeverCached = append(report.NeverCached, a.step.Name)
		} else {
			if err := store.Save(path, local); err != nil {
				return fmt.Errorf("prooftree: caching %q: %w", a.step.Name, err)
			}
			rc.register(path)
			report.Executed = append(report.Executed, a.step.Name)
		}
		stateOut = local
	}

	for _, child := range a.children {
		if err := child.run(ctx, rc, report, stateOut, refresh); err != nil {
			return err
		}
	}
	return nil
}

// isCacheMiss reports whether a load failure should fall back to execution.
func isCacheMiss(err error) bool {
	var corrupt *blobstore.CorruptError
	return errors.Is(err, blobstore.ErrNotFound) || errors.As(err, &corrupt)
}
