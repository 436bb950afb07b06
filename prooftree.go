// Package prooftree implements an incremental computation engine: a tree of
// named analyses where each analysis mutates a state map produced by its
// parent, and the output of every analysis is cached on disk keyed by a
// fingerprint of its source text and its ancestor chain. On a later run,
// any analysis whose fingerprint is unchanged and whose ancestors were not
// refreshed is skipped and its cached output loaded instead; anything
// downstream of a change re-executes. Stale cache files are collected after
// each completed run.
package prooftree

import (
	"fmt"
	"strings"

	"github.com/vk/prooftree/internal/fingerprint"
)

// DefaultCacheDir is where cache blobs are stored unless WithCacheDir
// overrides it.
const DefaultCacheDir = ".proof"

// Step describes one analysis function. Source must be the step's source
// text, or any stable textual representation of its logic; it participates
// in the node fingerprint, so editing it invalidates the cached output of
// the node and of every descendant.
type Step struct {
	Name   string
	Source string
	Func   StepFunc

	// NeverCache marks a step whose output must never be persisted. The
	// step runs on every invocation and forces its descendants to run too.
	// Intended for side-effecting steps such as printing results or writing
	// report files.
	NeverCache bool
}

// Analysis is one node in the dependency tree. Nodes are created with New
// and Then before any execution; the tree is pure topology until Run.
type Analysis struct {
	step     Step
	parent   *Analysis
	children []*Analysis
	cacheDir string

	fp string
}

// Option configures an analysis node at construction time.
type Option func(*Analysis)

// WithCacheDir overrides the cache directory for the node being constructed
// and for every descendant created from it.
func WithCacheDir(dir string) Option {
	return func(a *Analysis) {
		a.cacheDir = dir
	}
}

// New creates the root analysis of a new tree.
func New(step Step, opts ...Option) *Analysis {
	a := &Analysis{
		step:     step,
		cacheDir: DefaultCacheDir,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Then creates a child analysis that will run after this one with access to
// the state it produced, inheriting the cache directory unless an option
// overrides it. It returns the child so chains can be built fluently. No
// execution happens here.
func (a *Analysis) Then(step Step, opts ...Option) *Analysis {
	child := &Analysis{
		step:     step,
		parent:   a,
		cacheDir: a.cacheDir,
	}
	for _, opt := range opts {
		opt(child)
	}
	a.children = append(a.children, child)
	return child
}

// Name returns the declared name of this node's step.
func (a *Analysis) Name() string { return a.step.Name }

// Fingerprint returns the identity of this node, derived from the name
// sequence of its ancestor chain and its source text. It is computed once
// and memoized: neither the function nor the chain can change during the
// life of a tree.
func (a *Analysis) Fingerprint() string {
	if a.fp == "" {
		a.fp = fingerprint.Compute(a.trace(), a.step.Source)
	}
	return a.fp
}

// trace collects the step names from the root down to this node.
func (a *Analysis) trace() []string {
	if a.parent == nil {
		return []string{a.step.Name}
	}
	return append(a.parent.trace(), a.step.Name)
}

// validate checks the whole subtree before a run so that a malformed node
// deep in the tree fails fast instead of after hours of computation.
func (a *Analysis) validate() error {
	if a.step.Name == "" {
		return fmt.Errorf("prooftree: analysis with empty name")
	}
	if strings.Contains(a.step.Name, "\n") {
		return fmt.Errorf("prooftree: analysis name %q must not contain a newline", a.step.Name)
	}
	if a.step.Source == "" {
		return fmt.Errorf("prooftree: analysis %q has no source text", a.step.Name)
	}
	if a.step.Func == nil {
		return fmt.Errorf("prooftree: analysis %q has no function", a.step.Name)
	}
	for _, child := range a.children {
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}
