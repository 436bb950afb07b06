package prooftree

// Report summarizes one completed run. It mirrors the per-node log lines
// and is purely informational.
type Report struct {
	// Executed lists, in visit order, the analyses that ran and cached
	// their output.
	Executed []string

	// Loaded lists the analyses whose state was loaded from cache instead
	// of executing.
	Loaded []string

	// NeverCached lists the analyses that ran without persisting output.
	NeverCached []string

	// Collected is the number of stale blob files removed after the run.
	Collected int
}
