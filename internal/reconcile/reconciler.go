package reconcile

import (
	"sync"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

// Sink receives progress lines.
type Sink interface {
	Append(line string)
}

// TreeFunc is called with each newly published tree.
type TreeFunc func(tree *filetree.Tree)

// Reconciler applies steps to a file tree one pass at a time.
type Reconciler struct {
	sink Sink

	// passMu serializes passes including subscriber notification so
	// subscribers see trees in publication order.
	passMu sync.Mutex

	mu          sync.RWMutex
	tree        *filetree.Tree
	steps       []steps.Step
	subscribers []TreeFunc
}

// New creates a reconciler with an empty tree.
func New(sink Sink) *Reconciler {
	return &Reconciler{
		sink: sink,
		tree: filetree.New(),
	}
}

// OnTreeChange registers fn for every tree published after this call.
func (r *Reconciler) OnTreeChange(fn TreeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Enqueue adds steps as pending and runs a reconciliation pass.
// It reports whether a new tree was published.
func (r *Reconciler) Enqueue(s ...steps.Step) bool {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	r.mu.Lock()
	for _, step := range s {
		step.Status = steps.StatusPending
		r.steps = append(r.steps, step)
	}
	r.mu.Unlock()

	return r.pass()
}

// Reconcile runs a pass over whatever is pending.
func (r *Reconciler) Reconcile() bool {
	r.passMu.Lock()
	defer r.passMu.Unlock()
	return r.pass()
}

func (r *Reconciler) pass() bool {
	r.mu.Lock()
	pending := 0
	for _, s := range r.steps {
		if s.Pending() {
			pending++
		}
	}
	if pending == 0 {
		r.mu.Unlock()
		return false
	}

	next := r.tree.Clone()
	var lines []string
	for i := range r.steps {
		if !r.steps[i].Pending() {
			continue
		}
		lines = append(lines, Apply(next, r.steps[i])...)
	}
	for i := range r.steps {
		r.steps[i].Complete()
	}
	r.tree = next
	subs := append([]TreeFunc(nil), r.subscribers...)
	r.mu.Unlock()

	logging.Debug("reconciled steps", "applied", pending, "nodes", next.Len())
	if r.sink != nil {
		for _, line := range lines {
			r.sink.Append(line)
		}
	}
	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Tree returns the latest published tree. Callers must not modify it.
func (r *Reconciler) Tree() *filetree.Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree
}

// Steps returns a copy of all steps seen so far.
func (r *Reconciler) Steps() []steps.Step {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]steps.Step(nil), r.steps...)
}

// Len returns the number of steps seen so far.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}
