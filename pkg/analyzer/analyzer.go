// Package analyzer holds the contracts shared by the metrics, smell and
// dependency graph passes.
package analyzer

import (
	"context"
	"sync/atomic"

	"github.com/panbanda/inspector/pkg/parser"
)

// TreeSource hands out the syntax tree of a scanned file. Implementations
// return the same tree for the whole run; callers must not close it.
type TreeSource interface {
	Tree(path string) (*parser.ParseResult, error)
}

// ProgressFunc is called to report analysis progress.
// current is the number of items processed, total is the total count,
// and path is the item that just finished.
type ProgressFunc func(current, total int, path string)

// Tracker tracks progress for analysis operations.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker invoking callback on each Tick.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick marks one item as completed.
func (t *Tracker) Tick(path string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), path)
	}
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context.
// Returns nil if no tracker was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
