// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/inspector/pkg/analyzer"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors. A nil receiver has none.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits the mixed I/O and CGO workload of reading and parsing.
const DefaultWorkerMultiplier = 2

// Workers resolves a configured worker count; n <= 0 means 2x NumCPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// MapFunc processes one file with a parser owned by the calling worker.
// The returned value is kept even when err is non-nil so callers can
// record partial results.
type MapFunc[T any] func(p *parser.Parser, file models.SourceFile) (T, error)

// MapFiles processes files in parallel, one file per task, and returns one
// result per input in input order. Errors are collected, never fatal.
// Once ctx is cancelled no new file starts; skipped files keep the zero
// value and record ctx.Err(). A tracker carried by ctx is ticked per file.
func MapFiles[T any](ctx context.Context, files []models.SourceFile, workers int, fn MapFunc[T]) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]T, len(files))
	errs := &ProcessingErrors{}
	tracker := analyzer.TrackerFromContext(ctx)

	p := pool.New().WithMaxGoroutines(Workers(workers))
	for i, file := range files {
		p.Go(func() {
			if tracker != nil {
				defer tracker.Tick(file.Path)
			}

			if err := ctx.Err(); err != nil {
				errs.Add(file.Path, err)
				return
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, file)
			results[i] = result
			if err != nil {
				errs.Add(file.Path, err)
			}
		})
	}
	p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ForEachFile runs fn over files in parallel without a parser, for work
// such as line counting. Results keep input order.
func ForEachFile[T any](ctx context.Context, files []string, workers int, fn func(path string) (T, error)) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]T, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(workers))
	for i, path := range files {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return
			}
			result, err := fn(path)
			results[i] = result
			if err != nil {
				errs.Add(path, err)
			}
		})
	}
	p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
