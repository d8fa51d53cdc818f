// Package cache keeps the syntax trees of one analysis run so every pass
// parses a file at most once.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/zeebo/blake3"
)

// ErrNotScanned is returned by Tree for paths that were never loaded.
var ErrNotScanned = errors.New("file not scanned in this run")

type entry struct {
	hash   string
	result *parser.ParseResult
	err    error
}

// Trees is a run-scoped cache of parsed files keyed by path. Entries carry
// a BLAKE3 content hash so a reload of unchanged content reuses the tree.
//
// The map is safe for concurrent use. The trees it hands out are not: a
// given tree must only be walked by one goroutine at a time.
type Trees struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// NewTrees creates an empty cache. Call Close when the run ends.
func NewTrees() *Trees {
	return &Trees{entries: make(map[string]*entry)}
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Load reads and parses file with p, storing the tree under file.Path.
// A parse failure is remembered so later Tree calls report it too.
func (t *Trees) Load(p *parser.Parser, file models.SourceFile) (*parser.ParseResult, error) {
	source, err := os.ReadFile(file.Path)
	if err != nil {
		err = fmt.Errorf("failed to read file: %w", err)
		t.store(file.Path, "", nil, err)
		return nil, err
	}
	return t.Put(p, file.Path, parser.Language(file.Language), source)
}

// Put parses source with p and stores the tree under path. If path already
// holds a tree for identical content, that tree is returned instead.
func (t *Trees) Put(p *parser.Parser, path string, lang parser.Language, source []byte) (*parser.ParseResult, error) {
	hash := HashBytes(source)

	t.mu.Lock()
	if e, ok := t.entries[path]; ok && e.hash == hash && e.err == nil {
		t.mu.Unlock()
		return e.result, nil
	}
	t.mu.Unlock()

	result, err := p.Parse(source, lang, path)
	if err != nil {
		t.store(path, hash, nil, err)
		return nil, err
	}
	return result, t.store(path, hash, result, nil)
}

func (t *Trees) store(path, hash string, result *parser.ParseResult, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		result.Close()
		return errors.New("tree cache is closed")
	}
	if old, ok := t.entries[path]; ok && old.result != nil && old.result != result {
		old.result.Close()
	}
	t.entries[path] = &entry{hash: hash, result: result, err: err}
	return nil
}

// Tree returns the cached tree for path. It implements analyzer.TreeSource.
func (t *Trees) Tree(path string) (*parser.ParseResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScanned, path)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

// Len returns the number of cached paths, failed ones included.
func (t *Trees) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close releases every cached tree. The cache rejects new entries afterwards.
func (t *Trees) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		e.result.Close()
	}
	t.entries = make(map[string]*entry)
	t.closed = true
}
