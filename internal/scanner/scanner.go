// Package scanner finds the source files of a project and counts their
// lines of code.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/inspector/internal/fileproc"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
)

// ErrNotExist is returned when the scan root does not exist.
var ErrNotExist = errors.New("path does not exist")

var errTooLarge = errors.New("file exceeds max_file_size")

// Summary describes one scan.
type Summary struct {
	TotalFiles int            `json:"total_files" yaml:"total_files" toon:"total_files"`
	TotalLOC   int            `json:"total_loc" yaml:"total_loc" toon:"total_loc"`
	Languages  map[string]int `json:"languages" yaml:"languages" toon:"languages"`
	Skipped    int            `json:"skipped" yaml:"skipped" toon:"skipped"`
	Errors     int            `json:"errors" yaml:"errors" toon:"errors"`
}

// Result holds the files found by a scan, in walk order. File paths keep
// the form of the root they were scanned from.
type Result struct {
	Root    string
	Files   []models.SourceFile
	Summary Summary
}

// Scanner finds source files in a directory.
type Scanner struct {
	config   *config.Config
	logger   *slog.Logger
	matchers []gitignore.Matcher
}

// Option is a functional option for configuring Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore reads every .gitignore of the enclosing repository.
// Matching is done on paths relative to the git root.
func (s *Scanner) loadGitignore(root string) string {
	s.matchers = nil
	if !s.config.Exclude.Gitignore {
		return ""
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return ""
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil {
		s.logger.Debug("scanner: reading .gitignore", "root", gitRoot, "error", err)
		return ""
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
	return gitRoot
}

func (s *Scanner) ignoredByGit(gitRoot, path string, isDir bool) bool {
	if gitRoot == "" || len(s.matchers) == 0 {
		return false
	}
	rel, err := filepath.Rel(gitRoot, path)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// Scan walks root and returns every supported, non-excluded source file
// with its line count. A root that is a file is scanned on its own.
// Files are read in parallel; unreadable files are counted in
// Summary.Errors and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, root)
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	root = filepath.Clean(root)
	res := &Result{
		Root:    root,
		Summary: Summary{Languages: make(map[string]int)},
	}

	if !info.IsDir() {
		if s.config.LanguageEnabled(parser.DetectLanguage(root)) {
			s.read(ctx, res, []string{root})
		}
		return res, nil
	}

	// Resolve symlinks in the root so escaping links can be detected.
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	gitRoot := s.loadGitignore(absRoot)
	var paths []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("scanner: walk error", "path", path, "error", err)
			res.Summary.Errors++
			return nil
		}
		if path == root {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, realRoot) {
				return nil
			}
		}

		relPath, _ := filepath.Rel(root, path)

		if d.IsDir() {
			if s.config.IsExcludedDir(d.Name()) || s.ignoredByGit(gitRoot, filepath.Join(absRoot, relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.config.ShouldExclude(relPath) || s.ignoredByGit(gitRoot, filepath.Join(absRoot, relPath), false) {
			return nil
		}
		if !s.config.LanguageEnabled(parser.DetectLanguage(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("walking %s: %w", root, walkErr)
	}
	s.read(ctx, res, paths)
	return res, ctx.Err()
}

// read loads every path in parallel and records the readable ones in
// walk order.
func (s *Scanner) read(ctx context.Context, res *Result, paths []string) {
	files, errs := fileproc.ForEachFile(ctx, paths, s.config.Analysis.Workers, s.load)
	failed := make(map[string]error, errs.Len())
	if errs != nil {
		for _, e := range errs.Errors {
			failed[e.Path] = e.Err
		}
	}

	for i, file := range files {
		if err, ok := failed[paths[i]]; ok {
			if errors.Is(err, errTooLarge) {
				res.Summary.Skipped++
				continue
			}
			s.logger.Warn("scanner: reading file", "path", paths[i], "error", err)
			res.Summary.Errors++
			continue
		}
		res.Files = append(res.Files, file)
		res.Summary.TotalFiles++
		res.Summary.TotalLOC += file.LOC
		res.Summary.Languages[file.Language]++
	}
}

func (s *Scanner) load(path string) (models.SourceFile, error) {
	if limit := s.config.Analysis.MaxFileSize; limit > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > limit {
			s.logger.Debug("scanner: file too large", "path", path, "size", info.Size())
			return models.SourceFile{}, errTooLarge
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.SourceFile{}, err
	}
	loc, err := CountCodeLines(content)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("counting lines: %w", err)
	}
	return models.SourceFile{
		Path:      path,
		Language:  parser.DetectLanguage(path).String(),
		LOC:       loc,
		SizeBytes: int64(len(content)),
	}, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// maxLineSize bounds the length of a single source line.
var maxLineSize = 16 * 1024 * 1024

// CountCodeLines counts non-blank lines that do not start with a comment
// marker (#, //, /*, *). Block comment bodies without a leading * are
// counted. A line longer than maxLineSize is an error.
func CountCodeLines(content []byte) (int, error) {
	count := 0
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || isCommentLine(line) {
			continue
		}
		count++
	}
	return count, sc.Err()
}

func isCommentLine(line string) bool {
	for _, prefix := range []string{"#", "//", "/*", "*"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
