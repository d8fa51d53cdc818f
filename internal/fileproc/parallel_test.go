package fileproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/panbanda/inspector/pkg/analyzer"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, dir, name, content string) models.SourceFile {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return models.SourceFile{Path: path, Language: string(parser.DetectLanguage(path))}
}

func TestMapFiles_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var files []models.SourceFile
	for i := range 20 {
		files = append(files, createTestFile(t, dir, fmt.Sprintf("f%02d.py", i), "def f():\n    pass\n"))
	}

	results, errs := MapFiles(context.Background(), files, 4, func(p *parser.Parser, f models.SourceFile) (string, error) {
		res, err := p.ParseFile(f.Path)
		if err != nil {
			return "", err
		}
		defer res.Close()
		return filepath.Base(f.Path), nil
	})

	require.Nil(t, errs)
	require.Len(t, results, len(files))
	for i, f := range files {
		assert.Equal(t, filepath.Base(f.Path), results[i])
	}
}

func TestMapFiles_CollectsErrorsAndKeepsPartialResults(t *testing.T) {
	dir := t.TempDir()
	files := []models.SourceFile{
		createTestFile(t, dir, "ok.py", "x = 1\n"),
		{Path: filepath.Join(dir, "missing.py"), Language: "python"},
		createTestFile(t, dir, "ok2.py", "y = 2\n"),
	}

	results, errs := MapFiles(context.Background(), files, 0, func(p *parser.Parser, f models.SourceFile) (string, error) {
		if _, err := os.Stat(f.Path); err != nil {
			return "partial", err
		}
		return "done", nil
	})

	require.NotNil(t, errs)
	assert.Equal(t, 1, errs.Len())
	assert.Equal(t, files[1].Path, errs.Errors[0].Path)
	assert.ErrorIs(t, errs.Errors[0], os.ErrNotExist)
	assert.Equal(t, []string{"done", "partial", "done"}, results)
	assert.Contains(t, errs.Error(), "missing.py")
}

func TestMapFiles_Empty(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, 0, func(*parser.Parser, models.SourceFile) (int, error) {
		return 1, nil
	})
	assert.Nil(t, results)
	assert.Nil(t, errs)
}

func TestMapFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []models.SourceFile{{Path: "a.py"}, {Path: "b.py"}}
	var calls atomic.Int32
	results, errs := MapFiles(ctx, files, 1, func(*parser.Parser, models.SourceFile) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	assert.Zero(t, calls.Load())
	assert.Equal(t, []int{0, 0}, results)
	require.NotNil(t, errs)
	assert.Equal(t, 2, errs.Len())
	assert.ErrorIs(t, errs.Errors[0], context.Canceled)
}

func TestMapFiles_TicksTracker(t *testing.T) {
	dir := t.TempDir()
	files := []models.SourceFile{
		createTestFile(t, dir, "a.js", "let a = 1;\n"),
		createTestFile(t, dir, "b.js", "let b = 2;\n"),
	}

	var ticked []string
	var mu sync.Mutex
	tracker := analyzer.NewTracker(func(_, _ int, path string) {
		mu.Lock()
		ticked = append(ticked, path)
		mu.Unlock()
	})
	tracker.Add(len(files))
	ctx := analyzer.WithTracker(context.Background(), tracker)

	_, errs := MapFiles(ctx, files, 2, func(*parser.Parser, models.SourceFile) (bool, error) {
		return true, nil
	})
	assert.Nil(t, errs)
	assert.ElementsMatch(t, []string{files[0].Path, files[1].Path}, ticked)
}

func TestForEachFile(t *testing.T) {
	paths := []string{"one", "two", "three"}
	results, errs := ForEachFile(context.Background(), paths, 2, func(p string) (string, error) {
		if p == "two" {
			return "", errors.New("boom")
		}
		return strings.ToUpper(p), nil
	})

	assert.Equal(t, []string{"ONE", "", "THREE"}, results)
	require.NotNil(t, errs)
	assert.Equal(t, 1, errs.Len())
}

func TestProcessingErrors(t *testing.T) {
	var nilErrs *ProcessingErrors
	assert.False(t, nilErrs.HasErrors())
	assert.Zero(t, nilErrs.Len())

	a := &ProcessingErrors{}
	a.Add("x.py", errors.New("bad"))
	a.Add("y.py", errors.New("worse"))
	a.Add("z.py", errors.New("worst"))

	assert.True(t, a.HasErrors())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "3 files failed to process (first: x.py: bad)", a.Error())
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.Positive(t, Workers(0))
}
