// Package walker enumerates candidate files under a project root, honoring
// gitignore semantics and user-configured ignore globs, and classifies each
// path against the language adapters.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/quench/pkg/ignore"
	"github.com/fulmenhq/quench/pkg/logger"
)

// ErrDiscovery marks an unreadable project root. It is fatal; per-entry I/O
// errors are skipped with a debug note instead.
var ErrDiscovery = errors.New("discovery failed")

// ClassKind partitions discovered files for check dispatch.
type ClassKind int

const (
	KindOther ClassKind = iota
	KindSource
	KindTest
	KindDocs
	KindConfig
	KindIgnored
)

// String returns the report spelling of the kind.
func (k ClassKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTest:
		return "test"
	case KindDocs:
		return "docs"
	case KindConfig:
		return "config"
	case KindIgnored:
		return "ignored"
	default:
		return "other"
	}
}

// Class is a file's classification: its kind plus the owning language id for
// source and test files.
type Class struct {
	Kind ClassKind
	Lang string
}

// WalkedFile is one discovered path. Created by the walker, consumed by the
// runner, discarded at end of run.
type WalkedFile struct {
	AbsPath string
	RelPath string
	Size    int64
	Mtime   time.Time
	Class   Class
}

// Classifier maps a root-relative path to its class. Implemented by the
// language adapter set.
type Classifier interface {
	Classify(relPath string) Class
}

// Options configures a walk.
type Options struct {
	Ignore     *ignore.Matcher
	Classifier Classifier
	// MaxFileSize is the hard ceiling; larger files are skipped with a
	// debug note. Zero means the 10 MiB default.
	MaxFileSize int64
	// Jobs bounds the parallel walk worker count. Zero means 8 workers.
	Jobs int
}

const defaultMaxFileSize = 10 << 20

// parallelThreshold is the expected file count above which the walker
// switches to parallel traversal.
const parallelThreshold = 512

// monorepoMarkers are conventional workspace layouts that imply a large tree.
var monorepoMarkers = []string{"go.work", "pnpm-workspace.yaml", "lerna.json", "packages", "crates"}

// Walk enumerates files under root. The returned slice is sorted by relative
// path so downstream consumers see a deterministic order regardless of the
// traversal strategy.
func Walk(root string, opts Options) ([]*WalkedFile, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err == nil {
		root = resolved
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	if _, err := os.ReadDir(absRoot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}

	var files []*WalkedFile
	if useParallel(absRoot) {
		files = walkParallel(absRoot, opts)
	} else {
		files = walkSequential(absRoot, opts)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// useParallel decides the traversal strategy: parallel for trees that look
// large (monorepo markers or a bounded pre-scan exceeding the threshold),
// sequential otherwise to avoid thread-spawn overhead.
func useParallel(root string) bool {
	for _, marker := range monorepoMarkers {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return prescanCount(root, 2, parallelThreshold) >= parallelThreshold
}

// prescanCount counts entries down to maxDepth, stopping at limit.
func prescanCount(dir string, maxDepth, limit int) int {
	count := 0
	var scan func(d string, depth int)
	scan = func(d string, depth int) {
		if count >= limit || depth > maxDepth {
			return
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			return
		}
		count += len(entries)
		for _, e := range entries {
			if e.IsDir() {
				scan(filepath.Join(d, e.Name()), depth+1)
				if count >= limit {
					return
				}
			}
		}
	}
	scan(dir, 0)
	return count
}

func walkSequential(root string, opts Options) []*WalkedFile {
	var files []*WalkedFile
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("walk entry skipped", logger.String("path", path), logger.Err(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if opts.Ignore != nil && opts.Ignore.IsIgnoredDirRel(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if wf := makeWalkedFile(path, rel, d, opts); wf != nil {
			files = append(files, wf)
		}
		return nil
	})
	return files
}

// walkParallel fans directory listings out to a bounded worker pool. Each
// worker lists one directory, emits its files, and queues its subdirectories.
func walkParallel(root string, opts Options) []*WalkedFile {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 8
	}

	var (
		mu      sync.Mutex
		files   []*WalkedFile
		pending sync.WaitGroup
	)
	dirs := make(chan string, 1024)

	enqueue := func(dir string) {
		pending.Add(1)
		select {
		case dirs <- dir:
		default:
			// Channel full: walk the subtree sequentially on a new goroutine
			// rather than blocking a worker.
			go func() {
				defer pending.Done()
				local := walkSequentialSubtree(root, dir, opts)
				mu.Lock()
				files = append(files, local...)
				mu.Unlock()
			}()
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range dirs {
				entries, err := os.ReadDir(dir)
				if err != nil {
					logger.Debug("walk dir skipped", logger.String("path", dir), logger.Err(err))
					pending.Done()
					continue
				}
				var local []*WalkedFile
				for _, e := range entries {
					path := filepath.Join(dir, e.Name())
					rel, relErr := filepath.Rel(root, path)
					if relErr != nil {
						continue
					}
					if e.IsDir() {
						if opts.Ignore != nil && opts.Ignore.IsIgnoredDirRel(rel) {
							continue
						}
						enqueue(path)
						continue
					}
					if !e.Type().IsRegular() {
						continue
					}
					if wf := makeWalkedFile(path, rel, e, opts); wf != nil {
						local = append(local, wf)
					}
				}
				if len(local) > 0 {
					mu.Lock()
					files = append(files, local...)
					mu.Unlock()
				}
				pending.Done()
			}
		}()
	}

	enqueue(root)
	pending.Wait()
	close(dirs)
	wg.Wait()
	return files
}

// walkSequentialSubtree handles overflow subtrees from the parallel walk.
func walkSequentialSubtree(root, dir string, opts Options) []*WalkedFile {
	var files []*WalkedFile
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("walk entry skipped", logger.String("path", path), logger.Err(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if opts.Ignore != nil && opts.Ignore.IsIgnoredDirRel(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if wf := makeWalkedFile(path, rel, d, opts); wf != nil {
			files = append(files, wf)
		}
		return nil
	})
	return files
}

// makeWalkedFile stats and classifies one entry. The DirEntry carries the
// stat from the directory read, so the runner never re-stats.
func makeWalkedFile(path, rel string, d fs.DirEntry, opts Options) *WalkedFile {
	if opts.Ignore != nil && opts.Ignore.IsIgnoredRel(rel) {
		return nil
	}
	info, err := d.Info()
	if err != nil {
		logger.Debug("stat failed", logger.String("path", path), logger.Err(err))
		return nil
	}
	if info.Size() >= opts.MaxFileSize {
		logger.Debug("file exceeds size ceiling, skipped",
			logger.String("path", rel), logger.Int("size", int(info.Size())))
		return nil
	}

	class := Class{Kind: KindOther}
	if opts.Classifier != nil {
		class = opts.Classifier.Classify(rel)
	}
	if class.Kind == KindIgnored {
		return nil
	}
	return &WalkedFile{
		AbsPath: path,
		RelPath: filepath.ToSlash(rel),
		Size:    info.Size(),
		Mtime:   info.ModTime(),
		Class:   class,
	}
}
