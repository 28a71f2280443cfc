// Package engine orchestrates a run: discovery, cache lookup, parallel
// per-file check execution, aggregation, and cache persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/quench/internal/cache"
	"github.com/fulmenhq/quench/internal/checks"
	"github.com/fulmenhq/quench/internal/gitctx"
	"github.com/fulmenhq/quench/internal/lang"
	"github.com/fulmenhq/quench/internal/reader"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/buildinfo"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/ignore"
	"github.com/fulmenhq/quench/pkg/logger"
)

// fastModeLimit is the Fast-mode early-termination violation budget.
// Reaching it stops scheduling new file work; in-flight checks complete.
const fastModeLimit = 15

// Options configures a run.
type Options struct {
	Root   string
	Config *config.Config
	Mode   checks.Mode
	Fix    checks.FixMode
	// Jobs bounds per-file parallelism; zero derives from CPU count.
	Jobs    int
	NoCache bool
}

// CheckResult is one check's final output.
type CheckResult struct {
	Name       string             `json:"name"`
	Passed     bool               `json:"passed"`
	Violations []checks.Violation `json:"violations"`
	Metrics    checks.Metrics     `json:"metrics"`
}

// Report is the stable output shape.
type Report struct {
	Version   int           `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Passed    bool          `json:"passed"`
	Checks    []CheckResult `json:"checks"`
}

// Run executes the engine. The returned join function blocks until the
// background cache write has completed; callers must invoke it before
// process exit to guarantee durability.
func Run(ctx context.Context, opts Options) (*Report, func(), error) {
	noopJoin := func() {}
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.Root)
		if err != nil {
			return nil, noopJoin, err
		}
		cfg = loaded
	}
	adapters, err := lang.NewSet(cfg)
	if err != nil {
		return nil, noopJoin, err
	}
	registry, err := checks.NewRegistry(cfg, adapters, opts.Mode)
	if err != nil {
		return nil, noopJoin, err
	}

	fingerprint := cfg.Fingerprint(buildinfo.BinaryVersion)
	cacheDir := cfg.CacheDir(opts.Root)
	var fileCache *cache.Cache
	if opts.NoCache || cfg.Cache.Disable {
		fileCache = cache.New(fingerprint, buildinfo.BinaryVersion)
	} else {
		fileCache = cache.Load(cacheDir, fingerprint, buildinfo.BinaryVersion)
	}

	matcher, err := ignore.NewMatcher(opts.Root, cfg.Ignore)
	if err != nil {
		return nil, noopJoin, fmt.Errorf("%w: %v", walker.ErrDiscovery, err)
	}
	files, err := walker.Walk(opts.Root, walker.Options{
		Ignore:     matcher,
		Classifier: adapters,
		Jobs:       opts.Jobs,
	})
	if err != nil {
		return nil, noopJoin, err
	}

	var git *gitctx.Context
	if opts.Mode == checks.ModeCI {
		if g, err := gitctx.Open(opts.Root); err == nil {
			git = g
		} else {
			logger.Debug("git unavailable", logger.Err(err))
		}
	}

	checkCtx := &checks.Context{
		Root:     opts.Root,
		Config:   cfg,
		Mode:     opts.Mode,
		Fix:      opts.Fix,
		Adapters: adapters,
		Files:    files,
		Git:      git,
	}

	perCheck := runFiles(ctx, registry, checkCtx, files, fileCache, opts)

	report := &Report{
		Version:   1,
		Timestamp: time.Now().UTC(),
		Passed:    true,
	}
	for _, check := range registry.Checks() {
		violations, metrics := check.Aggregate(checkCtx, perCheck[check.Name()])
		if metrics == nil {
			metrics = checks.Metrics{}
		}
		if violations == nil {
			violations = []checks.Violation{}
		}
		checks.SortViolations(violations)
		result := CheckResult{
			Name:       check.Name(),
			Passed:     len(violations) == 0,
			Violations: violations,
			Metrics:    metrics,
		}
		if !result.Passed {
			report.Passed = false
		}
		report.Checks = append(report.Checks, result)
	}

	hits, misses := fileCache.Stats()
	logger.Debug("cache stats", logger.Int("hits", int(hits)), logger.Int("misses", int(misses)))

	join := noopJoin
	if !opts.NoCache && !cfg.Cache.Disable {
		// Persist in the background so apparent latency excludes the write,
		// but always join before exit: never spawn and forget.
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := fileCache.Save(cacheDir); err != nil {
				logger.Warn("cache save failed", logger.Err(err))
			}
		}()
		join = func() { <-done }
	}
	return report, join, nil
}

// runFiles dispatches every discovered file through the applicable checks
// with bounded parallelism, serving unchanged files from the cache.
func runFiles(ctx context.Context, registry *checks.Registry, checkCtx *checks.Context, files []*walker.WalkedFile, fileCache *cache.Cache, opts Options) map[string][]checks.Violation {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU() / 2
		if jobs < 1 {
			jobs = 1
		}
	}

	var mu sync.Mutex
	perCheck := make(map[string][]checks.Violation, len(registry.Checks()))

	var reported atomic.Int64
	limit := int64(fastModeLimit)
	if opts.Mode == checks.ModeCI {
		limit = 0 // disabled
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, file := range files {
		relevant, cacheable := applicable(registry, file)
		if len(relevant) == 0 {
			continue
		}
		if limit > 0 && reported.Load() >= limit {
			// Stop scheduling; the remaining file list stays uncached.
			break
		}
		if gctx.Err() != nil {
			break
		}

		file := file

		// Cache hit only when every relevant check is cacheable and the
		// entry covers all of them; otherwise the file must be read anyway.
		if len(cacheable) == len(relevant) {
			if entry, ok := fileCache.Lookup(cache.IdentityOf(file), names(cacheable)); ok {
				mu.Lock()
				for _, v := range entry.Violations {
					perCheck[v.Check] = append(perCheck[v.Check], v)
					if !checks.IsCarrier(v) {
						reported.Add(1)
					}
				}
				mu.Unlock()
				continue
			}
		}

		g.Go(func() error {
			content, err := reader.Read(file.AbsPath, file.Size)
			if err != nil {
				// A single unreadable or non-UTF-8 file contributes no
				// violations and is never fatal.
				logger.Debug("file skipped", logger.String("path", file.RelPath), logger.Err(err))
				return nil
			}
			defer func() { _ = content.Close() }()
			text := content.Text()

			var cachedViolations []checks.Violation
			fresh := make(map[string][]checks.Violation, len(relevant))
			for _, check := range relevant {
				vs := check.RunFile(file, text, checkCtx)
				fresh[check.Name()] = vs
			}
			for _, check := range cacheable {
				cachedViolations = append(cachedViolations, fresh[check.Name()]...)
			}
			if len(cacheable) > 0 {
				fileCache.Insert(cache.IdentityOf(file), names(cacheable), cachedViolations)
			}

			mu.Lock()
			for name, vs := range fresh {
				perCheck[name] = append(perCheck[name], vs...)
				for _, v := range vs {
					if !checks.IsCarrier(v) {
						reported.Add(1)
					}
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return perCheck
}

// applicable partitions the enabled checks into those wanting this file's
// class and the cacheable subset of them.
func applicable(registry *checks.Registry, file *walker.WalkedFile) (relevant, cacheable []checks.Check) {
	for _, check := range registry.Checks() {
		if !checks.Wants(check, file.Class.Kind) {
			continue
		}
		relevant = append(relevant, check)
		if check.Cacheable() {
			cacheable = append(cacheable, check)
		}
	}
	return relevant, cacheable
}

func names(cs []checks.Check) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

// IsDiscoveryError reports whether err is the fatal unreadable-root case.
func IsDiscoveryError(err error) bool {
	return errors.Is(err, walker.ErrDiscovery)
}
