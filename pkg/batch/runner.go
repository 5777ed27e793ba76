// Package batch runs canopy cover over many images and assembles the result table.
package batch

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/canopy-analyzer/pkg/cover"
	"github.com/menta2k/canopy-analyzer/pkg/types"
)

// ImageProcessor produces the outcome for one path
type ImageProcessor interface {
	Process(path string) cover.Outcome
}

// ProgressFunc observes the number of images attempted so far. Calls are
// serialized and done increases by one on every call.
type ProgressFunc func(done, total int)

// Config holds configuration for a Runner
type Config struct {
	Parallel bool
	// Workers bounds the pool in parallel mode; 0 means runtime.NumCPU()
	Workers  int
	Progress ProgressFunc
	// Logger receives one line per failed image; nil means log.Default()
	Logger *log.Logger
}

// Failure records why an image produced no row
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of a batch
type Report struct {
	Table   *types.Table
	Total   int
	Skipped []string
	Failed  []Failure
}

// Runner dispatches paths to an ImageProcessor
type Runner struct {
	processor ImageProcessor
	config    Config
}

// NewRunner creates a Runner
func NewRunner(processor ImageProcessor, config Config) *Runner {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Runner{processor: processor, config: config}
}

// Workers returns the pool size used in parallel mode
func (r *Runner) Workers() int {
	return r.config.Workers
}

// Run expands src and processes every path
func (r *Runner) Run(ctx context.Context, src Source) (*Report, error) {
	paths, err := Expand(src)
	if err != nil {
		return nil, err
	}
	return r.RunPaths(ctx, paths)
}

// RunPaths processes paths and builds the report. Individual image failures
// never fail the batch; only cancellation of ctx does.
func (r *Runner) RunPaths(ctx context.Context, paths []string) (*Report, error) {
	progress := newTracker(len(paths), r.config.Progress)

	var outcomes []cover.Outcome
	var err error
	if r.config.Parallel && len(paths) > 1 {
		outcomes, err = r.runParallel(ctx, paths, progress)
	} else {
		outcomes, err = r.runSequential(ctx, paths, progress)
	}
	if err != nil {
		return nil, err
	}

	return r.assemble(len(paths), outcomes), nil
}

func (r *Runner) runSequential(ctx context.Context, paths []string, progress *tracker) ([]cover.Outcome, error) {
	outcomes := make([]cover.Outcome, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, r.process(path))
		progress.step()
	}
	return outcomes, nil
}

// runParallel fans paths out to a bounded pool and gathers outcomes in
// completion order
func (r *Runner) runParallel(ctx context.Context, paths []string, progress *tracker) ([]cover.Outcome, error) {
	results := make(chan cover.Outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results <- r.process(path)
			progress.step()
			return nil
		})
	}

	waitErr := g.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, waitErr
	}

	outcomes := make([]cover.Outcome, 0, len(paths))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// process shields the pool from a panicking processor
func (r *Runner) process(path string) (out cover.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = cover.Outcome{
				Path:   path,
				Status: cover.StatusFailed,
				Err:    fmt.Errorf("panic: %v", rec),
			}
		}
	}()
	return r.processor.Process(path)
}

// assemble merges outcomes into the report; it runs after all workers are done
func (r *Runner) assemble(total int, outcomes []cover.Outcome) *Report {
	report := &Report{Total: total}

	for _, out := range outcomes {
		switch {
		case out.OK():
		case out.Status == cover.StatusSkipped:
			report.Skipped = append(report.Skipped, out.Path)
		default:
			r.config.Logger.Printf("Error processing image: %s: %v", out.Path, out.Err)
			report.Failed = append(report.Failed, Failure{Path: out.Path, Err: out.Err})
		}
	}

	records := lo.FilterMap(outcomes, func(out cover.Outcome, _ int) (types.Record, bool) {
		if !out.OK() {
			return types.Record{}, false
		}
		return *out.Record, true
	})
	report.Table = types.NewTable(records)

	return report
}

// tracker serializes progress notifications
type tracker struct {
	mu    sync.Mutex
	done  int
	total int
	fn    ProgressFunc
}

func newTracker(total int, fn ProgressFunc) *tracker {
	return &tracker{total: total, fn: fn}
}

func (t *tracker) step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if t.fn != nil {
		t.fn(t.done, t.total)
	}
}

// LogProgress returns a ProgressFunc that logs every n-th image and the last one
func LogProgress(logger *log.Logger, every int) ProgressFunc {
	if logger == nil {
		logger = log.Default()
	}
	if every <= 0 {
		every = 1
	}
	return func(done, total int) {
		if done%every == 0 || done == total {
			logger.Printf("Processing images: %d/%d", done, total)
		}
	}
}
