// Package scan drives a full filesystem scan. A hierarchy walk enumerates the
// entries and feeds a work queue, a pool of workers digests the regular files,
// and the combined results are persisted as a manifest run.
package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/desertwitch/fts"
	"github.com/desertwitch/fts/internal/manifest"
	"github.com/desertwitch/fts/internal/queue"
)

// Stages of a scan, as reported in [Progress].
const (
	StageIdle    = "idle"
	StageWalking = "walking"
	StageHashing = "hashing"
	StageDone    = "done"
)

const defaultBatchSize = 1000

type manifestStore interface {
	BeginRun(ctx context.Context, roots []string) (int64, error)
	FinishRun(ctx context.Context, id int64, status string, stats manifest.Stats) error
	AddRecords(ctx context.Context, runID int64, records []*manifest.Record) error
}

// Settings holds the behavioral knobs of a [Scanner].
type Settings struct {
	// Options are the walk options for the enumeration stage.
	Options fts.Options

	// Compare orders sibling entries during the walk; nil keeps on-disk order.
	Compare fts.CompareFunc

	// Workers is the hashing concurrency; zero means one worker per CPU.
	Workers int

	// NoHash disables the hashing stage, leaving an enumeration-only scan.
	NoHash bool

	// BatchSize is the number of records persisted per transaction.
	BatchSize int
}

// Progress is a point-in-time snapshot of a running scan.
type Progress struct {
	Stage    string
	Files    int64
	Dirs     int64
	Others   int64
	Failed   int64
	Bytes    int64
	MaxDepth int64
	Hashing  queue.Progress
}

// Result holds the final outcome of a finished scan.
type Result struct {
	RunID    int64
	Status   string
	Stats    manifest.Stats
	Duration time.Duration
}

// Scanner walks filesystem hierarchies and records their contents. A Scanner
// is single-use per [Scanner.Run], but can be polled concurrently for
// [Scanner.Progress] while a run is active.
type Scanner struct {
	store    manifestStore
	settings Settings

	queue   *queue.Queue[*task]
	records []*manifest.Record

	stage  atomic.Value
	files  atomic.Int64
	dirs   atomic.Int64
	others atomic.Int64
	failed atomic.Int64
	bytes  atomic.Int64
	depth  atomic.Int64
}

type task struct {
	path string
	size int64
	rec  *manifest.Record
}

// NewScanner returns a pointer to a new [Scanner]. A nil store disables
// manifest persistence, leaving the scan as an in-memory operation.
func NewScanner(store manifestStore, settings Settings) *Scanner {
	s := &Scanner{
		store:    store,
		settings: settings,
		queue:    queue.NewQueue[*task](),
	}

	s.stage.Store(StageIdle)

	return s
}

// Progress returns the [Progress] of the scan.
func (s *Scanner) Progress() Progress {
	stage, _ := s.stage.Load().(string)

	return Progress{
		Stage:    stage,
		Files:    s.files.Load(),
		Dirs:     s.dirs.Load(),
		Others:   s.others.Load(),
		Failed:   s.failed.Load(),
		Bytes:    s.bytes.Load(),
		MaxDepth: s.depth.Load(),
		Hashing:  s.queue.Progress(),
	}
}

// Run performs the full scan over the given roots and returns its [Result].
// On context cancellation a started manifest run is still finished in
// [manifest.StatusCanceled] state, with all results gathered so far persisted.
func (s *Scanner) Run(ctx context.Context, roots []string) (*Result, error) {
	started := time.Now()

	var runID int64

	if s.store != nil {
		id, err := s.store.BeginRun(ctx, roots)
		if err != nil {
			return nil, fmt.Errorf("(scan-run) %w", err)
		}
		runID = id
	}

	// Finalization must survive the cancellation of the run itself.
	finCtx := context.WithoutCancel(ctx)

	s.stage.Store(StageWalking)

	if err := s.enumerate(ctx, roots); err != nil {
		status := manifest.StatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = manifest.StatusCanceled
		}
		s.finalize(finCtx, runID, status)

		return nil, fmt.Errorf("(scan-run) %w", err)
	}

	if !s.settings.NoHash {
		s.stage.Store(StageHashing)

		if err := s.hashAll(ctx); err != nil {
			s.finalize(finCtx, runID, manifest.StatusCanceled)

			return nil, fmt.Errorf("(scan-run) %w", err)
		}
	}

	status := manifest.StatusComplete
	if s.failed.Load() > 0 {
		status = manifest.StatusFailed
	}

	if err := s.finalize(finCtx, runID, status); err != nil {
		return nil, fmt.Errorf("(scan-run) %w", err)
	}

	s.stage.Store(StageDone)

	return &Result{
		RunID:    runID,
		Status:   status,
		Stats:    s.stats(),
		Duration: time.Since(started),
	}, nil
}

// enumerate walks the hierarchy, records every entry and enqueues the regular
// files for the hashing stage.
func (s *Scanner) enumerate(ctx context.Context, roots []string) error {
	return fts.Walk(ctx, roots, s.settings.Options, s.settings.Compare, func(e *fts.Entry) error {
		// The walk itself is sequential, so a plain max suffices here.
		if lvl := int64(e.Level); lvl > s.depth.Load() {
			s.depth.Store(lvl)
		}

		switch e.Info {
		case fts.InfoPostDir:
			// Directories were recorded in pre-order.

		case fts.InfoNoStat, fts.InfoNoReadDir, fts.InfoErr:
			s.failed.Add(1)
			s.addRecord(e)

		case fts.InfoPreDir:
			s.dirs.Add(1)
			s.addRecord(e)

		case fts.InfoFile:
			s.files.Add(1)
			s.bytes.Add(e.Size)

			rec := s.addRecord(e)

			if !s.settings.NoHash {
				s.queue.Enqueue(&task{path: e.Path, size: e.Size, rec: rec})
				s.queue.AddBytesExpected(uint64(e.Size))
			}

		default:
			s.others.Add(1)
			s.addRecord(e)
		}

		return nil
	})
}

// hashAll drains the work queue with the configured number of workers.
func (s *Scanner) hashAll(ctx context.Context) error {
	workers := s.settings.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	process := func(t *task) int {
		if ctx.Err() != nil {
			return queue.DecisionSkipped
		}

		hash, err := s.hashFile(ctx, t.path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return queue.DecisionSkipped
			}

			t.rec.Error = err.Error()
			s.failed.Add(1)

			return queue.DecisionSkipped
		}

		t.rec.Hash = hash

		return queue.DecisionSuccess
	}

	if err := s.queue.DequeueAndProcessConc(ctx, workers, process); err != nil {
		return err
	}

	return nil
}

// addRecord appends a manifest record for the entry and returns it, so later
// stages can fill in their results.
func (s *Scanner) addRecord(e *fts.Entry) *manifest.Record {
	rec := &manifest.Record{
		Path:  e.Path,
		Size:  e.Size,
		Ino:   e.Ino,
		Dev:   e.Dev,
		NLink: e.NLink,
		Kind:  recordKind(e.Info),
	}

	if e.Err != nil {
		rec.Error = e.Err.Error()
	}

	s.records = append(s.records, rec)

	return rec
}

// finalize persists the gathered records and closes out the manifest run.
func (s *Scanner) finalize(ctx context.Context, runID int64, status string) error {
	if s.store == nil {
		return nil
	}

	batchSize := s.settings.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	for start := 0; start < len(s.records); start += batchSize {
		end := min(start+batchSize, len(s.records))

		if err := s.store.AddRecords(ctx, runID, s.records[start:end]); err != nil {
			return fmt.Errorf("(scan-persist) %w", err)
		}
	}

	if err := s.store.FinishRun(ctx, runID, status, s.stats()); err != nil {
		return fmt.Errorf("(scan-persist) %w", err)
	}

	return nil
}

func (s *Scanner) stats() manifest.Stats {
	return manifest.Stats{
		TotalFiles:  s.files.Load(),
		TotalDirs:   s.dirs.Load(),
		TotalBytes:  s.bytes.Load(),
		HashedFiles: int64(s.queue.Progress().SuccessItems),
		FailedFiles: s.failed.Load(),
	}
}

func recordKind(info fts.Info) string {
	if info == fts.InfoPreDir {
		return "dir"
	}

	return info.String()
}
