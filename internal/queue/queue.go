// Package queue provides a thread-safe FIFO work queue with byte-aware
// progress accounting. Producers enqueue items as a filesystem walk discovers
// them, while a pool of workers dequeues and processes the items concurrently.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DecisionSuccess is returned by a processFunc when an item was processed.
	DecisionSuccess = 1

	// DecisionSkipped is returned by a processFunc when an item was skipped.
	DecisionSkipped = 0

	// DecisionRequeue is returned by a processFunc when an item needs
	// requeueing.
	DecisionRequeue = -1
)

// Progress is a point-in-time snapshot of the processing state of a [Queue].
type Progress struct {
	HasStarted  bool
	HasFinished bool

	StartTime  time.Time
	FinishTime time.Time

	ProgressPct float64

	TotalItems      int
	ProcessedItems  int
	InProgressItems int
	SuccessItems    int
	SkippedItems    int

	ExpectedBytes  uint64
	ProcessedBytes uint64

	ETA      time.Time
	TimeLeft time.Duration

	ItemsPerSec float64
	BytesPerSec float64
}

// Queue is a generic FIFO work queue that can hold any comparable type of
// items. It is thread-safe and tracks per-item outcomes as well as the byte
// volume moving through it.
type Queue[T comparable] struct {
	sync.RWMutex
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []T
	success     []T
	skipped     []T
	inProgress  map[T]struct{}

	expectedBytes  uint64
	processedBytes uint64
}

// NewQueue returns a pointer to a new [Queue].
func NewQueue[T comparable]() *Queue[T] {
	return &Queue[T]{
		inProgress: make(map[T]struct{}),
	}
}

// HasRemainingItems returns whether a queue has remaining items to process.
func (q *Queue[T]) HasRemainingItems() bool {
	q.RLock()
	defer q.RUnlock()

	if q.head >= len(q.items) {
		return false
	}

	return true
}

// GetSuccessful returns a copy of the internal slice holding all successful
// items.
func (q *Queue[T]) GetSuccessful() []T {
	q.RLock()
	defer q.RUnlock()

	result := make([]T, len(q.success))
	copy(result, q.success)

	return result
}

// GetSkipped returns a copy of the internal slice holding all skipped items.
func (q *Queue[T]) GetSkipped() []T {
	q.RLock()
	defer q.RUnlock()

	result := make([]T, len(q.skipped))
	copy(result, q.skipped)

	return result
}

// Enqueue adds items to the queue.
func (q *Queue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	for _, item := range items {
		delete(q.inProgress, item)
		q.items = append(q.items, item)
	}
}

// Dequeue returns an item from the queue and advances the queue head.
func (q *Queue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		var zeroVal T

		return zeroVal, false
	}

	if q.head == len(q.items)-1 {
		if !q.hasFinished {
			q.finishTime = time.Now()
			q.hasFinished = true
		}
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++

	return item, true
}

// SetSuccess sets given in-progress queue items as successfully processed. The
// items are removed from the in-progress map in the process.
func (q *Queue[T]) SetSuccess(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.success = append(q.success, item)
	}
}

// SetSkipped sets given in-progress queue items as skipped. The items are
// removed from the in-progress map in the process.
func (q *Queue[T]) SetSkipped(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.skipped = append(q.skipped, item)
	}
}

// SetProcessing sets given items as in progress (processing).
func (q *Queue[T]) SetProcessing(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		q.inProgress[item] = struct{}{}
	}
}

// AddBytesExpected grows the expected byte volume of the queue. Producers call
// this alongside [Queue.Enqueue] for items with a known size.
func (q *Queue[T]) AddBytesExpected(bytes uint64) {
	q.Lock()
	defer q.Unlock()

	q.expectedBytes += bytes
}

// AddBytesProcessed adds given processed bytes to the total amount processed
// for the queue. Workers call this as they finish items.
func (q *Queue[T]) AddBytesProcessed(bytes uint64) {
	q.Lock()
	defer q.Unlock()

	q.processedBytes += bytes
}

// Progress returns the [Progress] for the [Queue].
func (q *Queue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	hasStarted := q.hasStarted
	totalItems := len(q.items)

	processedItems := len(q.success) + len(q.skipped)
	processedItems = min(processedItems, totalItems)

	var progressPct float64
	if totalItems > 0 {
		progressPct = float64(processedItems) / float64(totalItems) * 100 //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100)))     //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration

	var itemsPerSec, bytesPerSec float64

	if hasStarted && processedItems > 0 && processedItems < totalItems {
		elapsed := time.Since(q.startTime)

		itemsPerSec = float64(processedItems) / max(elapsed.Seconds(), 1)
		bytesPerSec = float64(q.processedBytes) / max(elapsed.Seconds(), 1)

		if itemsPerSec > 0 {
			remainingSeconds := float64(totalItems-processedItems) / itemsPerSec

			if bytesPerSec > 0 && q.expectedBytes > q.processedBytes {
				// ETA from byte volume when the expected total is known.
				remainingSeconds = float64(q.expectedBytes-q.processedBytes) / bytesPerSec
			}

			timeLeft = time.Duration(remainingSeconds * float64(time.Second))
			eta = time.Now().Add(timeLeft)
		}
	}

	return Progress{
		HasStarted:      hasStarted,
		HasFinished:     q.hasFinished,
		StartTime:       q.startTime,
		FinishTime:      q.finishTime,
		ProgressPct:     progressPct,
		TotalItems:      totalItems,
		ProcessedItems:  processedItems,
		InProgressItems: len(q.inProgress),
		SuccessItems:    len(q.success),
		SkippedItems:    len(q.skipped),
		ExpectedBytes:   q.expectedBytes,
		ProcessedBytes:  q.processedBytes,
		ETA:             eta,
		TimeLeft:        timeLeft,
		ItemsPerSec:     itemsPerSec,
		BytesPerSec:     bytesPerSec,
	}
}

// DequeueAndProcess sequentially dequeues and processes items using the given
// processFunc. An error is only returned in case of a context cancellation, the
// processFunc is otherwise expected to return only an integer with the
// processing function's decision for that item.
//
// Possible decisions to be returned: [DecisionSuccess], [DecisionSkipped],
// [DecisionRequeue].
func (q *Queue[T]) DequeueAndProcess(ctx context.Context, processFunc func(T) int) error {
	for {
		if ctx.Err() != nil {
			break
		}

		item, ok := q.Dequeue()
		if !ok {
			break
		}

		q.SetProcessing(item)

		switch processFunc(item) {
		case DecisionRequeue:
			q.Enqueue(item)

		case DecisionSkipped:
			q.SetSkipped(item)

		case DecisionSuccess:
			q.SetSuccess(item)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}

// DequeueAndProcessConc concurrently dequeues and processes items using given
// processFunc. An error is only returned in case of a context cancellation, the
// processFunc is otherwise expected to return only an integer with the
// processing function's decision for that item.
//
// Possible decisions to be returned: [DecisionSuccess], [DecisionSkipped],
// [DecisionRequeue].
//
// It is the responsibility of the processFunc to ensure thread-safety for
// anything happening inside the processFunc, with the [Queue] only
// guaranteeing thread-safety for itself.
func (q *Queue[T]) DequeueAndProcessConc(ctx context.Context, maxWorkers int, processFunc func(T) int) error {
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxWorkers)

LOOP:
	for {
		select {
		case <-ctx.Done():
			wg.Wait()

			return fmt.Errorf("(queue-concproc) %w", ctx.Err())
		case semaphore <- struct{}{}:
		}

		item, ok := q.Dequeue()
		if !ok {
			<-semaphore

			break
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-semaphore }()

			q.SetProcessing(item)

			switch processFunc(item) {
			case DecisionRequeue:
				q.Enqueue(item)

			case DecisionSkipped:
				q.SetSkipped(item)

			case DecisionSuccess:
				q.SetSuccess(item)
			}
		}(item)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-concproc) %w", ctx.Err())
	}

	if q.HasRemainingItems() {
		// In case item(s) were requeued but all workers have already left.
		goto LOOP
	}

	return nil
}
