package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the user-visible persistence state of a chapter.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusSaving  Status = "saving"
	StatusUnsaved Status = "unsaved"
	StatusError   Status = "error"
)

// Saver sends one snapshot to the persistence endpoint. Client
// implements it.
type Saver interface {
	SaveChapter(ctx context.Context, snap ChapterSnapshot) error
}

// Queue coalesces content snapshots into at-most-one-in-flight save
// calls. It holds a single "latest pending" slot rather than a FIFO: a
// new snapshot overwrites an unsent one, and when a cycle finishes
// while the slot is occupied the next cycle starts immediately with the
// newest content. The one-in-flight guarantee is what prevents an older
// response from landing after a newer one.
type Queue struct {
	mu sync.Mutex

	chapterID string
	saver     Saver
	timeout   time.Duration
	log       *slog.Logger

	pending   *ChapterSnapshot
	saving    bool
	status    Status
	lastSaved string
	lastErr   error

	wg sync.WaitGroup
}

func NewQueue(chapterID string, saver Saver, timeout time.Duration, log *slog.Logger) *Queue {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		chapterID: chapterID,
		saver:     saver,
		timeout:   timeout,
		log:       log.With("chapter_id", chapterID),
		status:    StatusSaved,
	}
}

// Enqueue records the latest snapshot, overwriting any unsent one, and
// starts a save cycle unless one is already in flight.
func (q *Queue) Enqueue(content string, wordCount int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = &ChapterSnapshot{
		ChapterID: q.chapterID,
		Content:   content,
		WordCount: wordCount,
	}
	if q.saving {
		q.status = StatusUnsaved
		return
	}
	q.saving = true
	q.status = StatusSaving
	q.wg.Add(1)
	go q.run()
}

// run drains the pending slot. Exactly one run goroutine exists while
// saving is true.
func (q *Queue) run() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		snap := q.pending
		if snap == nil {
			q.saving = false
			q.mu.Unlock()
			return
		}
		q.pending = nil
		q.status = StatusSaving
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.saver.SaveChapter(ctx, *snap)
		cancel()

		q.mu.Lock()
		if err != nil {
			// Content stays in memory untouched; the next local edit
			// triggers the retry.
			q.status = StatusError
			q.lastErr = err
			q.log.Error("chapter save failed", "error", err, "word_count", snap.WordCount)
		} else {
			q.status = StatusSaved
			q.lastErr = nil
			q.lastSaved = snap.Content
		}
		q.mu.Unlock()
	}
}

// Status reports the current persistence state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending != nil && q.saving {
		return StatusUnsaved
	}
	return q.status
}

// LastError returns the most recent save failure, nil after a success.
func (q *Queue) LastError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// LastSaved returns the last content acknowledged by the endpoint.
func (q *Queue) LastSaved() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSaved
}

// Flush waits until the in-flight cycle (and any snapshot it picked up)
// has drained, then reports the final error state. Used on shutdown and
// before chapter switches.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.LastError()
}
