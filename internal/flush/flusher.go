package flush

import (
	"sync"
	"time"

	"activitytrack/internal/bucket"
	"activitytrack/internal/stats"

	"go.uber.org/zap"
)

// StatsWriter is the storage contract the flusher writes through. Writes
// must have additive-merge semantics per aggregation key.
type StatsWriter interface {
	ApplyFlush(date string, delta stats.FlushDelta) error
}

// Flusher periodically drains the in-memory activity buffers into
// persistent storage so long sessions don't grow memory unbounded and
// historical queries stay near-real-time.
type Flusher struct {
	state    *stats.ActivityState
	writer   StatsWriter
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewFlusher creates a flusher draining state into writer every interval.
func NewFlusher(state *stats.ActivityState, writer StatsWriter, interval time.Duration, logger *zap.Logger) *Flusher {
	return &Flusher{
		state:    state,
		writer:   writer,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic flush loop.
func (f *Flusher) Start() {
	f.wg.Add(1)
	go f.flushLoop()

	f.logger.Info("Flusher started",
		zap.Duration("interval", f.interval),
	)
}

// Stop stops the loop and performs one final best-effort flush.
func (f *Flusher) Stop() {
	select {
	case <-f.stopChan:
		// Already stopped
		return
	default:
		close(f.stopChan)
	}

	f.wg.Wait()

	if err := f.Flush(); err != nil {
		f.logger.Warn("Final flush failed, unflushed data is lost", zap.Error(err))
	}
	f.logger.Info("Flusher stopped")
}

// Flush drains the buffers under the state lock and writes the delta
// outside it, so slow storage I/O never blocks the event path. On a
// write failure the delta is merged back and retried next cycle; a crash
// loses at most one interval of data and nothing is ever double-counted.
func (f *Flusher) Flush() error {
	delta := f.state.DrainForFlush()
	if delta.Empty() {
		return nil
	}

	date := f.now().Format(bucket.DateFormat)
	if err := f.writer.ApplyFlush(date, delta); err != nil {
		f.state.Restore(delta)
		return err
	}

	f.logger.Debug("Flushed activity buffers",
		zap.String("date", date),
		zap.Uint64("keys", delta.Keys),
		zap.Uint64("clicks", delta.Clicks),
		zap.Int("foreground_buckets", len(delta.Foreground)),
	)
	return nil
}

func (f *Flusher) flushLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A transient storage failure must never end the loop.
			if err := f.Flush(); err != nil {
				f.logger.Warn("Flush failed, buffered data retained for retry", zap.Error(err))
			}
		case <-f.stopChan:
			return
		}
	}
}
