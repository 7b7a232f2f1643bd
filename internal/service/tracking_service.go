package service

import (
	"sync"
	"sync/atomic"
	"time"

	"activitytrack/internal/flush"
	"activitytrack/internal/platform"
	"activitytrack/internal/reminder"
	"activitytrack/internal/stats"

	"go.uber.org/zap"
)

// eventBufferSize bounds the hook-to-state handoff queue. The hook
// callback never blocks on it; events beyond capacity are dropped and
// counted.
const eventBufferSize = 1024

// TrackingService orchestrates the hook layer, activity state, flush
// pipeline and break reminder. The three periodic loops communicate only
// through the shared state, never with each other.
type TrackingService struct {
	platform     platform.Platform
	state        *stats.ActivityState
	flusher      *flush.Flusher
	reminder     *reminder.BreakReminder
	logger       *zap.Logger
	tickInterval time.Duration
	sessionID    string

	events  chan platform.InputEvent
	dropped atomic.Uint64

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTrackingService creates a new tracking service
func NewTrackingService(
	p platform.Platform,
	state *stats.ActivityState,
	flusher *flush.Flusher,
	breakReminder *reminder.BreakReminder,
	tickInterval time.Duration,
	sessionID string,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		platform:     p,
		state:        state,
		flusher:      flusher,
		reminder:     breakReminder,
		logger:       logger,
		tickInterval: tickInterval,
		sessionID:    sessionID,
		events:       make(chan platform.InputEvent, eventBufferSize),
		stopChan:     make(chan struct{}),
	}
}

// Start installs the hooks and launches the background loops. If hook
// installation fails nothing else is started and the tracker stays
// inert.
func (ts *TrackingService) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return nil
	}

	if err := ts.platform.InstallHooks(ts.onInputEvent); err != nil {
		return err
	}

	ts.wg.Add(2)
	go ts.eventLoop()
	go ts.tickLoop()

	ts.flusher.Start()
	ts.reminder.Start()

	ts.started = true
	ts.logger.Info("Tracking service started",
		zap.String("session_id", ts.sessionID),
		zap.Duration("tick_interval", ts.tickInterval),
	)
	return nil
}

// Stop shuts everything down cooperatively: hooks first so no new
// events arrive, then the loops, then a final flush.
func (ts *TrackingService) Stop() {
	ts.mu.Lock()
	if !ts.started {
		ts.mu.Unlock()
		return
	}
	ts.started = false
	close(ts.stopChan)
	ts.mu.Unlock()

	if err := ts.platform.UninstallHooks(); err != nil {
		ts.logger.Warn("Failed to uninstall hooks", zap.Error(err))
	}

	ts.reminder.Stop()

	done := make(chan struct{})
	go func() {
		ts.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		ts.logger.Warn("Some goroutines did not stop within timeout")
	}

	// Final flush after the loops are quiet.
	ts.flusher.Stop()

	if dropped := ts.dropped.Load(); dropped > 0 {
		ts.logger.Warn("Input events were dropped under load",
			zap.Uint64("dropped", dropped),
		)
	}
	ts.logger.Info("Tracking service stopped")
}

// onInputEvent runs on the hook pump thread. It must return quickly, so
// the only work here is a non-blocking channel send.
func (ts *TrackingService) onInputEvent(ev platform.InputEvent) {
	select {
	case ts.events <- ev:
	default:
		ts.dropped.Add(1)
	}
}

// eventLoop drains the handoff queue into the activity state off the
// hook thread.
func (ts *TrackingService) eventLoop() {
	defer ts.wg.Done()

	for {
		select {
		case ev := <-ts.events:
			ts.state.RecordEvent(ev)
		case <-ts.stopChan:
			// Drain whatever is already queued, then exit.
			for {
				select {
				case ev := <-ts.events:
					ts.state.RecordEvent(ev)
				default:
					return
				}
			}
		}
	}
}

// tickLoop drives foreground attribution and the idle check on a fixed
// cadence, independent of the hook thread.
func (ts *TrackingService) tickLoop() {
	defer ts.wg.Done()

	ticker := time.NewTicker(ts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ts.tick()
		case <-ts.stopChan:
			return
		}
	}
}

func (ts *TrackingService) tick() {
	app := ""
	window, err := ts.platform.GetActiveWindow()
	if err != nil {
		// No attribution for this tick; the anchors still advance.
		ts.logger.Debug("Foreground query failed", zap.Error(err))
	} else if window != nil {
		app = window.Application
	}

	ts.state.TickForeground(app)

	if ts.state.CheckIdle() {
		ts.logger.Info("User is idle",
			zap.Time("last_activity", ts.state.LastActivity()),
		)
	}
}

// StatsSnapshot returns a consistent copy of the live counters for the
// polling UI.
func (ts *TrackingService) StatsSnapshot() stats.Snapshot {
	return ts.state.Snapshot()
}

// ForegroundSnapshot returns the current foreground time buffer without
// draining it.
func (ts *TrackingService) ForegroundSnapshot() map[stats.BucketKey]float64 {
	return ts.state.ForegroundSnapshot()
}

// ReminderStatus returns the break reminder projection for display.
func (ts *TrackingService) ReminderStatus() reminder.Status {
	return ts.reminder.Status()
}

// SetNotifyFunc registers the notification callback fired on reminders.
func (ts *TrackingService) SetNotifyFunc(notify func(title, message string)) {
	ts.reminder.SetNotifyFunc(notify)
}

// SnoozeReminder pushes the next reminder out by the given minutes.
func (ts *TrackingService) SnoozeReminder(minutes int) {
	ts.reminder.Snooze(minutes)
}

// ResetBreakTimer restarts the continuous-usage window.
func (ts *TrackingService) ResetBreakTimer() {
	ts.reminder.ResetTimer()
}

// Status returns the current tracking status for display.
func (ts *TrackingService) Status() map[string]interface{} {
	snap := ts.state.Snapshot()
	return map[string]interface{}{
		"session_id":     ts.sessionID,
		"is_idle":        snap.IsIdle,
		"current_app":    ts.state.CurrentApp(),
		"keys":           snap.Keys,
		"clicks":         snap.Clicks,
		"dropped_events": ts.dropped.Load(),
		"reminder":       ts.reminder.Status(),
	}
}
