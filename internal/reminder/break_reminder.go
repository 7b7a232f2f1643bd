package reminder

import (
	"fmt"
	"sync"
	"time"

	"activitytrack/internal/stats"

	"go.uber.org/zap"
)

const (
	// A click-only stream above this count, with no other input signal,
	// is treated as likely automated and suppresses the reminder.
	suspiciousClickThreshold = 100
	// Minimum spacing between two reminders.
	reminderCooldown = 5 * time.Minute
	// Mouse distance below this is sensor noise, not movement.
	movementNoiseFloor = 0.001

	defaultCheckInterval = 30 * time.Second
)

// ActivitySource is the read-only view of activity state the monitor
// polls. It never mutates the source.
type ActivitySource interface {
	Snapshot() stats.Snapshot
	ForegroundSnapshot() map[stats.BucketKey]float64
	IsIdle() bool
}

// Config contains the break reminder policy settings.
type Config struct {
	Enabled bool
	// Interval of continuous usage before a reminder fires. Zero
	// disables the monitor.
	Interval time.Duration
	// BreakDuration of idle time that counts as a taken break.
	BreakDuration time.Duration
	// CheckInterval between monitor ticks. Defaults to 30s.
	CheckInterval time.Duration
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Status is the read-only projection exposed for display.
type Status struct {
	Enabled              bool `json:"enabled"`
	ContinuousMinutes    int  `json:"continuous_minutes"`
	UntilReminderMinutes int  `json:"until_reminder_minutes"`
	OnBreak              bool `json:"on_break"`
	IntervalMinutes      int  `json:"interval_minutes"`
	BreakDurationMinutes int  `json:"break_duration_minutes"`
}

// BreakReminder monitors continuous usage and fires a notification
// callback when the user should take a break. It owns its state machine
// exclusively; no other goroutine mutates it.
type BreakReminder struct {
	source ActivitySource
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu              sync.Mutex
	notify          func(title, message string)
	continuousStart time.Time
	lastReminder    time.Time
	onBreak         bool
	breakStart      time.Time
	running         bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewBreakReminder creates a break reminder reading from source.
func NewBreakReminder(source ActivitySource, cfg Config, logger *zap.Logger) *BreakReminder {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &BreakReminder{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		now:      now,
		stopChan: make(chan struct{}),
	}
}

// SetNotifyFunc registers the callback invoked with (title, message)
// when a reminder fires. Typically set by the UI.
func (r *BreakReminder) SetNotifyFunc(notify func(title, message string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
}

func (r *BreakReminder) enabled() bool {
	return r.cfg.Enabled && r.cfg.Interval > 0
}

// Start begins the monitoring loop. A disabled monitor does not start.
func (r *BreakReminder) Start() {
	if !r.enabled() {
		r.logger.Info("Break reminder disabled")
		return
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.continuousStart = r.now()
	r.mu.Unlock()

	r.wg.Add(1)
	go r.monitorLoop()

	r.logger.Info("Break reminder started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Duration("break_duration", r.cfg.BreakDuration),
	)
}

// Stop stops the monitoring loop.
func (r *BreakReminder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Break reminder stopped")
}

// ResetTimer restarts the continuous-usage window, e.g. after a taken
// break or a manual reset from the UI.
func (r *BreakReminder) ResetTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.continuousStart = r.now()
	r.lastReminder = time.Time{}
	r.onBreak = false
	r.breakStart = time.Time{}
}

// Snooze pushes the next reminder out by the given number of minutes
// without otherwise resetting accumulated state.
func (r *BreakReminder) Snooze(minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.lastReminder = now
	if !r.continuousStart.IsZero() {
		snooze := time.Duration(minutes) * time.Minute
		r.continuousStart = now.Add(snooze - r.cfg.Interval)
	}
}

// Status returns the current projection for display.
func (r *BreakReminder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled() {
		return Status{}
	}

	status := Status{
		Enabled:              true,
		OnBreak:              r.onBreak,
		IntervalMinutes:      int(r.cfg.Interval / time.Minute),
		BreakDurationMinutes: int(r.cfg.BreakDuration / time.Minute),
	}
	if !r.continuousStart.IsZero() {
		elapsed := r.now().Sub(r.continuousStart)
		status.ContinuousMinutes = int(elapsed / time.Minute)
		if remaining := r.cfg.Interval - elapsed; remaining > 0 {
			status.UntilReminderMinutes = int(remaining / time.Minute)
		}
	}
	return status
}

func (r *BreakReminder) monitorLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stopChan:
			return
		}
	}
}

// tick runs one monitor cycle. Any panic is recovered and logged so a
// transient error never terminates the loop.
func (r *BreakReminder) tick() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Recovered from panic in reminder tick", zap.Any("panic", rec))
		}
	}()

	if r.checkBreakTaken() {
		r.logger.Info("Break taken, resetting usage timer")
		r.ResetTimer()
		return
	}

	if r.shouldRemind() {
		r.sendReminder()
	}
}

// checkBreakTaken tracks the idle/on-break side of the state machine
// and reports whether the user has been idle for a full break duration.
func (r *BreakReminder) checkBreakTaken() bool {
	idle := r.source.IsIdle()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !idle {
		// Active again; any break in progress ends without counting.
		if r.onBreak {
			r.onBreak = false
			r.breakStart = time.Time{}
		}
		return false
	}

	if !r.onBreak {
		r.onBreak = true
		r.breakStart = r.now()
		return false
	}

	return !r.breakStart.IsZero() && r.now().Sub(r.breakStart) >= r.cfg.BreakDuration
}

func (r *BreakReminder) shouldRemind() bool {
	if !r.enabled() {
		return false
	}
	if r.source.IsIdle() {
		return false
	}
	if !r.isGenuineActivity() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.continuousStart.IsZero() {
		return false
	}
	now := r.now()
	if now.Sub(r.continuousStart) < r.cfg.Interval {
		return false
	}
	if !r.lastReminder.IsZero() && now.Sub(r.lastReminder) < reminderCooldown {
		return false
	}
	return true
}

// isGenuineActivity classifies the current sampling window as real user
// input or automation. First match wins: key presses, then mouse
// movement, then scrolling, then app variety are each strong evidence of
// a human; a pure click stream is only trusted below the suspicious
// threshold.
//
// Only non-injected input counts as positive evidence; software-
// synthesized events must not look like a human.
func (r *BreakReminder) isGenuineActivity() bool {
	snap := r.source.Snapshot()

	if snap.GenuineKeys > 0 {
		return true
	}
	if snap.GenuineMouseDistance > movementNoiseFloor {
		return true
	}
	if snap.GenuineScrollDistance > 0 {
		return true
	}

	apps := make(map[string]struct{})
	for key := range r.source.ForegroundSnapshot() {
		apps[key.App] = struct{}{}
	}
	if len(apps) > 1 {
		return true
	}

	// Injected input with no genuine evidence above means automation is
	// driving; the weak click fallback cannot be trusted then.
	if snap.Keys > snap.GenuineKeys || snap.Clicks > snap.GenuineClicks ||
		snap.ScrollDistance > snap.GenuineScrollDistance ||
		snap.MouseDistance > snap.GenuineMouseDistance {
		return false
	}

	return snap.Clicks < suspiciousClickThreshold
}

func (r *BreakReminder) sendReminder() {
	r.mu.Lock()
	notify := r.notify
	minutesUsed := int(r.now().Sub(r.continuousStart) / time.Minute)
	r.lastReminder = r.now()
	r.mu.Unlock()

	r.logger.Info("Sending break reminder",
		zap.Int("minutes_used", minutesUsed),
	)

	if notify != nil {
		title := "Time for a break!"
		message := fmt.Sprintf(
			"You've been using the computer for %d minutes. Consider taking a %d-minute break.",
			minutesUsed,
			int(r.cfg.BreakDuration/time.Minute),
		)
		notify(title, message)
	}
}
