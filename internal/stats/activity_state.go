package stats

import (
	"math"
	"sync"
	"time"

	"activitytrack/internal/bucket"
	"activitytrack/internal/platform"

	"go.uber.org/zap"
)

// BucketKey addresses one cell of the foreground time buffer.
type BucketKey struct {
	Date string
	Hour int
	App  string
}

// Snapshot is a point-in-time copy of the in-memory counters. The maps
// are owned by the caller.
//
// The Genuine* fields count only non-injected input. The plain totals
// include injected events for visibility; activity classification must
// read the genuine counterparts.
type Snapshot struct {
	Keys           uint64
	Clicks         uint64
	ScrollDistance float64
	MouseDistance  float64

	GenuineKeys           uint64
	GenuineClicks         uint64
	GenuineScrollDistance float64
	GenuineMouseDistance  float64

	KeyHeatmap   map[uint32]uint64
	AppKeyCounts map[string]uint64
	IsIdle       bool
	LastActivity time.Time
}

// FlushDelta is the set of buffered counters drained by one flush cycle.
type FlushDelta struct {
	Keys           uint64
	Clicks         uint64
	ScrollDistance float64
	MouseDistance  float64
	KeyHeatmap     map[uint32]uint64
	AppKeyCounts   map[string]uint64
	Foreground     map[BucketKey]float64
}

// Empty reports whether the delta carries nothing worth persisting.
func (d *FlushDelta) Empty() bool {
	return d.Keys == 0 && d.Clicks == 0 &&
		d.ScrollDistance == 0 && d.MouseDistance == 0 &&
		len(d.KeyHeatmap) == 0 && len(d.AppKeyCounts) == 0 &&
		len(d.Foreground) == 0
}

// Options contains runtime options for ActivityState.
type Options struct {
	// IdleThreshold is how long without qualifying input before the
	// user is considered idle.
	IdleThreshold time.Duration
	// SuspendGap is the wall-clock gap between foreground ticks above
	// which the elapsed interval is treated as system sleep and
	// discarded instead of bucketed.
	SuspendGap time.Duration
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// ActivityState is the single source of truth for all activity counters.
// Every field is guarded by one mutex; critical sections are plain field
// updates only. Readers get copies, never live references.
type ActivityState struct {
	mu     sync.Mutex
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	keys           uint64
	clicks         uint64
	scrollDistance float64
	mouseDistance  float64

	genuineKeys           uint64
	genuineClicks         uint64
	genuineScrollDistance float64
	genuineMouseDistance  float64

	keyHeatmap   map[uint32]uint64
	appKeyCounts map[string]uint64
	foreground     map[BucketKey]float64

	lastActivity time.Time
	isIdle       bool
	idleStart    time.Time

	lastMouseX   int32
	lastMouseY   int32
	haveMousePos bool

	// Foreground attribution anchors, advanced on every tick.
	currentApp string
	lastTick   time.Time
}

// New creates an ActivityState.
func New(opts Options, logger *zap.Logger) *ActivityState {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &ActivityState{
		opts:         opts,
		logger:       logger,
		now:          now,
		keyHeatmap:   make(map[uint32]uint64),
		appKeyCounts: make(map[string]uint64),
		foreground:   make(map[BucketKey]float64),
		lastActivity: now(),
	}
}

// RecordEvent folds one normalized input event into the counters. It
// holds the lock only for field updates and is safe to call from the
// event-drain goroutine while flush and snapshot readers run.
//
// Injected events are still counted for visibility, but only
// non-injected events refresh idle state and the per-app key counts.
func (s *ActivityState) RecordEvent(ev platform.InputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case platform.EventKey:
		s.keys++
		s.keyHeatmap[ev.KeyCode]++
		if !ev.Injected {
			s.genuineKeys++
			if s.currentApp != "" {
				s.appKeyCounts[s.currentApp]++
			}
		}
	case platform.EventButtonDown:
		s.clicks++
		if !ev.Injected {
			s.genuineClicks++
		}
	case platform.EventScroll:
		// Wheel is the raw delta; one detent is 120. Dividing here keeps
		// sub-detent deltas from precision touchpads.
		notches := math.Abs(float64(ev.Wheel)) / 120
		s.scrollDistance += notches
		if !ev.Injected {
			s.genuineScrollDistance += notches
		}
	case platform.EventMouseMove:
		if s.haveMousePos {
			dx := float64(ev.X - s.lastMouseX)
			dy := float64(ev.Y - s.lastMouseY)
			dist := math.Hypot(dx, dy)
			s.mouseDistance += dist
			if !ev.Injected {
				s.genuineMouseDistance += dist
			}
		}
		s.lastMouseX = ev.X
		s.lastMouseY = ev.Y
		s.haveMousePos = true
	default:
		return
	}

	if !ev.Injected {
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}
		s.lastActivity = ts
		s.isIdle = false
		s.idleStart = time.Time{}
	}
}

// CheckIdle transitions Active -> Idle once the idle threshold has
// elapsed without a qualifying event. It is driven by the periodic tick,
// not by events. Returns true when the transition happened on this call.
func (s *ActivityState) CheckIdle() bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isIdle || s.opts.IdleThreshold <= 0 {
		return false
	}
	if now.Sub(s.lastActivity) < s.opts.IdleThreshold {
		return false
	}

	s.isIdle = true
	// Idle began when the input stopped, not when we noticed.
	s.idleStart = s.lastActivity
	return true
}

// IsIdle returns the current idle flag.
func (s *ActivityState) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isIdle
}

// LastActivity returns the timestamp of the last qualifying event.
func (s *ActivityState) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// CurrentApp returns the foreground application as of the last tick.
func (s *ActivityState) CurrentApp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentApp
}

// TickForeground attributes the wall time elapsed since the previous
// tick to the application that was in the foreground during it, split
// into local-hour buckets. app is the application observed right now;
// an empty app means the focus query failed and nothing is attributed
// for the next interval.
//
// If the elapsed gap exceeds the suspend threshold the whole interval is
// discarded: a wall-clock jump not explained by real elapsed ticks means
// the machine was asleep, and sleep must not be reported as screen time.
func (s *ActivityState) TickForeground(app string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prevApp := s.currentApp
	prevTick := s.lastTick
	s.currentApp = app
	s.lastTick = now

	if prevTick.IsZero() || !now.After(prevTick) {
		return
	}

	gap := now.Sub(prevTick)
	if s.opts.SuspendGap > 0 && gap > s.opts.SuspendGap {
		s.logger.Info("Discarding foreground interval, suspend gap detected",
			zap.Duration("gap", gap),
			zap.String("app", prevApp),
		)
		return
	}

	if prevApp == "" {
		return
	}

	for _, seg := range bucket.SplitByLocalHour(prevTick, now) {
		key := BucketKey{Date: seg.Date, Hour: seg.Hour, App: prevApp}
		s.foreground[key] += seg.Seconds
	}
}

// Snapshot returns a consistent copy of all counters.
func (s *ActivityState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Keys:           s.keys,
		Clicks:         s.clicks,
		ScrollDistance: s.scrollDistance,
		MouseDistance:  s.mouseDistance,

		GenuineKeys:           s.genuineKeys,
		GenuineClicks:         s.genuineClicks,
		GenuineScrollDistance: s.genuineScrollDistance,
		GenuineMouseDistance:  s.genuineMouseDistance,

		KeyHeatmap:   copyHeatmap(s.keyHeatmap),
		AppKeyCounts: copyAppCounts(s.appKeyCounts),
		IsIdle:       s.isIdle,
		LastActivity: s.lastActivity,
	}
}

// ForegroundSnapshot returns a copy of the foreground time buffer
// without draining it.
func (s *ActivityState) ForegroundSnapshot() map[BucketKey]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyForeground(s.foreground)
}

// DrainForFlush copies all buffered counters out and resets them to
// zero in one critical section. The caller performs the persistence
// write outside the lock and calls Restore if the write fails.
func (s *ActivityState) DrainForFlush() FlushDelta {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := FlushDelta{
		Keys:           s.keys,
		Clicks:         s.clicks,
		ScrollDistance: s.scrollDistance,
		MouseDistance:  s.mouseDistance,
		KeyHeatmap:     s.keyHeatmap,
		AppKeyCounts:   s.appKeyCounts,
		Foreground:     s.foreground,
	}

	s.keys = 0
	s.clicks = 0
	s.scrollDistance = 0
	s.mouseDistance = 0
	// The genuine counters share the totals' sampling window, so they
	// reset with every drain even though they are never persisted.
	s.genuineKeys = 0
	s.genuineClicks = 0
	s.genuineScrollDistance = 0
	s.genuineMouseDistance = 0
	s.keyHeatmap = make(map[uint32]uint64)
	s.appKeyCounts = make(map[string]uint64)
	s.foreground = make(map[BucketKey]float64)

	return delta
}

// Restore merges a failed flush's delta back into the buffers so the
// data is retried on the next cycle instead of lost.
func (s *ActivityState) Restore(delta FlushDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys += delta.Keys
	s.clicks += delta.Clicks
	s.scrollDistance += delta.ScrollDistance
	s.mouseDistance += delta.MouseDistance
	for code, count := range delta.KeyHeatmap {
		s.keyHeatmap[code] += count
	}
	for app, count := range delta.AppKeyCounts {
		s.appKeyCounts[app] += count
	}
	for key, seconds := range delta.Foreground {
		s.foreground[key] += seconds
	}
}

func copyHeatmap(src map[uint32]uint64) map[uint32]uint64 {
	dst := make(map[uint32]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyAppCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyForeground(src map[BucketKey]float64) map[BucketKey]float64 {
	dst := make(map[BucketKey]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
