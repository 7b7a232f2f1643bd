package reminder

import (
	"testing"
	"time"

	"activitytrack/internal/platform"
	"activitytrack/internal/stats"

	"go.uber.org/zap"
)

type fakeSource struct {
	snap stats.Snapshot
	fg   map[stats.BucketKey]float64
	idle bool
}

func (f *fakeSource) Snapshot() stats.Snapshot                        { return f.snap }
func (f *fakeSource) ForegroundSnapshot() map[stats.BucketKey]float64 { return f.fg }
func (f *fakeSource) IsIdle() bool                                    { return f.idle }

type panicSource struct{}

func (panicSource) Snapshot() stats.Snapshot                        { panic("boom") }
func (panicSource) ForegroundSnapshot() map[stats.BucketKey]float64 { return nil }
func (panicSource) IsIdle() bool                                    { return false }

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestReminder(source ActivitySource, clock *testClock) *BreakReminder {
	return NewBreakReminder(source, Config{
		Enabled:       true,
		Interval:      60 * time.Minute,
		BreakDuration: 5 * time.Minute,
		Clock:         clock.Now,
	}, zap.NewNop())
}

func TestGenuineActivityHeuristic(t *testing.T) {
	cases := []struct {
		name    string
		snap    stats.Snapshot
		fg      map[stats.BucketKey]float64
		genuine bool
	}{
		{
			name:    "keys present",
			snap:    stats.Snapshot{Keys: 1, GenuineKeys: 1},
			genuine: true,
		},
		{
			name:    "mouse movement",
			snap:    stats.Snapshot{MouseDistance: 42, GenuineMouseDistance: 42},
			genuine: true,
		},
		{
			name:    "movement below noise floor",
			snap:    stats.Snapshot{MouseDistance: 0.0005, GenuineMouseDistance: 0.0005, Clicks: 200, GenuineClicks: 200},
			genuine: false,
		},
		{
			name:    "scroll activity",
			snap:    stats.Snapshot{ScrollDistance: 1, GenuineScrollDistance: 1},
			genuine: true,
		},
		{
			name:    "injected keys and movement only",
			snap:    stats.Snapshot{Keys: 50, MouseDistance: 69.3},
			genuine: false,
		},
		{
			name:    "injected click flood",
			snap:    stats.Snapshot{Clicks: 500, GenuineClicks: 0},
			genuine: false,
		},
		{
			name: "multiple foreground apps",
			snap: stats.Snapshot{Clicks: 1000},
			fg: map[stats.BucketKey]float64{
				{Date: "2025-12-24", Hour: 10, App: "editor.exe"}:  10,
				{Date: "2025-12-24", Hour: 10, App: "browser.exe"}: 10,
			},
			genuine: true,
		},
		{
			name: "one app across hours is not variety",
			snap: stats.Snapshot{Clicks: 200, GenuineClicks: 200},
			fg: map[stats.BucketKey]float64{
				{Date: "2025-12-24", Hour: 10, App: "editor.exe"}: 10,
				{Date: "2025-12-24", Hour: 11, App: "editor.exe"}: 10,
			},
			genuine: false,
		},
		{
			name:    "few clicks only",
			snap:    stats.Snapshot{Clicks: 1, GenuineClicks: 1},
			genuine: true,
		},
		{
			name:    "click flood only",
			snap:    stats.Snapshot{Clicks: 100, GenuineClicks: 100},
			genuine: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := &testClock{now: time.Date(2025, 12, 24, 10, 0, 0, 0, time.Local)}
			r := newTestReminder(&fakeSource{snap: tc.snap, fg: tc.fg}, clock)
			if got := r.isGenuineActivity(); got != tc.genuine {
				t.Fatalf("expected genuine=%v, got %v", tc.genuine, got)
			}
		})
	}
}

func TestReminderFiresAfterInterval(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Keys: 10, GenuineKeys: 10}}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	var fired []string
	r.SetNotifyFunc(func(title, message string) { fired = append(fired, title) })

	// Not yet.
	clock.Advance(30 * time.Minute)
	r.tick()
	if len(fired) != 0 {
		t.Fatal("reminder fired before interval elapsed")
	}

	clock.Advance(31 * time.Minute)
	r.tick()
	if len(fired) != 1 {
		t.Fatalf("expected one reminder, got %d", len(fired))
	}

	// Cooldown suppresses the next one.
	clock.Advance(time.Minute)
	r.tick()
	if len(fired) != 1 {
		t.Fatalf("cooldown violated, got %d reminders", len(fired))
	}

	clock.Advance(5 * time.Minute)
	r.tick()
	if len(fired) != 2 {
		t.Fatalf("expected reminder after cooldown, got %d", len(fired))
	}
}

func TestAutomatedClicksSuppressReminder(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Clicks: 500, GenuineClicks: 500}}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	fired := 0
	r.SetNotifyFunc(func(title, message string) { fired++ })

	clock.Advance(2 * time.Hour)
	r.tick()
	if fired != 0 {
		t.Fatal("click-flood activity must not trigger a reminder")
	}
}

func TestIdleSuppressesReminder(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Keys: 10, GenuineKeys: 10}, idle: true}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	fired := 0
	r.SetNotifyFunc(func(title, message string) { fired++ })

	clock.Advance(2 * time.Hour)
	r.tick()
	if fired != 0 {
		t.Fatal("no reminder expected while idle")
	}
}

func TestBreakTakenResetsTimer(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Keys: 10, GenuineKeys: 10}}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	clock.Advance(50 * time.Minute)

	// User goes idle; first tick starts the break.
	source.idle = true
	r.tick()
	if !r.Status().OnBreak {
		t.Fatal("expected on-break after idle tick")
	}

	// Idle long enough: the break counts and the timer resets.
	clock.Advance(5 * time.Minute)
	r.tick()
	status := r.Status()
	if status.OnBreak {
		t.Fatal("expected on-break cleared after full break")
	}
	if status.ContinuousMinutes != 0 {
		t.Fatalf("expected usage timer reset, got %d minutes", status.ContinuousMinutes)
	}

	// Becoming active again does not re-trigger a break.
	source.idle = false
	r.tick()
	if r.Status().OnBreak {
		t.Fatal("expected active state after break")
	}
}

func TestShortIdleDoesNotCountAsBreak(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Keys: 10, GenuineKeys: 10}}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	clock.Advance(50 * time.Minute)
	source.idle = true
	r.tick()
	clock.Advance(2 * time.Minute)
	r.tick()

	// Active again before a full break elapsed.
	source.idle = false
	r.tick()
	if got := r.Status().ContinuousMinutes; got != 52 {
		t.Fatalf("usage timer must survive a short idle, got %d minutes", got)
	}
}

func TestSnoozeExtendsWindow(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	source := &fakeSource{snap: stats.Snapshot{Keys: 10, GenuineKeys: 10}}
	r := newTestReminder(source, clock)
	r.ResetTimer()

	clock.Advance(65 * time.Minute)
	r.Snooze(10)

	status := r.Status()
	if status.UntilReminderMinutes != 10 {
		t.Fatalf("expected 10 minutes until next reminder after snooze, got %d", status.UntilReminderMinutes)
	}

	fired := 0
	r.SetNotifyFunc(func(title, message string) { fired++ })
	clock.Advance(5 * time.Minute)
	r.tick()
	if fired != 0 {
		t.Fatal("reminder fired during snooze window")
	}

	clock.Advance(6 * time.Minute)
	r.tick()
	if fired != 1 {
		t.Fatalf("expected reminder after snooze elapsed, got %d", fired)
	}
}

func TestDisabledMonitor(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	r := NewBreakReminder(&fakeSource{}, Config{
		Enabled:  true,
		Interval: 0, // zero interval disables
		Clock:    clock.Now,
	}, zap.NewNop())

	status := r.Status()
	if status.Enabled {
		t.Fatal("zero interval must disable the monitor")
	}

	r.Start()
	r.Stop()
}

func TestInjectedStreamDoesNotTriggerReminder(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	state := stats.New(stats.Options{
		IdleThreshold: 24 * time.Hour,
		SuspendGap:    time.Hour,
		Clock:         clock.Now,
	}, zap.NewNop())

	// A macro pumping synthesized keys and cursor moves through the
	// hooks: totals grow, genuine evidence does not.
	for i := 0; i < 50; i++ {
		state.RecordEvent(platform.InputEvent{
			Kind: platform.EventKey, KeyCode: 65, Injected: true, Timestamp: clock.Now(),
		})
		state.RecordEvent(platform.InputEvent{
			Kind: platform.EventMouseMove, X: int32(i), Y: int32(i), Injected: true, Timestamp: clock.Now(),
		})
	}

	r := newTestReminder(state, clock)
	if r.isGenuineActivity() {
		t.Fatal("purely injected input stream must not classify as genuine")
	}

	r.ResetTimer()
	fired := 0
	r.SetNotifyFunc(func(title, message string) { fired++ })
	clock.Advance(2 * time.Hour)
	r.tick()
	if fired != 0 {
		t.Fatalf("expected no reminder for injected-only activity, got %d", fired)
	}
}

func TestTickSurvivesPanic(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 12, 24, 9, 0, 0, 0, time.Local)}
	r := newTestReminder(panicSource{}, clock)
	r.ResetTimer()

	clock.Advance(2 * time.Hour)
	r.tick() // must not propagate the panic
	r.tick()
}
