package flush

import (
	"errors"
	"testing"
	"time"

	"activitytrack/internal/platform"
	"activitytrack/internal/stats"

	"go.uber.org/zap"
)

type recordingWriter struct {
	fail    bool
	applied []stats.FlushDelta
	dates   []string
}

func (w *recordingWriter) ApplyFlush(date string, delta stats.FlushDelta) error {
	if w.fail {
		return errors.New("storage unavailable")
	}
	w.applied = append(w.applied, delta)
	w.dates = append(w.dates, date)
	return nil
}

func (w *recordingWriter) totalKeys() uint64 {
	var total uint64
	for _, d := range w.applied {
		total += d.Keys
	}
	return total
}

func newFlushState(t *testing.T) *stats.ActivityState {
	t.Helper()
	return stats.New(stats.Options{
		IdleThreshold: time.Minute,
		SuspendGap:    time.Hour,
	}, zap.NewNop())
}

func TestFlushTwiceDoesNotDoubleCount(t *testing.T) {
	state := newFlushState(t)
	writer := &recordingWriter{}
	flusher := NewFlusher(state, writer, time.Second, zap.NewNop())

	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 65})
	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 66})

	if err := flusher.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := flusher.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}

	if len(writer.applied) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(writer.applied))
	}
	if writer.totalKeys() != 2 {
		t.Fatalf("expected 2 keys persisted, got %d", writer.totalKeys())
	}
}

func TestFlushAddsOnlyNewDelta(t *testing.T) {
	state := newFlushState(t)
	writer := &recordingWriter{}
	flusher := NewFlusher(state, writer, time.Second, zap.NewNop())

	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 65})
	if err := flusher.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 65})
	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 65})
	if err := flusher.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(writer.applied) != 2 {
		t.Fatalf("expected two writes, got %d", len(writer.applied))
	}
	if writer.applied[0].Keys != 1 || writer.applied[1].Keys != 2 {
		t.Fatalf("expected deltas 1 and 2, got %d and %d", writer.applied[0].Keys, writer.applied[1].Keys)
	}
}

func TestFailedFlushRetainsDataForRetry(t *testing.T) {
	state := newFlushState(t)
	writer := &recordingWriter{fail: true}
	flusher := NewFlusher(state, writer, time.Second, zap.NewNop())

	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 65})
	state.RecordEvent(platform.InputEvent{Kind: platform.EventButtonDown})

	if err := flusher.Flush(); err == nil {
		t.Fatal("expected flush error")
	}

	// Data survives the failure and goes out intact on the retry,
	// together with anything recorded in between.
	state.RecordEvent(platform.InputEvent{Kind: platform.EventKey, KeyCode: 66})
	writer.fail = false
	if err := flusher.Flush(); err != nil {
		t.Fatalf("retry flush: %v", err)
	}

	if len(writer.applied) != 1 {
		t.Fatalf("expected one successful write, got %d", len(writer.applied))
	}
	got := writer.applied[0]
	if got.Keys != 2 || got.Clicks != 1 {
		t.Fatalf("expected 2 keys and 1 click after retry, got %+v", got)
	}
}

func TestEmptyBuffersSkipWrite(t *testing.T) {
	state := newFlushState(t)
	writer := &recordingWriter{}
	flusher := NewFlusher(state, writer, time.Second, zap.NewNop())

	if err := flusher.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(writer.applied) != 0 {
		t.Fatalf("expected no writes for empty buffers, got %d", len(writer.applied))
	}
}
