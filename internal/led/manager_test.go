package led

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camalbum/internal/events"
)

type setCall struct {
	name    string
	on      bool
	pattern string
}

type mockController struct {
	mu    sync.Mutex
	calls []setCall
}

func (m *mockController) Set(name string, on bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, setCall{name, on, pattern})
	return nil
}

func (m *mockController) Available() []string { return []string{"user"} }

func (m *mockController) Patterns() []string { return []string{"solid", "blink"} }

func (m *mockController) snapshot() []setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func waitCalls(t *testing.T, m *mockController, n int) []setCall {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		calls := m.snapshot()
		if len(calls) >= n {
			return calls
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d LED calls, want %d: %+v", len(calls), n, calls)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerFollowsCaptureState(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, "user", bus, testLogger())
	mgr.Start()

	bus.Publish(events.CaptureStateEvent{State: "ready"})
	waitCalls(t, ctrl, 1)
	bus.Publish(events.CaptureStateEvent{State: "ready"}) // unchanged, no call
	bus.Publish(events.CaptureStateEvent{State: "recording"})
	waitCalls(t, ctrl, 2)
	bus.Publish(events.CaptureStateEvent{State: "bogus"})
	bus.Publish(events.CaptureStateEvent{State: "error"})
	calls := waitCalls(t, ctrl, 3)

	want := []setCall{
		{"user", true, "solid"},
		{"user", true, "blink"},
		{"user", false, ""},
	}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %+v, want %+v", calls, want)
	}

	// Already off, Stop does not write again
	mgr.Stop()
	time.Sleep(20 * time.Millisecond)
	if got := len(ctrl.snapshot()); got != 3 {
		t.Errorf("calls after stop = %d, want 3", got)
	}

	bus.Publish(events.CaptureStateEvent{State: "ready"})
	time.Sleep(20 * time.Millisecond)
	if got := len(ctrl.snapshot()); got != 3 {
		t.Errorf("manager reacted after Stop: %d calls", got)
	}
}

func TestManagerStopTurnsOff(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, "user", bus, testLogger())
	mgr.Start()
	mgr.Start()

	bus.Publish(events.CaptureStateEvent{State: "recording"})
	waitCalls(t, ctrl, 1)
	mgr.Stop()
	mgr.Stop()

	calls := ctrl.snapshot()
	if len(calls) != 2 || calls[1] != (setCall{"user", false, ""}) {
		t.Errorf("calls = %+v, want recording then off", calls)
	}
}
