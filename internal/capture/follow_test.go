package capture

import (
	"context"
	"sync"
	"testing"
	"time"
)

// selection is a stand-in for the device registry.
type selection struct {
	mu sync.Mutex
	id string
}

func (s *selection) set(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *selection) get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

func startFollower(t *testing.T, c *Controller, sel *selection) *Follower {
	t.Helper()
	f := NewFollower(c, sel.get)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func waitForDevice(t *testing.T, c *Controller, id string) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := c.Status()
		if st.State == StateReady && st.DeviceID == id {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("controller = %s on %q, want ready on %q", st.State, st.DeviceID, id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFollowerEndsOnLatestSelection(t *testing.T) {
	c, src, _, _ := newTestController(t)
	mustAcquire(t, c, "A")
	sel := &selection{id: "A"}
	f := startFollower(t, c, sel)

	entered, release := src.gate("B")
	sel.set("B")
	f.Notify()
	<-entered

	// C is selected while the switch to B is still opening.
	sel.set("C")
	f.Notify()
	release()

	waitForDevice(t, c, "C")
	// Give a stray switch time to land before checking it did not.
	time.Sleep(50 * time.Millisecond)
	st := c.Status()
	if st.DeviceID != "C" || st.State != StateReady {
		t.Fatalf("controller = %s on %q, want ready on C", st.State, st.DeviceID)
	}
	assertOnlyOpen(t, src, "C")
}

func TestFollowerBurstOfSelections(t *testing.T) {
	for run := range 20 {
		c, src, _, _ := newTestController(t)
		mustAcquire(t, c, "A")
		sel := &selection{id: "A"}
		f := startFollower(t, c, sel)

		for _, id := range []string{"B", "C", "B", "D"} {
			sel.set(id)
			f.Notify()
		}
		waitForDevice(t, c, "D")
		time.Sleep(10 * time.Millisecond)
		if st := c.Status(); st.DeviceID != "D" {
			t.Fatalf("run %d: controller on %q, want D", run, st.DeviceID)
		}
		assertOnlyOpen(t, src, "D")
	}
}

func TestFollowerLeavesUnacquiredControllerAlone(t *testing.T) {
	c, src, _, _ := newTestController(t)
	sel := &selection{}
	f := startFollower(t, c, sel)

	sel.set("B")
	f.Notify()
	time.Sleep(50 * time.Millisecond)
	if st := c.Status(); st.State != StateIdle || st.DeviceID != "" {
		t.Errorf("status = %s on %q, want untouched idle", st.State, st.DeviceID)
	}

	mustAcquire(t, c, "A")
	c.Dispose()
	f.Notify()
	time.Sleep(50 * time.Millisecond)
	if open := src.openStreams(); len(open) != 0 {
		t.Errorf("open streams after dispose = %d, want 0", len(open))
	}
}
