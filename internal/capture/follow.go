package capture

import (
	"context"
)

// Follower keeps an engaged controller on the currently selected device.
// Selection changes only wake it; every pass re-reads the selection, so a
// burst of changes collapses into switches that end on the latest one.
// A controller that was never acquired, or was disposed, is left alone.
type Follower struct {
	c        *Controller
	selected func() (string, bool)
	wake     chan struct{}
}

// NewFollower returns a Follower for c. selected reports the device that
// should be open.
func NewFollower(c *Controller, selected func() (string, bool)) *Follower {
	return &Follower{
		c:        c,
		selected: selected,
		wake:     make(chan struct{}, 1),
	}
}

// Notify schedules a pass. It never blocks.
func (f *Follower) Notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run switches devices until ctx is done. Switches run one at a time.
func (f *Follower) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
			f.sync(ctx)
		}
	}
}

func (f *Follower) sync(ctx context.Context) {
	id, ok := f.selected()
	if !ok {
		return
	}
	st := f.c.Status()
	// DeviceID is empty until the first Acquire and after Dispose.
	if st.DeviceID == "" || st.DeviceID == id {
		return
	}
	f.c.logger.Info("Following selected device", "device", id, "previous", st.DeviceID)
	f.c.SwitchDevice(context.WithoutCancel(ctx), id)
}
