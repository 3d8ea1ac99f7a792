//go:build linux

package devices

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/camalbum/pkg/linuxav/hotplug"
)

// settleDelay gives the kernel time to create every node of a new camera.
const settleDelay = time.Second

// Watch refreshes the registry whenever a video node is added or removed.
// It blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	mon, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		return err
	}
	defer mon.Close()

	evs := make(chan hotplug.Event, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- mon.Run(ctx, evs) }()

	r.logger.Info("Hotplug monitoring started")
	var timer *time.Timer
	var settle <-chan time.Time
	for {
		select {
		case ev, ok := <-evs:
			if !ok {
				err := <-errCh
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if !ev.IsVideoNode() || !ev.Changes() {
				continue
			}
			r.logger.Debug("Video node event", "action", ev.Action, "node", ev.DevName)
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				timer.Reset(settleDelay)
			}
			settle = timer.C
		case <-settle:
			settle = nil
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Warn("Device refresh failed", "error", err)
			}
		}
	}
}
