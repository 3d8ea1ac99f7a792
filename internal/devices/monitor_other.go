//go:build !linux

package devices

import "context"

// Watch waits for ctx; hotplug events are only available on Linux.
func (r *Registry) Watch(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
